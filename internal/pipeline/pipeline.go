package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
)

// Status is the state of one stage within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StageFailedError is the error reported for a failed stage.
type StageFailedError struct {
	Stage string
	Cause error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageFailedError) Unwrap() error {
	return e.Cause
}

// StageResult is yielded once per settled stage.
type StageResult struct {
	Stage    string   `json:"stage"`
	Index    int      `json:"index"`
	Status   Status   `json:"status"`
	Err      error    `json:"-"`
	Progress float64  `json:"progress"`
	Merged   []string `json:"merged,omitempty"`
	Output   *Output  `json:"-"`
}

// StageStatus is one row of the status list.
type StageStatus struct {
	Stage    string    `json:"stage"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Merged   int       `json:"merged"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Config controls polling.
type Config struct {
	PollAttempts int
	PollInterval time.Duration
}

// DefaultConfig polls 30 times, one second apart.
func DefaultConfig() Config {
	return Config{PollAttempts: 30, PollInterval: time.Second}
}

// Pipeline binds a service, a stage list and the store results go to.
type Pipeline struct {
	svc    Service
	store  *annotation.Store
	stages []Stage
	cfg    Config
}

// New creates a pipeline. A non-positive attempt count uses the default.
func New(svc Service, store *annotation.Store, stages []Stage, cfg Config) *Pipeline {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultConfig().PollAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}
	return &Pipeline{svc: svc, store: store, stages: stages, cfg: cfg}
}

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Input is the document a run analyzes.
type Input struct {
	Document    []byte
	URL         string
	ContentType string
	Page        int
	Language    string
	// Scale is read when each stage merges.
	Scale func() scale.Converter
}

// Run is one pass over the stages.
type Run struct {
	p     *Pipeline
	ctx   context.Context
	in    Input
	prior map[string]Output

	started   atomic.Bool
	cancelled atomic.Bool
	done      chan struct{}

	mu       sync.Mutex
	statuses []StageStatus
	settled  int
}

// Start prepares a run. Nothing is sent until Results is iterated.
func (p *Pipeline) Start(ctx context.Context, in Input) *Run {
	if in.Scale == nil {
		in.Scale = func() scale.Converter { return scale.Converter{} }
	}
	r := &Run{
		p:     p,
		ctx:   ctx,
		in:    in,
		prior: make(map[string]Output),
		done:  make(chan struct{}),
	}
	r.statuses = make([]StageStatus, len(p.stages))
	for i, s := range p.stages {
		r.statuses[i] = StageStatus{Stage: s.Name, Status: StatusPending}
	}
	return r
}

// Cancel asks the run to stop before its next stage.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

// Done is closed when iteration ends.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Statuses returns a snapshot of every stage's status.
func (r *Run) Statuses() []StageStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StageStatus(nil), r.statuses...)
}

// Progress is the fraction of stages that have settled.
func (r *Run) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return 1
	}
	return float64(r.settled) / float64(len(r.statuses))
}

// Results runs the stages as the sequence is consumed. It can be iterated
// once; later iterations yield nothing. Breaking out of the loop cancels the
// run.
func (r *Run) Results() iter.Seq[StageResult] {
	return func(yield func(StageResult) bool) {
		if !r.started.CompareAndSwap(false, true) {
			return
		}
		defer close(r.done)
		for i, st := range r.p.stages {
			if r.stopped() {
				log.Printf("Analysis cancelled before stage %s", st.Name)
				return
			}
			res := r.runStage(i, st)
			if !yield(res) {
				r.Cancel()
				return
			}
			if res.Status == StatusCancelled {
				return
			}
		}
	}
}

// Wait drains Results and returns the final statuses.
func (r *Run) Wait() []StageStatus {
	for range r.Results() {
	}
	return r.Statuses()
}

func (r *Run) stopped() bool {
	return r.cancelled.Load() || r.ctx.Err() != nil
}

func (r *Run) runStage(i int, st Stage) StageResult {
	r.setStatus(i, func(s *StageStatus) {
		s.Status = StatusRunning
		s.Started = time.Now()
	})

	req := Request{
		Stage:       st.Name,
		Document:    r.in.Document,
		URL:         r.in.URL,
		ContentType: r.in.ContentType,
		Page:        r.in.Page,
		Language:    r.in.Language,
		Prior:       r.priorCopy(),
	}
	out, err := r.p.call(r.ctx, req)

	if r.stopped() {
		log.Printf("Discarding %s output after cancellation", st.Name)
		return r.settle(i, st, StatusCancelled, &StageFailedError{Stage: st.Name, Cause: ErrCancelled}, nil, nil)
	}
	if err != nil {
		ferr := &StageFailedError{Stage: st.Name, Cause: err}
		log.Printf("Analysis %v", ferr)
		return r.settle(i, st, StatusFailed, ferr, nil, nil)
	}

	r.prior[st.Name] = out
	entities := st.Merge(out, MergeContext{Page: r.in.Page, Scale: r.in.Scale()})
	for j := range entities {
		entities[j].Stage = st.Name
		entities[j].Source = annotation.SourceDetected
	}
	ids := r.p.store.AddAll(entities)
	return r.settle(i, st, StatusSucceeded, nil, ids, &out)
}

func (r *Run) settle(i int, st Stage, status Status, err error, ids []string, out *Output) StageResult {
	r.mu.Lock()
	s := &r.statuses[i]
	s.Status = status
	s.Finished = time.Now()
	s.Merged = len(ids)
	if err != nil {
		s.Error = err.Error()
	}
	if status != StatusCancelled {
		r.settled++
	}
	progress := float64(r.settled) / float64(len(r.statuses))
	r.mu.Unlock()

	return StageResult{
		Stage:    st.Name,
		Index:    i,
		Status:   status,
		Err:      err,
		Progress: progress,
		Merged:   ids,
		Output:   out,
	}
}

func (r *Run) setStatus(i int, fn func(*StageStatus)) {
	r.mu.Lock()
	fn(&r.statuses[i])
	r.mu.Unlock()
}

func (r *Run) priorCopy() map[string]Output {
	if len(r.prior) == 0 {
		return nil
	}
	m := make(map[string]Output, len(r.prior))
	for k, v := range r.prior {
		m[k] = v
	}
	return m
}

// call submits one stage and polls it to completion. There is no retry.
func (p *Pipeline) call(ctx context.Context, req Request) (Output, error) {
	h, err := p.svc.Analyze(ctx, req)
	if err != nil {
		return Output{}, fmt.Errorf("submit: %w", err)
	}
	for attempt := 1; attempt <= p.cfg.PollAttempts; attempt++ {
		pr, err := p.svc.PollStatus(ctx, h)
		if err != nil {
			return Output{}, fmt.Errorf("poll: %w", err)
		}
		switch pr.Status {
		case OpSucceeded:
			return ParseOutput(pr.Result)
		case OpFailed:
			if pr.Error == "" {
				pr.Error = "operation failed"
			}
			return Output{}, errors.New(pr.Error)
		case OpRunning, "":
		default:
			return Output{}, fmt.Errorf("%w: status %q", ErrUnrecognizedResponse, pr.Status)
		}
		if attempt == p.cfg.PollAttempts {
			break
		}
		if err := wait(ctx, p.cfg.PollInterval); err != nil {
			return Output{}, err
		}
	}
	return Output{}, fmt.Errorf("%w after %d attempts", ErrPollTimeout, p.cfg.PollAttempts)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
