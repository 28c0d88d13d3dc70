package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/blueprint-mcp/internal/annotation"
	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

// fakeService answers each stage from a table. A stage listed in fail
// returns a failed operation; one listed in hang never leaves running.
type fakeService struct {
	mu        sync.Mutex
	results   map[string]string
	fail      map[string]bool
	hang      map[string]bool
	submitErr map[string]error
	polls     map[string]int
	requests  []Request
	// afterAnalyze runs after each submission.
	afterAnalyze func(stage string)
}

func newFake() *fakeService {
	return &fakeService{
		results:   make(map[string]string),
		fail:      make(map[string]bool),
		hang:      make(map[string]bool),
		submitErr: make(map[string]error),
		polls:     make(map[string]int),
	}
}

func (f *fakeService) Analyze(ctx context.Context, req Request) (Handle, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	err := f.submitErr[req.Stage]
	f.mu.Unlock()
	if f.afterAnalyze != nil {
		f.afterAnalyze(req.Stage)
	}
	if err != nil {
		return Handle{}, err
	}
	return Handle{ID: "op-" + req.Stage, Stage: req.Stage}, nil
}

func (f *fakeService) PollStatus(ctx context.Context, h Handle) (PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[h.Stage]++
	switch {
	case f.hang[h.Stage]:
		return PollResult{Status: OpRunning}, nil
	case f.fail[h.Stage]:
		return PollResult{Status: OpFailed, Error: "model unavailable"}, nil
	case f.polls[h.Stage] < 2:
		return PollResult{Status: OpRunning}, nil
	}
	return PollResult{Status: OpSucceeded, Result: json.RawMessage(f.results[h.Stage])}, nil
}

func regionsJSON(n int, label string) string {
	type region struct {
		Color       string        `json:"color"`
		BoundingBox geometry.Rect `json:"boundingBox"`
		Confidence  float64       `json:"confidence"`
		Label       string        `json:"label,omitempty"`
	}
	var rs []region
	for i := 0; i < n; i++ {
		rs = append(rs, region{
			Color:       "#FF0000",
			BoundingBox: geometry.Rect{X: float64(i * 50), Y: 10, W: 40, H: 30},
			Confidence:  0.9,
			Label:       label,
		})
	}
	b, _ := json.Marshal(map[string]any{"regions": rs})
	return string(b)
}

func testConfig() Config {
	return Config{PollAttempts: 5, PollInterval: time.Millisecond}
}

func stagesNamed(names ...string) []Stage {
	return StagesFor(names)
}

func statusList(st []StageStatus) []Status {
	out := make([]Status, len(st))
	for i, s := range st {
		out[i] = s.Status
	}
	return out
}

func TestRun_PartialFailure(t *testing.T) {
	svc := newFake()
	svc.results["detect-layout"] = regionsJSON(2, "")
	svc.fail["identify-rooms"] = true
	svc.results["find-openings"] = regionsJSON(3, "door")

	store := annotation.NewStore()
	p := New(svc, store, stagesNamed("detect-layout", "identify-rooms", "find-openings"), testConfig())
	run := p.Start(context.Background(), Input{Document: []byte("png")})

	var results []StageResult
	for res := range run.Results() {
		results = append(results, res)
	}

	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	wantStatus := []Status{StatusSucceeded, StatusFailed, StatusSucceeded}
	if diff := cmp.Diff(wantStatus, statusList(run.Statuses())); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}

	var sfe *StageFailedError
	if !errors.As(results[1].Err, &sfe) || sfe.Stage != "identify-rooms" {
		t.Errorf("stage 2 error: got %v, want StageFailedError for identify-rooms", results[1].Err)
	}

	all := store.All()
	if len(all) != 5 {
		t.Fatalf("entities: got %d, want 5", len(all))
	}
	byStage := make(map[string]int)
	for _, e := range all {
		byStage[e.Stage]++
		if e.Source != annotation.SourceDetected {
			t.Errorf("entity %s source: got %s, want detected", e.ID, e.Source)
		}
	}
	if diff := cmp.Diff(map[string]int{"detect-layout": 2, "find-openings": 3}, byStage); diff != "" {
		t.Errorf("entities by stage (-want +got):\n%s", diff)
	}

	wantProgress := []float64{1.0 / 3, 2.0 / 3, 1}
	for i, res := range results {
		if res.Progress != wantProgress[i] {
			t.Errorf("progress %d: got %v, want %v", i, res.Progress, wantProgress[i])
		}
	}
}

func TestRun_Sequential(t *testing.T) {
	svc := newFake()
	svc.results["extract-text"] = `{"lines":[{"text":"KITCHEN","boundingBox":{"x":1,"y":2,"w":30,"h":8}}]}`
	svc.results["identify-rooms"] = regionsJSON(1, "KITCHEN")

	var order []string
	svc.afterAnalyze = func(stage string) {
		order = append(order, fmt.Sprintf("%s:%d", stage, len(svc.polls)))
	}

	p := New(svc, annotation.NewStore(), stagesNamed("extract-text", "identify-rooms"), testConfig())
	p.Start(context.Background(), Input{}).Wait()

	// identify-rooms is submitted only after extract-text was polled
	if diff := cmp.Diff([]string{"extract-text:0", "identify-rooms:1"}, order); diff != "" {
		t.Errorf("submission order (-want +got):\n%s", diff)
	}

	second := svc.requests[1]
	prior, ok := second.Prior["extract-text"]
	if !ok || len(prior.Lines) != 1 || prior.Lines[0].Text != "KITCHEN" {
		t.Errorf("prior output not passed on: %+v", second.Prior)
	}
}

func TestRun_UnrecognizedResponse(t *testing.T) {
	svc := newFake()
	svc.results["detect-layout"] = `{"pages":[]}`
	p := New(svc, annotation.NewStore(), stagesNamed("detect-layout"), testConfig())
	run := p.Start(context.Background(), Input{})

	var got []StageResult
	for res := range run.Results() {
		got = append(got, res)
	}
	if len(got) != 1 || got[0].Status != StatusFailed {
		t.Fatalf("results: got %+v", got)
	}
	if !errors.Is(got[0].Err, ErrUnrecognizedResponse) {
		t.Errorf("error: got %v, want ErrUnrecognizedResponse", got[0].Err)
	}
}

func TestRun_PollTimeout(t *testing.T) {
	svc := newFake()
	svc.hang["detect-layout"] = true
	svc.results["find-openings"] = regionsJSON(1, "")
	p := New(svc, annotation.NewStore(), stagesNamed("detect-layout", "find-openings"), testConfig())
	statuses := p.Start(context.Background(), Input{}).Wait()

	if statuses[0].Status != StatusFailed || statuses[1].Status != StatusSucceeded {
		t.Errorf("statuses: got %v", statusList(statuses))
	}
	if svc.polls["detect-layout"] != 5 {
		t.Errorf("polls: got %d, want 5", svc.polls["detect-layout"])
	}
}

func TestRun_SubmitError(t *testing.T) {
	svc := newFake()
	svc.submitErr["detect-layout"] = errors.New("connection refused")
	p := New(svc, annotation.NewStore(), stagesNamed("detect-layout"), testConfig())
	statuses := p.Start(context.Background(), Input{}).Wait()
	if statuses[0].Status != StatusFailed {
		t.Errorf("status: got %s, want failed", statuses[0].Status)
	}
	if svc.polls["detect-layout"] != 0 {
		t.Error("a failed submission must not be polled")
	}
}

func TestRun_CancelBetweenStages(t *testing.T) {
	svc := newFake()
	svc.results["detect-layout"] = regionsJSON(2, "")
	svc.results["find-openings"] = regionsJSON(2, "")
	svc.results["detect-symbols"] = regionsJSON(2, "")

	store := annotation.NewStore()
	p := New(svc, store, stagesNamed("detect-layout", "find-openings", "detect-symbols"), testConfig())
	run := p.Start(context.Background(), Input{})

	n := 0
	for range run.Results() {
		n++
		run.Cancel()
	}

	if n != 1 {
		t.Errorf("results after cancel: got %d, want 1", n)
	}
	want := []Status{StatusSucceeded, StatusPending, StatusPending}
	if diff := cmp.Diff(want, statusList(run.Statuses())); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if store.Len() != 2 {
		t.Errorf("entities: got %d, want 2", store.Len())
	}
	if len(svc.requests) != 1 {
		t.Errorf("requests: got %d, want 1", len(svc.requests))
	}
}

func TestRun_CancelDuringStageDiscardsOutput(t *testing.T) {
	svc := newFake()
	svc.results["detect-layout"] = regionsJSON(2, "")
	svc.results["find-openings"] = regionsJSON(2, "")

	store := annotation.NewStore()
	p := New(svc, store, stagesNamed("detect-layout", "find-openings"), testConfig())
	run := p.Start(context.Background(), Input{})
	svc.afterAnalyze = func(stage string) {
		if stage == "find-openings" {
			run.Cancel()
		}
	}

	statuses := run.Wait()
	want := []Status{StatusSucceeded, StatusCancelled}
	if diff := cmp.Diff(want, statusList(statuses)); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}
	if store.Len() != 2 {
		t.Errorf("entities: got %d, want 2 from the first stage only", store.Len())
	}
}

func TestRun_NotRestartable(t *testing.T) {
	svc := newFake()
	svc.results["detect-layout"] = regionsJSON(1, "")
	p := New(svc, annotation.NewStore(), stagesNamed("detect-layout"), testConfig())
	run := p.Start(context.Background(), Input{})
	run.Wait()

	n := 0
	for range run.Results() {
		n++
	}
	if n != 0 {
		t.Errorf("second iteration yielded %d results", n)
	}
	select {
	case <-run.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	svc := newFake()
	svc.hang["detect-layout"] = true
	ctx, cancel := context.WithCancel(context.Background())
	p := New(svc, annotation.NewStore(), stagesNamed("detect-layout", "find-openings"),
		Config{PollAttempts: 1000, PollInterval: 10 * time.Millisecond})
	run := p.Start(ctx, Input{})
	svc.afterAnalyze = func(string) { cancel() }

	statuses := run.Wait()
	if statuses[0].Status != StatusCancelled || statuses[1].Status != StatusPending {
		t.Errorf("statuses: got %v", statusList(statuses))
	}
}
