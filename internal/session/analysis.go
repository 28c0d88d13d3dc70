package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ironsheep/blueprint-mcp/internal/imaging"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
)

// analysis is the state of the current or last run.
type analysis struct {
	id     int
	run    *pipeline.Run
	stages []string
	cancel context.CancelFunc
}

// AnalysisStatus is the per-stage status list of a run.
type AnalysisStatus struct {
	Run       int                    `json:"run"`
	Running   bool                   `json:"running"`
	Cancelled bool                   `json:"cancelled,omitempty"`
	Progress  float64                `json:"progress"`
	Stages    []pipeline.StageStatus `json:"stages"`
}

// Progress reports one settled stage.
type Progress struct {
	Run    int
	Total  int
	Result pipeline.StageResult
}

// ProgressFunc receives each settled stage of a run. It is called on the
// run's goroutine.
type ProgressFunc func(Progress)

// RunAnalysis starts the analysis pipeline on the current page in the
// background. An empty stage list uses the configured stages. Results are
// merged into the store as each stage settles; progress, when not nil, is
// told about every settled stage.
func (s *Session) RunAnalysis(stages []string, progress ProgressFunc) (AnalysisStatus, error) {
	if len(stages) == 0 {
		stages = s.cfg.Pipeline.Stages
	}
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		if strings.TrimSpace(st) == "" || seen[st] {
			return AnalysisStatus{}, fmt.Errorf("invalid stage list %q", stages)
		}
		seen[st] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drawing == nil {
		return AnalysisStatus{}, ErrNoDrawing
	}
	if a := s.analysis; a != nil && !isDone(a.run) {
		return AnalysisStatus{}, ErrAnalysisRunning
	}

	p := pipeline.New(s.svc, s.store, pipeline.StagesFor(stages), s.cfg.PipelineConfig())
	ctx, cancel := context.WithCancel(context.Background())
	id := 1
	if s.analysis != nil {
		id = s.analysis.id + 1
	}
	a := &analysis{
		id:     id,
		run:    p.Start(ctx, s.inputLocked()),
		stages: p.Stages(),
		cancel: cancel,
	}
	s.analysis = a

	go func() {
		defer cancel()
		for res := range a.run.Results() {
			if progress != nil {
				progress(Progress{Run: a.id, Total: len(a.stages), Result: res})
			}
		}
		log.Printf("Analysis run %d finished", a.id)
	}()
	return statusOf(a), nil
}

// CancelAnalysis stops the current run before its next stage. It reports
// whether a run was active.
func (s *Session) CancelAnalysis() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

func (s *Session) cancelLocked() bool {
	a := s.analysis
	if a == nil || isDone(a.run) {
		return false
	}
	a.run.Cancel()
	a.cancel()
	return true
}

// AnalysisStatus reports the current or last run.
func (s *Session) AnalysisStatus() (AnalysisStatus, bool) {
	s.mu.Lock()
	a := s.analysis
	s.mu.Unlock()
	if a == nil {
		return AnalysisStatus{}, false
	}
	return statusOf(a), true
}

// WaitAnalysis blocks until the current run ends or ctx is done.
func (s *Session) WaitAnalysis(ctx context.Context) (AnalysisStatus, error) {
	s.mu.Lock()
	a := s.analysis
	s.mu.Unlock()
	if a == nil {
		return AnalysisStatus{}, fmt.Errorf("no analysis has been started")
	}
	select {
	case <-a.run.Done():
		return statusOf(a), nil
	case <-ctx.Done():
		return statusOf(a), ctx.Err()
	}
}

func statusOf(a *analysis) AnalysisStatus {
	return AnalysisStatus{
		Run:       a.id,
		Running:   !isDone(a.run),
		Cancelled: a.run.Cancelled(),
		Progress:  a.run.Progress(),
		Stages:    a.run.Statuses(),
	}
}

func isDone(r *pipeline.Run) bool {
	select {
	case <-r.Done():
		return true
	default:
		return false
	}
}

// inputLocked describes the current page for the analysis service. Local
// paths travel as bytes; remote URLs are passed through for the service to
// fetch itself.
func (s *Session) inputLocked() pipeline.Input {
	d := s.drawing
	in := pipeline.Input{
		URL:         d.Source,
		ContentType: contentType(d.Format),
		Page:        s.page,
		Language:    s.cfg.Pipeline.Language,
		Scale:       s.Converter,
	}
	if !isRemote(d.Source) {
		in.Document = d.Data
	}
	return in
}

func isRemote(url string) bool {
	u := strings.ToLower(url)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func contentType(f imaging.Format) string {
	if f == imaging.FormatPDF {
		return "application/pdf"
	}
	return "image/" + string(f)
}
