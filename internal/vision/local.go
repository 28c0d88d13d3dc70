package vision

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/detection"
	"github.com/ironsheep/blueprint-mcp/internal/imaging"
	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
)

// ErrUnknownOperation is returned when polling an ID the service never
// issued or has already forgotten.
var ErrUnknownOperation = errors.New("unknown operation")

const (
	// DefaultOperationTimeout bounds how long one local analysis may run.
	DefaultOperationTimeout = 5 * time.Minute

	// DefaultResultTTL is how long a finished operation waits to be polled
	// before it is dropped.
	DefaultResultTTL = 10 * time.Minute
)

// Fetcher reads a drawing by URL.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// LocalOptions tunes the built-in detectors.
type LocalOptions struct {
	Walls    detection.WallOptions
	Openings detection.OpeningOptions
	Rooms    detection.RoomOptions
	Symbols  detection.SymbolOptions
	// MinMarkupArea is the smallest coloured area reported by analyze-colors.
	MinMarkupArea int
	// MinTextConfidence filters detect-layout text blocks.
	MinTextConfidence float64
	Timeout           time.Duration
	// ResultTTL bounds how long an uncollected result is kept, for
	// operations whose caller gave up polling.
	ResultTTL time.Duration
}

// DefaultLocalOptions returns the detector defaults.
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{
		Walls:             detection.DefaultWallOptions(),
		Openings:          detection.DefaultOpeningOptions(),
		Rooms:             detection.DefaultRoomOptions(),
		Symbols:           detection.DefaultSymbolOptions(),
		MinMarkupArea:     200,
		MinTextConfidence: 0.3,
		Timeout:           DefaultOperationTimeout,
		ResultTTL:         DefaultResultTTL,
	}
}

// wireOutput keeps empty arrays in the encoded result; an operation that
// found nothing still answers with "lines": [] or "regions": [].
type wireOutput struct {
	Lines   []pipeline.Line   `json:"lines"`
	Regions []pipeline.Region `json:"regions"`
}

type operation struct {
	stage  string
	status pipeline.OpStatus
	result json.RawMessage
	err    string
}

// LocalService analyzes drawings in-process. Each submission runs in its
// own goroutine; finished operations are forgotten once polled, or after
// ResultTTL if nobody polls them.
type LocalService struct {
	opts  LocalOptions
	cache *imaging.DrawingCache
	fetch Fetcher

	mu   sync.Mutex
	ops  map[string]*operation
	next int
}

// NewLocalService creates a service. cache may be shared with the session
// so the drawing is decoded once; fetch resolves requests that carry only a
// URL.
func NewLocalService(opts LocalOptions, cache *imaging.DrawingCache, fetch Fetcher) *LocalService {
	if cache == nil {
		cache = imaging.NewDrawingCache()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOperationTimeout
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	return &LocalService{
		opts:  opts,
		cache: cache,
		fetch: fetch,
		ops:   make(map[string]*operation),
	}
}

// Analyze implements pipeline.Service.
func (s *LocalService) Analyze(ctx context.Context, req pipeline.Request) (pipeline.Handle, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Handle{}, err
	}
	analyze, ok := analyzers[req.Stage]
	if !ok {
		return pipeline.Handle{}, fmt.Errorf("unknown stage %q", req.Stage)
	}

	s.mu.Lock()
	s.next++
	id := fmt.Sprintf("local-%d", s.next)
	op := &operation{stage: req.Stage, status: pipeline.OpRunning}
	s.ops[id] = op
	s.mu.Unlock()

	go s.run(id, op, analyze, req)
	return pipeline.Handle{ID: id, Stage: req.Stage}, nil
}

func (s *LocalService) run(id string, op *operation, analyze analyzer, req pipeline.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	var result json.RawMessage
	in, err := s.input(ctx, req)
	if err == nil {
		var out pipeline.Output
		out, err = analyze(ctx, in)
		if err == nil {
			result, err = json.Marshal(wireOutput(out))
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	if err != nil {
		log.Printf("%s (%s) failed: %v", id, op.stage, err)
		op.status, op.err = pipeline.OpFailed, err.Error()
	} else {
		op.status, op.result = pipeline.OpSucceeded, result
	}
	s.mu.Unlock()

	time.AfterFunc(s.opts.ResultTTL, func() { s.forget(id, op) })
}

// forget drops op if it is still waiting to be collected.
func (s *LocalService) forget(id string, op *operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops[id] == op {
		log.Printf("%s (%s) expired without being collected", id, op.stage)
		delete(s.ops, id)
	}
}

// PollStatus implements pipeline.Service.
func (s *LocalService) PollStatus(ctx context.Context, h pipeline.Handle) (pipeline.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.PollResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[h.ID]
	if !ok {
		return pipeline.PollResult{}, fmt.Errorf("%w: %s", ErrUnknownOperation, h.ID)
	}
	if op.status != pipeline.OpRunning {
		delete(s.ops, h.ID)
	}
	return pipeline.PollResult{Status: op.status, Result: op.result, Error: op.err}, nil
}

// Pending returns the number of operations not yet collected.
func (s *LocalService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}

func (s *LocalService) input(ctx context.Context, req pipeline.Request) (*input, error) {
	key := req.URL
	if len(req.Document) > 0 && key == "" {
		key = fmt.Sprintf("inline:%x", sha256.Sum256(req.Document))
	}
	if key == "" {
		return nil, errors.New("request carries neither a document nor a URL")
	}

	d, err := s.cache.Load(key, 0, func() ([]byte, error) {
		if len(req.Document) > 0 {
			return req.Document, nil
		}
		if s.fetch == nil {
			return nil, fmt.Errorf("no fetcher for %s", req.URL)
		}
		return s.fetch(ctx, req.URL)
	})
	if err != nil {
		return nil, err
	}
	if _, err := d.PageSize(req.Page); err != nil {
		return nil, err
	}
	return &input{opts: s.opts, drawing: d, req: req}, nil
}

// input is what an analyzer sees. The raster and masks are derived lazily
// because text extraction from a PDF never needs them.
type input struct {
	opts    LocalOptions
	drawing *imaging.Drawing
	req     pipeline.Request

	img   image.Image
	mask  *detection.Mask
	walls []detection.Wall
}

func (in *input) image() (image.Image, error) {
	if in.img == nil {
		img, err := in.drawing.Page(in.req.Page)
		if err != nil {
			return nil, err
		}
		in.img = img
	}
	return in.img, nil
}

func (in *input) inkMask() (*detection.Mask, error) {
	if in.mask == nil {
		img, err := in.image()
		if err != nil {
			return nil, err
		}
		in.mask = detection.InkMask(img, 0)
	}
	return in.mask, nil
}

func (in *input) wallList() ([]detection.Wall, error) {
	if in.walls == nil {
		m, err := in.inkMask()
		if err != nil {
			return nil, err
		}
		in.walls = detection.DetectWalls(m, in.opts.Walls)
	}
	return in.walls, nil
}

func (in *input) prior(stage string) (pipeline.Output, bool) {
	out, ok := in.req.Prior[stage]
	return out, ok
}
