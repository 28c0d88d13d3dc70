package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/blueprint-mcp/internal/geometry"
)

var (
	// ErrUnrecognizedResponse is the cause when a stage result contains
	// neither lines nor regions.
	ErrUnrecognizedResponse = errors.New("unrecognized response")

	// ErrPollTimeout is the cause when polling exhausts its attempts.
	ErrPollTimeout = errors.New("poll attempts exhausted")

	// ErrCancelled is the cause recorded for a stage whose output was
	// discarded because the run was cancelled.
	ErrCancelled = errors.New("analysis cancelled")
)

// OpStatus is the state of a remote operation.
type OpStatus string

const (
	OpRunning   OpStatus = "running"
	OpSucceeded OpStatus = "succeeded"
	OpFailed    OpStatus = "failed"
)

// Request is one stage submission.
type Request struct {
	Stage       string            `json:"stage"`
	Document    []byte            `json:"document,omitempty"`
	URL         string            `json:"url,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Page        int               `json:"page"`
	Language    string            `json:"language,omitempty"`
	Prior       map[string]Output `json:"prior,omitempty"`
}

// Handle identifies a submitted operation.
type Handle struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

// PollResult is the answer to a status poll.
type PollResult struct {
	Status OpStatus        `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Service is the vision/document analysis collaborator.
type Service interface {
	Analyze(ctx context.Context, req Request) (Handle, error)
	PollStatus(ctx context.Context, h Handle) (PollResult, error)
}

// Box is a bounding box in document pixels. It decodes from an object
// {"x","y","w","h"}, a four-number array [x, y, w, h] or a polygon of
// eight or more numbers [x1, y1, x2, y2, ...].
type Box geometry.Rect

// UnmarshalJSON implements json.Unmarshaler.
func (b *Box) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var nums []float64
		if err := json.Unmarshal(data, &nums); err != nil {
			return err
		}
		switch {
		case len(nums) == 4:
			*b = Box{X: nums[0], Y: nums[1], W: nums[2], H: nums[3]}
		case len(nums) >= 8 && len(nums)%2 == 0:
			*b = polygonBounds(nums)
		default:
			return fmt.Errorf("bounding box with %d numbers", len(nums))
		}
		return nil
	}
	var r geometry.Rect
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*b = Box(geometry.RectFromDrag(geometry.Pt(r.X, r.Y), geometry.Pt(r.X+r.W, r.Y+r.H)))
	return nil
}

// Rect returns b as a geometry.Rect.
func (b Box) Rect() geometry.Rect {
	return geometry.Rect(b)
}

func polygonBounds(nums []float64) Box {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(nums); i += 2 {
		minX = math.Min(minX, nums[i])
		maxX = math.Max(maxX, nums[i])
		minY = math.Min(minY, nums[i+1])
		maxY = math.Max(maxY, nums[i+1])
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Line is a recognized line of text.
type Line struct {
	Text        string  `json:"text"`
	BoundingBox Box     `json:"boundingBox"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// Region is a detected area.
type Region struct {
	Color       string  `json:"color,omitempty"`
	BoundingBox Box     `json:"boundingBox"`
	Confidence  float64 `json:"confidence"`
	Label       string  `json:"label,omitempty"`
}

// Output is a parsed stage result.
type Output struct {
	Lines   []Line   `json:"lines,omitempty"`
	Regions []Region `json:"regions,omitempty"`
}

// Texts returns the text of every line.
func (o Output) Texts() []string {
	out := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, l.Text)
	}
	return out
}

// ParseOutput decodes a stage result. A result that is not an object with
// a "lines" or "regions" array fails with ErrUnrecognizedResponse.
func ParseOutput(raw json.RawMessage) (Output, error) {
	var probe struct {
		Lines   *[]Line   `json:"lines"`
		Regions *[]Region `json:"regions"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrUnrecognizedResponse, err)
	}
	if probe.Lines == nil && probe.Regions == nil {
		return Output{}, ErrUnrecognizedResponse
	}
	var out Output
	if probe.Lines != nil {
		out.Lines = *probe.Lines
	}
	if probe.Regions != nil {
		out.Regions = *probe.Regions
	}
	return out, nil
}
