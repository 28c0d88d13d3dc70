package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
	"github.com/ironsheep/blueprint-mcp/internal/scale"
	"github.com/ironsheep/blueprint-mcp/internal/tool"
	"github.com/ironsheep/blueprint-mcp/internal/viewport"
)

// Environment variables that override the file.
const (
	EnvLogLevel    = "BLUEPRINT_MCP_LOG_LEVEL"
	EnvStorageRoot = "BLUEPRINT_MCP_STORAGE_ROOT"
	EnvLanguage    = "BLUEPRINT_MCP_LANGUAGE"
	EnvVisionURL   = "BLUEPRINT_MCP_VISION_URL"
	EnvVisionKey   = "BLUEPRINT_MCP_VISION_KEY"
)

// Viewport holds the zoom limits.
type Viewport struct {
	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`
}

// Scale holds the default scale used before calibration.
type Scale struct {
	DefaultUnitsPerPixel float64    `yaml:"default_units_per_pixel"`
	DefaultUnit          scale.Unit `yaml:"default_unit"`
	AssumedDPI           float64    `yaml:"assumed_dpi"`
}

// Tools holds the gesture thresholds.
type Tools struct {
	MinMeasurePx         float64 `yaml:"min_measure_px"`
	MinRectPx            float64 `yaml:"min_rect_px"`
	DefaultCountCategory string  `yaml:"default_count_category"`
	HighlightColor       string  `yaml:"highlight_color"`
	HitTolerance         float64 `yaml:"hit_tolerance"`
}

// Pipeline holds the analysis stage list and polling policy.
type Pipeline struct {
	Stages       []string      `yaml:"stages"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Language     string        `yaml:"language"`
}

// Vision selects the analysis service. An empty endpoint uses the built-in
// local detectors.
type Vision struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// Storage holds the root for relative locations.
type Storage struct {
	Root string `yaml:"root"`
}

// Config is the full configuration.
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Project  string   `yaml:"project"`
	Viewport Viewport `yaml:"viewport"`
	Scale    Scale    `yaml:"scale"`
	Tools    Tools    `yaml:"tools"`
	Pipeline Pipeline `yaml:"pipeline"`
	Vision   Vision   `yaml:"vision"`
	Storage  Storage  `yaml:"storage"`
}

// Default returns the built-in configuration.
func Default() *Config {
	topts := tool.DefaultOptions()
	pcfg := pipeline.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Project:  "Untitled project",
		Viewport: Viewport{
			MinScale: viewport.DefaultMinScale,
			MaxScale: viewport.DefaultMaxScale,
		},
		Scale: Scale{
			DefaultUnitsPerPixel: scale.DefaultUnitsPerPixel(96),
			DefaultUnit:          scale.Feet,
			AssumedDPI:           96,
		},
		Tools: Tools{
			MinMeasurePx:         topts.MinMeasurePx,
			MinRectPx:            topts.MinRectPx,
			DefaultCountCategory: topts.DefaultCategory,
			HighlightColor:       topts.HighlightColor,
			HitTolerance:         topts.HitTolerance,
		},
		Pipeline: Pipeline{
			Stages:       append([]string(nil), pipeline.DefaultStages...),
			PollAttempts: pcfg.PollAttempts,
			PollInterval: pcfg.PollInterval,
			Language:     "eng",
		},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvStorageRoot); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.Pipeline.Language = v
	}
	if v := os.Getenv(EnvVisionURL); v != "" {
		c.Vision.Endpoint = v
	}
	if v := os.Getenv(EnvVisionKey); v != "" {
		c.Vision.APIKey = v
	}
}

// Validate repairs out-of-range values and rejects those that cannot be
// repaired.
func (c *Config) Validate() error {
	d := Default()
	var errs []error

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info":
	case "":
		c.LogLevel = d.LogLevel
	default:
		errs = append(errs, fmt.Errorf("log_level %q: want debug or info", c.LogLevel))
	}

	if c.Viewport.MinScale <= 0 || c.Viewport.MaxScale <= 0 || c.Viewport.MinScale > c.Viewport.MaxScale {
		c.Viewport = d.Viewport
	}

	if c.Scale.DefaultUnitsPerPixel < 0 {
		c.Scale.DefaultUnitsPerPixel = 0
	}
	if c.Scale.DefaultUnit == "" {
		c.Scale.DefaultUnit = d.Scale.DefaultUnit
	} else if u, err := scale.ParseUnit(string(c.Scale.DefaultUnit)); err != nil || !u.IsLength() {
		errs = append(errs, fmt.Errorf("scale.default_unit %q: want feet, inches or meters", c.Scale.DefaultUnit))
	} else {
		c.Scale.DefaultUnit = u
	}
	if c.Scale.AssumedDPI <= 0 {
		c.Scale.AssumedDPI = d.Scale.AssumedDPI
	}

	if c.Tools.MinMeasurePx < 0 {
		c.Tools.MinMeasurePx = d.Tools.MinMeasurePx
	}
	if c.Tools.MinRectPx < 0 {
		c.Tools.MinRectPx = d.Tools.MinRectPx
	}
	if strings.TrimSpace(c.Tools.DefaultCountCategory) == "" {
		c.Tools.DefaultCountCategory = d.Tools.DefaultCountCategory
	}
	if c.Tools.HighlightColor == "" {
		c.Tools.HighlightColor = d.Tools.HighlightColor
	}
	if c.Tools.HitTolerance <= 0 {
		c.Tools.HitTolerance = d.Tools.HitTolerance
	}

	if len(c.Pipeline.Stages) == 0 {
		c.Pipeline.Stages = d.Pipeline.Stages
	}
	seen := make(map[string]bool)
	for _, s := range c.Pipeline.Stages {
		if seen[s] {
			errs = append(errs, fmt.Errorf("pipeline.stages: %q listed twice", s))
		}
		seen[s] = true
	}
	if c.Pipeline.PollAttempts <= 0 {
		c.Pipeline.PollAttempts = d.Pipeline.PollAttempts
	}
	if c.Pipeline.PollInterval < 0 {
		c.Pipeline.PollInterval = d.Pipeline.PollInterval
	}
	if c.Pipeline.Language == "" {
		c.Pipeline.Language = d.Pipeline.Language
	}

	return errors.Join(errs...)
}

// Debug reports whether debug logging is on.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// ToolOptions converts the tools section.
func (c *Config) ToolOptions() tool.Options {
	return tool.Options{
		MinMeasurePx:    c.Tools.MinMeasurePx,
		MinRectPx:       c.Tools.MinRectPx,
		DefaultCategory: c.Tools.DefaultCountCategory,
		HighlightColor:  c.Tools.HighlightColor,
		HitTolerance:    c.Tools.HitTolerance,
	}
}

// PipelineConfig converts the polling policy.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		PollAttempts: c.Pipeline.PollAttempts,
		PollInterval: c.Pipeline.PollInterval,
	}
}
