// Package pipeline renders slides to files.
//
// This package implements the load → render → convert pipeline behind
// "scoreslides render". Interactive presenters drive a [slides.Deck]
// directly; the pipeline is for batch output.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read records from a [dataset.Source] into a Store
//  2. Render: Build each selected slide on a fresh scene, apply the
//     requested events and take an SVG frame
//  3. Convert: Turn frames into PNG or PDF with rsvg-convert
//
// Frames and converted artifacts are cached separately, keyed by everything
// that affects them (see [cache.Keyer]).
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	store, err := runner.Load(ctx, dataset.CSVSource{Path: "scores.csv"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Execute(ctx, store, pipeline.Options{
//	    Slides:  []string{"gender"},
//	    Events:  []string{"metric=math"},
//	    Formats: []string{"svg", "png"},
//	})
//	svg := result.Frames[0].Artifacts["svg"]
//
// [slides.Deck]: github.com/matzehuels/scoreslides/pkg/slides.Deck
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scoreslides/pkg/cache"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/render"
	"github.com/matzehuels/scoreslides/pkg/surface"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default frame width in pixels.
	DefaultWidth = float64(surface.DefaultWidth)

	// DefaultHeight is the default frame height in pixels.
	DefaultHeight = float64(surface.DefaultHeight)

	// DefaultScale is the PNG scale factor.
	DefaultScale = 1.0

	// DefaultTTL is how long frames and artifacts stay cached.
	DefaultTTL = 7 * 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG = render.FormatSVG
	FormatPNG = render.FormatPNG
	FormatPDF = render.FormatPDF
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a render run.
type Options struct {
	// Slides selects slides by name or zero-based index. Empty means all.
	Slides []string `json:"slides,omitempty"`
	// Events are applied to every selected slide in order, in the textual
	// form accepted by view.Parse ("metric=math", "toggle=reading").
	Events []string `json:"events,omitempty"`

	Width    float64       `json:"width,omitempty"`
	Height   float64       `json:"height,omitempty"`
	Duration time.Duration `json:"duration,omitempty"` // 0 keeps each chart's duration
	// Animate takes the frame right after the last event with SMIL
	// animations for transitions in flight. Otherwise frames are settled.
	Animate     bool `json:"animate,omitempty"`
	Interactive bool `json:"interactive,omitempty"`

	// Strict fails on events a slide does not support instead of
	// skipping them.
	Strict bool `json:"strict,omitempty"`

	Formats []string      `json:"formats,omitempty"`
	Scale   float64       `json:"scale,omitempty"`
	TTL     time.Duration `json:"ttl,omitempty"`
	Refresh bool          `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a render run.
type Result struct {
	// Frames holds one entry per selected slide, in deck order.
	Frames []Frame

	// Stats contains timing information.
	Stats Stats
}

// Frame is the output of one slide.
type Frame struct {
	Index int
	Slide string
	Title string

	// Hash is the content hash of the SVG.
	Hash string

	// Artifacts contains outputs keyed by format.
	Artifacts map[string][]byte

	// Skipped lists events the slide's chart does not support.
	Skipped []string

	// CacheHit reports whether the SVG came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records    int
	RenderTime time.Duration
	CacheHits  int
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and fills in defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "invalid size %gx%g", o.Width, o.Height)
	}
	if o.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative duration %v", o.Duration)
	}
	if o.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative scale %g", o.Scale)
	}
	return ValidateFormats(o.Formats)
}

// FrameKeyOpts returns cache key options for the frame of one slide.
func (o *Options) FrameKeyOpts(slide, version string) cache.FrameKeyOpts {
	return cache.FrameKeyOpts{
		Slide:       slide,
		Events:      o.Events,
		Width:       o.Width,
		Height:      o.Height,
		Duration:    o.Duration,
		Animate:     o.Animate,
		Interactive: o.Interactive,
		Strict:      o.Strict,
		Version:     version,
	}
}

// ArtifactKeyOpts returns cache key options for a converted artifact.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format == FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}

// FileName returns the output file name for a frame and format, for example
// "01-gender.svg".
func (f Frame) FileName(format string) string {
	return fmt.Sprintf("%02d-%s.%s", f.Index, f.Slide, format)
}
