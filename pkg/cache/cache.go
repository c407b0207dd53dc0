// Package cache stores rendered slide artifacts.
//
// # Overview
//
// Rendering a slide is a pure function of the dataset, the slide, the events
// applied to it and the output options. The pipeline therefore caches two
// stages:
//
//   - Frames: the SVG document of a slide after a sequence of events.
//   - Artifacts: PNG or PDF conversions of a frame.
//
// Keys come from a [Keyer], which hashes every input that affects the output.
//
// # Backends
//
//   - [NullCache]: never stores anything (--no-cache).
//   - [FileCache]: JSON entries under the user cache directory.
//   - [RedisCache]: shared cache for several presenters.
//
// All backends implement [Cache]; FileCache and RedisCache also implement
// [Clearer].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss, not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// FrameKeyOpts are the inputs of a rendered frame besides the dataset.
type FrameKeyOpts struct {
	Slide       string        `json:"slide"`
	Events      []string      `json:"events,omitempty"`
	Width       float64       `json:"width"`
	Height      float64       `json:"height"`
	Duration    time.Duration `json:"duration,omitempty"`
	Animate     bool          `json:"animate,omitempty"`
	Interactive bool          `json:"interactive,omitempty"`
	Strict      bool          `json:"strict,omitempty"`
	Version     string        `json:"version,omitempty"`
}

// ArtifactKeyOpts are the inputs of a converted artifact besides its frame.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// FrameKey identifies the SVG of a slide rendered from the dataset with
	// the given fingerprint.
	FrameKey(datasetHash string, opts FrameKeyOpts) string
	// ArtifactKey identifies the conversion of the frame with the given hash.
	ArtifactKey(frameHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FrameKey returns "frame:<hash>".
func (DefaultKeyer) FrameKey(datasetHash string, opts FrameKeyOpts) string {
	return hashKey("frame", datasetHash, opts)
}

// ArtifactKey returns "artifact:<format>:<hash>".
func (DefaultKeyer) ArtifactKey(frameHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, frameHash, opts)
}
