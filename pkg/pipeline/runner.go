package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scoreslides/pkg/buildinfo"
	"github.com/matzehuels/scoreslides/pkg/cache"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/observability"
	"github.com/matzehuels/scoreslides/pkg/slides"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Deck builds the slide list for a store. Defaults to slides.Default.
	Deck func(store *dataset.Store, opts Options) []slides.Slide
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Deck:   defaultDeck,
	}
}

// Load reads and validates all records of src.
func (r *Runner) Load(ctx context.Context, src dataset.Source) (*dataset.Store, error) {
	start := time.Now()
	store, err := dataset.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("loaded records",
		"source", src.Name(),
		"records", store.Len(),
		"duration", time.Since(start))
	return store, nil
}

// Execute renders every selected slide in every requested format.
func (r *Runner) Execute(ctx context.Context, store *dataset.Store, opts Options) (*Result, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeEmptyDataset, "no records loaded")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	deck := r.Deck(store, opts)
	indices, err := selectSlides(deck, opts.Slides)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{Stats: Stats{Records: store.Len()}}
	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := r.RenderSlide(ctx, store, deck, i, opts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", deck[i].Name, err)
		}
		if frame.CacheHit {
			result.Stats.CacheHits++
		}
		result.Frames = append(result.Frames, frame)
	}
	result.Stats.RenderTime = time.Since(start)

	r.Logger.Info("rendered slides",
		"slides", len(result.Frames),
		"formats", opts.Formats,
		"cached", result.Stats.CacheHits,
		"duration", result.Stats.RenderTime)
	return result, nil
}

// RenderSlide renders slide i of deck, using cached frames and artifacts
// where possible. Frames that skipped events are not cached, so every render
// reports them.
func (r *Runner) RenderSlide(ctx context.Context, store *dataset.Store, deck []slides.Slide, i int, opts Options) (frame Frame, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Frame{}, err
	}
	s := deck[i]
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, s.Name, opts.Formats)
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, s.Name, opts.Formats, time.Since(start), err)
	}()

	frame = Frame{Index: i, Slide: s.Name, Title: s.Title, Artifacts: make(map[string][]byte)}

	frameKey := r.Keyer.FrameKey(store.Fingerprint(), opts.FrameKeyOpts(s.Name, buildinfo.Version))
	svg, hit := r.lookup(ctx, frameKey, "frame", opts.Refresh)
	if !hit {
		svg, frame.Skipped, err = renderFrame(deck, i, opts)
		if err != nil {
			return Frame{}, err
		}
		if len(frame.Skipped) == 0 {
			r.store(ctx, frameKey, "frame", svg, opts.TTL)
		}
	}
	frame.CacheHit = hit
	frame.Hash = cache.Hash(svg)
	for _, ev := range frame.Skipped {
		opts.Logger.Warn("event not supported by slide", "slide", s.Name, "event", ev)
	}

	for _, format := range opts.Formats {
		if format == FormatSVG {
			frame.Artifacts[format] = svg
			continue
		}
		key := r.Keyer.ArtifactKey(frame.Hash, opts.ArtifactKeyOpts(format))
		data, hit := r.lookup(ctx, key, format, opts.Refresh)
		if !hit {
			data, err = convert(ctx, svg, format, opts.Scale)
			if err != nil {
				return Frame{}, err
			}
			r.store(ctx, key, format, data, opts.TTL)
		}
		frame.Artifacts[format] = data
	}

	opts.Logger.Debug("rendered slide",
		"slide", s.Name,
		"cached", frame.CacheHit,
		"bytes", len(svg))
	return frame, nil
}

// lookup reads key from the cache. Cache failures count as misses.
func (r *Runner) lookup(ctx context.Context, key, keyType string, refresh bool) ([]byte, bool) {
	if refresh {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

// store writes data to the cache. Failures are logged, not returned.
func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// selectSlides resolves names or indices to deck positions in deck order.
func selectSlides(deck []slides.Slide, names []string) ([]int, error) {
	if len(names) == 0 {
		all := make([]int, len(deck))
		for i := range deck {
			all[i] = i
		}
		return all, nil
	}

	picked := make([]bool, len(deck))
	for _, name := range names {
		i, ok := findSlide(deck, name)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "unknown slide %q", name)
		}
		picked[i] = true
	}
	var out []int
	for i, ok := range picked {
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func findSlide(deck []slides.Slide, name string) (int, bool) {
	if n, err := strconv.Atoi(name); err == nil {
		return n, n >= 0 && n < len(deck)
	}
	return slides.Find(deck, name)
}
