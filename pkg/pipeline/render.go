package pipeline

import (
	"time"

	"github.com/matzehuels/scoreslides/pkg/chart"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/render"
	"github.com/matzehuels/scoreslides/pkg/slides"
	"github.com/matzehuels/scoreslides/pkg/surface"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// epoch is the fixed clock of batch rendering, so equal inputs give
// byte-identical frames.
var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// settle is long enough for every chart transition to finish.
const settle = time.Minute

// convert is swapped out in tests.
var convert = render.Convert

// ChartOptions returns the chart options for a batch render.
func ChartOptions(opts Options) []chart.Option {
	chartOpts := []chart.Option{
		chart.WithSize(opts.Width, opts.Height),
		chart.WithClock(func() time.Time { return epoch }),
	}
	if opts.Duration > 0 {
		chartOpts = append(chartOpts, chart.WithDuration(opts.Duration))
	}
	return chartOpts
}

func defaultDeck(store *dataset.Store, opts Options) []slides.Slide {
	return slides.Default(store, ChartOptions(opts)...)
}

// renderFrame builds slide i on a fresh scene, applies the events and
// returns the SVG along with the events the chart rejected.
func renderFrame(deck []slides.Slide, i int, opts Options) ([]byte, []string, error) {
	s := deck[i]
	if s.New == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "slide %q has no chart", s.Name)
	}
	scene := surface.NewScene(opts.Width, opts.Height, surface.WithLayerOrder(chart.LayerOrder...))

	c, err := s.New()
	if err != nil {
		return nil, nil, err
	}
	defer c.Dispose()
	if err := c.Activate(scene); err != nil {
		return nil, nil, err
	}

	var skipped []string
	for _, raw := range opts.Events {
		ev, err := view.Parse(raw)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := ev.(view.SlideAdvance); ok {
			return nil, nil, errors.New(errors.ErrCodeInvalidInput, "event %q: select slides instead", raw)
		}
		if err := c.Handle(ev); err != nil {
			if opts.Strict || !errors.IsContractViolation(err) {
				return nil, nil, err
			}
			skipped = append(skipped, raw)
		}
	}

	now := epoch.Add(settle)
	svgOpts := []surface.SVGOption{surface.WithTitle(c.Title())}
	if opts.Animate {
		now = epoch
		svgOpts = append(svgOpts, surface.WithAnimation())
	}
	if opts.Interactive {
		svgOpts = append(svgOpts, surface.WithInteraction())
	}
	return scene.SVG(now, svgOpts...), skipped, nil
}
