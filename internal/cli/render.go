package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	slides      string   // comma-separated slide names or indices
	events      []string // events applied to each slide, in order
	formats     string   // comma-separated output formats
	output      string   // output directory
	width       float64  // canvas width in pixels
	height      float64  // canvas height in pixels
	animate     bool     // keep enter/update/exit transitions as SMIL
	interactive bool     // embed hover script
	scale       float64  // PNG scale factor
	noCache     bool     // bypass the cache entirely
	refresh     bool     // re-render and overwrite cached entries
}

// renderCommand creates the render command, which writes slides as files.
//
// Every selected slide is rendered after applying --event in order. Events a
// slide does not accept are skipped with a warning when several slides are
// rendered; with a single slide they are errors.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render slides to SVG, PNG or PDF",
		Long: `Render slides to files named NN-slide.FORMAT.

Events use the form kind=value and are applied in order:
  metric=math     switch the measured score
  sort=average    sort categories (sort=none restores the data order)
  toggle=reading  hide or show one series`,
		Example: `  scoreslides render
  scoreslides render --slide gender --event metric=math -f svg,png
  scoreslides render --slide race --event toggle=writing --animate -o out/`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			cfg := c.Config.Render
			if !cmd.Flags().Changed("width") {
				opts.width = cfg.Width
			}
			if !cmd.Flags().Changed("height") {
				opts.height = cfg.Height
			}
			if !cmd.Flags().Changed("scale") {
				opts.scale = cfg.Scale
			}
			if !cmd.Flags().Changed("animate") {
				opts.animate = cfg.Animate
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.slides, "slide", "s", "", "slide names or indices, comma-separated (default all)")
	cmd.Flags().StringArrayVarP(&opts.events, "event", "e", nil, "event to apply before rendering (repeatable)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: svg, png, pdf (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().Float64Var(&opts.width, "width", pipeline.DefaultWidth, "canvas width")
	cmd.Flags().Float64Var(&opts.height, "height", pipeline.DefaultHeight, "canvas height")
	cmd.Flags().BoolVar(&opts.animate, "animate", false, "keep transitions as SVG animations")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "embed hover tooltips in SVG output")
	cmd.Flags().Float64Var(&opts.scale, "scale", pipeline.DefaultScale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"svg", "png", "pdf"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// pipelineOptions converts flags into pipeline options.
func (c *CLI) pipelineOptions(opts renderOpts) pipeline.Options {
	formats := parseList(opts.formats)
	if len(formats) == 0 {
		formats = c.Config.Render.Formats
	}
	selected := parseList(opts.slides)
	return pipeline.Options{
		Slides:      selected,
		Events:      opts.events,
		Width:       opts.width,
		Height:      opts.height,
		Duration:    c.Config.Render.Duration,
		Animate:     opts.animate,
		Interactive: opts.interactive,
		Strict:      len(selected) == 1,
		Formats:     formats,
		Scale:       opts.scale,
		TTL:         c.Config.Cache.TTL,
		Refresh:     opts.refresh,
		Logger:      c.Logger,
	}
}

// runRender loads the records, renders the selected slides and writes one
// file per slide and format.
func (c *CLI) runRender(ctx context.Context, opts renderOpts) error {
	popts := c.pipelineOptions(opts)
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	src, err := c.Config.Data.RecordSource()
	if err != nil {
		return err
	}
	store, err := runner.Load(ctx, src)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Rendering slides...")
	spinner.Start()
	result, err := runner.Execute(ctx, store, popts)
	spinner.Stop()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.output, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var written int
	for _, f := range result.Frames {
		printStats(f.Slide, len(popts.Formats), len(f.Skipped), f.CacheHit)
		for _, ev := range f.Skipped {
			printWarning("%s does not support %s, skipped", f.Slide, ev)
		}
		for _, format := range popts.Formats {
			path := filepath.Join(opts.output, f.FileName(format))
			if err := os.WriteFile(path, f.Artifacts[format], 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printFile(path)
			written++
		}
	}

	printNewline()
	printSuccess("Wrote %d files for %d slides (%d cached)", written, len(result.Frames), result.Stats.CacheHits)
	return nil
}
