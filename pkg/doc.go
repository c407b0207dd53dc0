// Package pkg provides the core libraries for scoreslides, a slide deck of
// interactive charts over student exam scores.
//
// # Overview
//
// Every slide is a chart that aggregates the same immutable records, maps the
// results through scales and reconciles its marks against a drawing surface
// whenever the user changes the view. The pkg directory is organized into
// three areas:
//
//  1. Engine - records, aggregation, scales, view state and reconciliation
//  2. Presentation - charts, the slide deck and the retained-mode surface
//  3. Infrastructure - configuration, caching, conversion and the batch pipeline
//
// # Architecture
//
// The data flow of one interaction:
//
//	[dataset] Source (CSV, SQLite, MongoDB)
//	         ↓
//	[aggregate] group means per category
//	         ↓
//	[view] event → new state (metric, sort, visibility, hover)
//	         ↓
//	[scale] band / linear / ordinal mapping
//	         ↓
//	[reconcile] enter / update / exit against the [surface]
//	         ↓
//	SVG (then PNG/PDF via [render])
//
// # Quick Start
//
// Load the records and step through the default deck:
//
//	store, _ := dataset.Load(ctx, dataset.CSVSource{Path: "StudentsPerformance.csv"})
//	scene := surface.NewScene(1000, 750, surface.WithLayerOrder(chart.LayerOrder...))
//	deck, _ := slides.New(scene, slides.Default(store))
//
//	deck.Next()                                          // gender slide
//	deck.Dispatch(view.MetricSelected{Name: "math"})     // bars transition
//	svg := scene.SVG(time.Now(), surface.WithAnimation())
//
// # Main Packages
//
// ## Engine
//
// [dataset] - Score records, their sources and the read-only [dataset.Store].
//
// [aggregate] - Group-by and mean over any number of metrics, preserving the
// order in which groups first appear.
//
// [scale] - Band, linear and ordinal scales with nice domains and ticks.
//
// [view] - Typed interaction events and the pure state transition
// [view.Apply].
//
// [reconcile] - Keyed enter/update/exit diffing with timed transitions.
//
// ## Presentation
//
// [chart] - Bar, grouped bar, stacked bar, scatter and text slides.
//
// [slides] - The deck: exactly one active chart, disposed on every change.
//
// [surface] - The retained scene the reconcilers draw on, with SVG output.
//
// ## Infrastructure
//
// [config] - TOML configuration with XDG paths.
//
// [cache] - Frame and artifact caching on disk or in Redis.
//
// [render] - SVG to PNG/PDF conversion.
//
// [pipeline] - Batch rendering of slides after a sequence of events, used by
// the render command.
//
// [observability] - Hooks for reconciliation, loading, rendering, caching and
// HTTP requests.
//
// [errors] - Coded errors, including the engine's contract violations.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/reconcile/... # Specific package
//	go test -run Example ./...  # Examples only
//
// [dataset]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/dataset
// [dataset.Store]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/dataset#Store
// [aggregate]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/aggregate
// [scale]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/scale
// [view]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/view
// [view.Apply]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/view#Apply
// [reconcile]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/reconcile
// [surface]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/surface
// [chart]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/chart
// [slides]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/slides
// [config]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/cache
// [render]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/scoreslides/pkg/errors
package pkg
