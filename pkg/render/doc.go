// Package render converts slide frames into output formats.
//
// # Overview
//
// Charts draw onto a [surface.Scene], which writes SVG directly. This package
// turns that SVG into the other formats the CLI offers:
//
//   - SVG: passed through unchanged
//   - PNG: rasterised at a scale factor
//   - PDF: vector output for handouts
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] use the external rsvg-convert tool (from librsvg).
// [Convert] dispatches on a format name:
//
//	svg := scene.SVG(time.Now())
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//	out, err := render.Convert(ctx, svg, "png", 1)
//
// A missing rsvg-convert is reported as an UNSUPPORTED error with install
// instructions. [Available] lets callers check up front.
//
// [surface.Scene]: github.com/matzehuels/scoreslides/pkg/surface.Scene
package render
