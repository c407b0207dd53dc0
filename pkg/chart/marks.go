package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/scale"
	"github.com/matzehuels/scoreslides/pkg/view"
)

const (
	inkColor   = "#333333"
	mutedColor = "#555555"
	gridColor  = "#e0e0e0"
	axisColor  = "#000000"

	hiddenOpacity = 0.2
	maxTicks      = 10
)

func fixed1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func tickLabel(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// metricLabel is the button and axis label of a metric.
func metricLabel(m string) string {
	if m == "average" {
		return "Overall"
	}
	return capitalize(m)
}

func text(key reconcile.Key, x, y float64, s string, size float64, anchor string) reconcile.Item {
	return reconcile.Item{
		Key:  key,
		Kind: reconcile.Text,
		Attrs: reconcile.Attrs{
			X: x, Y: y, Text: s, Size: size, Anchor: anchor, Fill: inkColor, Opacity: 1,
		},
	}
}

func line(key reconcile.Key, x, y, dx, dy float64, stroke string) reconcile.Item {
	return reconcile.Item{
		Key:   key,
		Kind:  reconcile.Line,
		Attrs: reconcile.Attrs{X: x, Y: y, W: dx, H: dy, Stroke: stroke, Opacity: 1},
	}
}

func rect(key reconcile.Key, x, y, w, h float64, fill string) reconcile.Item {
	return reconcile.Item{
		Key:   key,
		Kind:  reconcile.Rect,
		Attrs: reconcile.Attrs{X: x, Y: y, W: w, H: h, Fill: fill, Opacity: 1},
	}
}

// yAxis draws gridlines, tick labels, the axis line and its title.
func yAxis(y scale.Linear, f frame, title string) []reconcile.Item {
	var items []reconcile.Item
	for _, t := range y.Ticks(maxTicks) {
		group := "y:" + tickLabel(t)
		py := y.Map(t)
		items = append(items,
			line(reconcile.Key{Group: group, Series: "grid"}, f.left, py, f.width(), 0, gridColor),
			text(reconcile.Key{Group: group, Series: "tick"}, f.left-8, py+4, tickLabel(t), 11, "end"),
		)
	}
	items = append(items,
		line(reconcile.Key{Group: "y", Series: "domain"}, f.left, f.top, 0, f.height(), axisColor),
		text(reconcile.Key{Group: "y", Series: "title"}, f.left, f.top-12, title, 12, "start"),
	)
	return items
}

// xLinearAxis draws tick labels, the axis line and its title under the plot.
func xLinearAxis(x scale.Linear, f frame, title string) []reconcile.Item {
	var items []reconcile.Item
	for _, t := range x.Ticks(maxTicks) {
		items = append(items, text(reconcile.Key{Group: "x:" + tickLabel(t), Series: "tick"}, x.Map(t), f.bottom+18, tickLabel(t), 11, "middle"))
	}
	return append(items, xDomain(f, title)...)
}

// xBandAxis labels each category under its band.
func xBandAxis(x scale.Band, f frame, title string) []reconcile.Item {
	var items []reconcile.Item
	for _, g := range x.Domain() {
		cx, _ := x.Center(g)
		items = append(items, text(reconcile.Key{Group: "x:" + g, Series: "tick"}, cx, f.bottom+18, g, 11, "middle"))
	}
	return append(items, xDomain(f, title)...)
}

func xDomain(f frame, title string) []reconcile.Item {
	items := []reconcile.Item{line(reconcile.Key{Group: "x", Series: "domain"}, f.left, f.bottom, f.width(), 0, axisColor)}
	if title != "" {
		items = append(items, text(reconcile.Key{Group: "x", Series: "title"}, f.midX(), f.bottom+40, title, 13, "middle"))
	}
	return items
}

// heading draws the slide title, an optional subtitle and explanatory lines
// whose last baseline is bottom.
func heading(title, subtitle string, width, top, bottom float64, hints []string) []reconcile.Item {
	t := text(reconcile.Key{Group: "title"}, width/2, top/2, title, 16, "middle")
	t.Attrs.Weight = "bold"
	items := []reconcile.Item{t}
	if subtitle != "" {
		items = append(items, text(reconcile.Key{Group: "subtitle"}, width/2, top/2+18, subtitle, 12, "middle"))
	}
	for i, h := range hints {
		it := text(reconcile.Key{Group: "hint", Series: strconv.Itoa(i)}, width/2, bottom-float64(len(hints)-1-i)*17, h, 13, "middle")
		it.Attrs.Fill = mutedColor
		items = append(items, it)
	}
	return items
}

// legend draws one swatch and label per series starting at (x, y). Toggleable
// legends carry the series in their keys and dim hidden series.
func legend(series []string, colors scale.Ordinal, st view.State, toggle bool, x, y float64) []reconcile.Item {
	var items []reconcile.Item
	for i, s := range series {
		row := y + float64(i)*20
		swatchKey := reconcile.Key{Group: "swatch:" + s}
		labelKey := reconcile.Key{Group: "label:" + s}
		opacity := 1.0
		if toggle {
			swatchKey = reconcile.Key{Group: "swatch", Series: s}
			labelKey = reconcile.Key{Group: "label", Series: s}
			if !st.Visible(s) {
				opacity = hiddenOpacity
			}
		}
		sw := rect(swatchKey, x, row, 15, 15, colors.Color(s))
		sw.Attrs.Opacity = opacity
		lb := text(labelKey, x+20, row+12, capitalize(s), 12, "start")
		lb.Attrs.Opacity = opacity
		items = append(items, sw, lb)
	}
	return items
}

// tooltip draws a detail box next to (x, y), flipped left when it would leave
// the canvas.
func tooltip(d Detail, x, y, canvasWidth float64) []reconcile.Item {
	longest := len(d.Title)
	for _, l := range d.Lines {
		longest = max(longest, len(l))
	}
	w := float64(longest)*7 + 20
	h := float64(len(d.Lines)+1)*16 + 12
	left := x + 12
	if left+w > canvasWidth {
		left = x - 12 - w
	}
	top := y - h - 8
	if top < 0 {
		top = y + 8
	}

	box := rect(reconcile.Key{Group: "tooltip", Series: "box"}, left, top, w, h, "#ffffff")
	box.Attrs.Stroke = inkColor
	box.Attrs.Opacity = 0.95
	title := text(reconcile.Key{Group: "tooltip", Series: "title"}, left+10, top+20, d.Title, 12, "start")
	title.Attrs.Weight = "bold"
	items := []reconcile.Item{box, title}
	for i, l := range d.Lines {
		items = append(items, text(reconcile.Key{Group: "tooltip", Series: fmt.Sprintf("line%d", i)}, left+10, top+20+float64(i+1)*16, l, 12, "start"))
	}
	return items
}

func valueLine(series string, v float64) string {
	return fmt.Sprintf("%s: %s", series, fixed1(v))
}
