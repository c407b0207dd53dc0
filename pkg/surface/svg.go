package surface

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/scoreslides/pkg/reconcile"
)

const interactionCSS = `
    [data-layer="bars"], [data-layer="points"] { transition: stroke-width 0.2s ease; }
    [data-layer="bars"]:hover, [data-layer="points"]:hover { stroke: #333; stroke-width: 2; }
    [data-layer="legend"], [data-layer="controls"] { cursor: pointer; }`

// The script only translates pointer input into events; the host page decides
// where to send them.
const interactionJS = `
    function emit(kind, value, active) {
      document.dispatchEvent(new CustomEvent('scoreslides:event', { detail: { kind: kind, value: value, active: active } }));
    }
    document.querySelectorAll('[data-layer="bars"], [data-layer="points"]').forEach(el => {
      el.addEventListener('mouseenter', () => emit('hover', el.dataset.key, true));
      el.addEventListener('mouseleave', () => emit('hover', el.dataset.key, false));
    });
    document.querySelectorAll('[data-layer="legend"][data-series]').forEach(el => {
      el.addEventListener('click', () => emit('toggle', el.dataset.series));
    });`

// SVGOption configures SVG output.
type SVGOption func(*svgWriter)

type svgWriter struct {
	animate     bool
	interactive bool
	title       string
}

// WithAnimation emits SMIL animations for transitions still in flight.
func WithAnimation() SVGOption { return func(w *svgWriter) { w.animate = true } }

// WithInteraction adds hover styling and a script that raises
// "scoreslides:event" DOM events for hover and legend clicks.
func WithInteraction() SVGOption { return func(w *svgWriter) { w.interactive = true } }

// WithTitle sets the document title.
func WithTitle(title string) SVGOption { return func(w *svgWriter) { w.title = title } }

// SVG renders the scene at now.
func (s *Scene) SVG(now time.Time, opts ...SVGOption) []byte {
	w := svgWriter{}
	for _, opt := range opts {
		opt(&w)
	}

	s.mu.Lock()
	s.prune(now)
	ordered := s.ordered()
	s.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		s.width, s.height, s.width, s.height)
	if w.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", EscapeXML(w.title))
	}
	fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%.1f" height="%.1f" fill="%s"/>`+"\n", s.width, s.height, EscapeXML(s.background))

	for _, e := range ordered {
		writeMark(&buf, e.mark, now, w.animate)
	}

	if w.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", interactionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", interactionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writeMark(buf *bytes.Buffer, m reconcile.Mark, now time.Time, animate bool) {
	cur := m.At(now)
	target := cur
	var remaining time.Duration
	if animate && !m.Transition.Done(now) {
		target = m.Target()
		remaining = m.Transition.End().Sub(now)
	}

	data := fmt.Sprintf(`data-layer="%s" data-key="%s"`, EscapeXML(m.Layer), EscapeXML(m.Key.String()))
	if m.Key.Series != "" {
		data += fmt.Sprintf(` data-series="%s"`, EscapeXML(m.Key.Series))
	}

	var anims []string
	anim := func(attr string, from, to float64) {
		if remaining > 0 && from != to {
			anims = append(anims, fmt.Sprintf(`<animate attributeName="%s" from="%.2f" to="%.2f" dur="%.3fs" fill="freeze"/>`,
				attr, from, to, remaining.Seconds()))
		}
	}
	color := func(attr, from, to string) {
		if remaining > 0 && from != to && from != "" && to != "" {
			anims = append(anims, fmt.Sprintf(`<animate attributeName="%s" from="%s" to="%s" dur="%.3fs" fill="freeze"/>`,
				attr, EscapeXML(from), EscapeXML(to), remaining.Seconds()))
		}
	}
	anim("opacity", cur.Opacity, target.Opacity)

	switch m.Kind {
	case reconcile.Circle:
		fmt.Fprintf(buf, `  <circle %s cx="%.2f" cy="%.2f" r="%.2f"%s`, data, cur.X, cur.Y, cur.R, paint(cur))
		anim("cx", cur.X, target.X)
		anim("cy", cur.Y, target.Y)
		anim("r", cur.R, target.R)
		color("fill", cur.Fill, target.Fill)
		closeElement(buf, "circle", anims)
	case reconcile.Line:
		fmt.Fprintf(buf, `  <line %s x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"%s`, data, cur.X, cur.Y, cur.X+cur.W, cur.Y+cur.H, paint(cur))
		anim("x1", cur.X, target.X)
		anim("y1", cur.Y, target.Y)
		anim("x2", cur.X+cur.W, target.X+target.W)
		anim("y2", cur.Y+cur.H, target.Y+target.H)
		closeElement(buf, "line", anims)
	case reconcile.Text:
		anchor := cur.Anchor
		if anchor == "" {
			anchor = "start"
		}
		size := cur.Size
		if size <= 0 {
			size = 12
		}
		fmt.Fprintf(buf, `  <text %s x="%.2f" y="%.2f" text-anchor="%s" font-family="sans-serif" font-size="%.1f"`,
			data, cur.X, cur.Y, anchor, size)
		if cur.Weight != "" {
			fmt.Fprintf(buf, ` font-weight="%s"`, EscapeXML(cur.Weight))
		}
		buf.WriteString(paint(cur))
		anim("x", cur.X, target.X)
		anim("y", cur.Y, target.Y)
		buf.WriteString(">")
		buf.WriteString(EscapeXML(cur.Text))
		for _, a := range anims {
			buf.WriteString(a)
		}
		buf.WriteString("</text>\n")
	default:
		fmt.Fprintf(buf, `  <rect %s x="%.2f" y="%.2f" width="%.2f" height="%.2f"%s`, data, cur.X, cur.Y, cur.W, cur.H, paint(cur))
		anim("x", cur.X, target.X)
		anim("y", cur.Y, target.Y)
		anim("width", cur.W, target.W)
		anim("height", cur.H, target.H)
		color("fill", cur.Fill, target.Fill)
		closeElement(buf, "rect", anims)
	}
}

func paint(a reconcile.Attrs) string {
	var b strings.Builder
	fill := a.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(&b, ` fill="%s"`, EscapeXML(fill))
	if a.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s"`, EscapeXML(a.Stroke))
	}
	fmt.Fprintf(&b, ` opacity="%.3f"`, a.Opacity)
	return b.String()
}

func closeElement(buf *bytes.Buffer, tag string, anims []string) {
	if len(anims) == 0 {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteString(">")
	for _, a := range anims {
		buf.WriteString(a)
	}
	fmt.Fprintf(buf, "</%s>\n", tag)
}

// EscapeXML escapes s for use in XML text and attribute values.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
