package chart

import (
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// Link is a button on a text slide that jumps to another slide.
type Link struct {
	Label string
	Slide int
}

// TextConfig describes a slide made of text only.
type TextConfig struct {
	Name     string
	Title    string
	Subtitle string
	// Paragraphs are centred lines under the subtitle. "{records}" is
	// replaced by the number of records.
	Paragraphs []string
	Bullets    []string
	Links      []Link
	// Card draws the text on a rounded panel.
	Card bool
}

// Intro is the opening slide.
var Intro = TextConfig{
	Name:     "intro",
	Title:    "Understanding the Factors Influencing Student Performance",
	Subtitle: "Use the buttons below to navigate through the slides.",
	Paragraphs: []string{
		"Test scores of {records} students in math, reading and writing,",
		"compared by gender, parental education, race/ethnicity and lunch type.",
	},
}

// Conclusion summarises the presentation and links back to three charts.
var Conclusion = TextConfig{
	Name:  "conclusion",
	Title: "Key Takeaways",
	Bullets: []string{
		"Test performance is influenced by socioeconomic factors.",
		"Students with standard lunch have higher average scores.",
		"Certain ethnic groups tend to perform better than others.",
		"Parental education level correlates with student performance.",
		"Further investigation into socioeconomic factors and their impact on education is recommended.",
	},
	Links: []Link{
		{Label: "Lunch Type Comparison", Slide: 4},
		{Label: "Gender Comparison", Slide: 1},
		{Label: "Parental Education", Slide: 2},
	},
	Card: true,
}

const linkColor = "#4CAF50"

// Text is a slide without data marks.
type Text struct {
	base
	cfg   TextConfig
	count int
}

// NewText creates a text slide. store may be nil; it only fills in the
// record count.
func NewText(store *dataset.Store, cfg TextConfig, opts ...Option) *Text {
	c := &Text{
		base:  newBase(cfg.Name, cfg.Title, view.Spec{}, Margin{}, 300*time.Millisecond, []string{LayerText}, opts),
		cfg:   cfg,
		count: -1,
	}
	if store != nil {
		c.count = store.Len()
	}
	c.draw = c.render
	return c
}

func (c *Text) render() error {
	w := c.opts.width
	var items []reconcile.Item
	if c.cfg.Card {
		card := rect(reconcile.Key{Group: "card"}, 50, 50, w-100, c.opts.height-150, "#f0f0f0")
		items = append(items, card)
	}

	titleY := c.opts.height * 0.46
	if c.cfg.Card || len(c.cfg.Bullets) > 0 {
		titleY = 100
	}
	title := text(reconcile.Key{Group: "title"}, w/2, titleY, c.cfg.Title, 28, "middle")
	title.Attrs.Weight = "bold"
	items = append(items, title)

	y := titleY + 50
	if c.cfg.Subtitle != "" {
		items = append(items, text(reconcile.Key{Group: "subtitle"}, w/2, y, c.cfg.Subtitle, 18, "middle"))
		y += 50
	}
	for i, p := range c.cfg.Paragraphs {
		if c.count >= 0 {
			p = strings.ReplaceAll(p, "{records}", strconv.Itoa(c.count))
		}
		it := text(reconcile.Key{Group: "paragraph", Series: strconv.Itoa(i)}, w/2, y, p, 16, "middle")
		it.Attrs.Fill = mutedColor
		items = append(items, it)
		y += 26
	}

	y = titleY + 60
	for i, b := range c.cfg.Bullets {
		items = append(items, text(reconcile.Key{Group: "bullet", Series: strconv.Itoa(i)}, 100, y+float64(i)*40, "• "+b, 16, "start"))
	}

	for i, l := range c.cfg.Links {
		group := "link:" + strconv.Itoa(i)
		x := 100 + float64(i)*300
		btn := rect(reconcile.Key{Group: group, Series: "button"}, x, 500, 250, 50, linkColor)
		label := text(reconcile.Key{Group: group, Series: "label"}, x+125, 530, l.Label, 16, "middle")
		label.Attrs.Fill = "#ffffff"
		items = append(items, btn, label)
	}
	return c.commit(map[string][]reconcile.Item{LayerText: items})
}

// Hover always reports false; text slides have no detail.
func (c *Text) Hover(string) (Detail, bool) { return Detail{}, false }

// Controls returns one goto control per link.
func (c *Text) Controls() []Control {
	out := make([]Control, 0, len(c.cfg.Links))
	for _, l := range c.cfg.Links {
		out = append(out, Control{Kind: KindGoto, Value: strconv.Itoa(l.Slide), Label: l.Label})
	}
	return out
}

var _ Chart = (*Text)(nil)
