package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/chart"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/reconcile"
	"github.com/matzehuels/scoreslides/pkg/slides"
	"github.com/matzehuels/scoreslides/pkg/surface"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// frameInterval is the redraw period while transitions run.
const frameInterval = 33 * time.Millisecond

// presentOpts holds the command-line flags for the present command.
type presentOpts struct {
	start string // slide to open first
}

// presentCommand creates the present command, which steps through the deck
// in the terminal.
func (c *CLI) presentCommand() *cobra.Command {
	var opts presentOpts

	cmd := &cobra.Command{
		Use:   "present",
		Short: "Step through the slides in the terminal",
		Long: `Present the slides in the terminal. Bars are drawn as text and animate
between states. Use the arrow keys to change slides, the number keys to press
the buttons of the current slide and tab to inspect one bar after another.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPresent(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.start, "slide", "s", "", "slide name or index to start on")

	return cmd
}

func (c *CLI) runPresent(ctx context.Context, opts presentOpts) error {
	if !isTerminal(os.Stdout) {
		return errors.New(errors.ErrCodeUnsupported, "present needs a terminal; use render or serve instead")
	}
	store, err := c.loadStore(ctx)
	if err != nil {
		return err
	}

	cfg := c.Config.Render
	scene := surface.NewScene(cfg.Width, cfg.Height, surface.WithLayerOrder(chart.LayerOrder...))
	chartOpts := []chart.Option{chart.WithSize(cfg.Width, cfg.Height)}
	if cfg.Duration > 0 {
		chartOpts = append(chartOpts, chart.WithDuration(cfg.Duration))
	}
	deck, err := slides.New(scene, slides.Default(store, chartOpts...))
	if err != nil {
		return err
	}
	defer deck.Close()

	if opts.start != "" {
		i, ok := deck.Find(opts.start)
		if !ok {
			n, err := strconv.Atoi(opts.start)
			if err != nil || n < 0 || n >= deck.Len() {
				return errors.New(errors.ErrCodeNotFound, "unknown slide %q", opts.start)
			}
			i = n
		}
		if err := deck.Goto(i); err != nil {
			return err
		}
	}

	m := newPresentModel(deck, scene, time.Now)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// Key Bindings
// =============================================================================

type presentKeys struct {
	Next    key.Binding
	Prev    key.Binding
	Press   key.Binding
	Inspect key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k presentKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Press, k.Inspect, k.Quit}
}

func (k presentKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next},
		{k.Press, k.Inspect},
		{k.Help, k.Quit},
	}
}

var defaultPresentKeys = presentKeys{
	Next: key.NewBinding(
		key.WithKeys("right", "l", "n", " "),
		key.WithHelp("→/l", "next slide"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "p"),
		key.WithHelp("←/h", "previous slide"),
	),
	Press: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "press button"),
	),
	Inspect: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "inspect"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// =============================================================================
// Model
// =============================================================================

type tickMsg time.Time

// presentModel drives a deck from keyboard input.
type presentModel struct {
	deck    *slides.Deck
	scene   *surface.Scene
	now     func() time.Time
	keys    presentKeys
	help    help.Model
	width   int
	hovered string
	err     error
}

func newPresentModel(deck *slides.Deck, scene *surface.Scene, now func() time.Time) presentModel {
	return presentModel{
		deck:  deck,
		scene: scene,
		now:   now,
		keys:  defaultPresentKeys,
		help:  help.New(),
		width: 80,
	}
}

func (m presentModel) Init() tea.Cmd {
	return m.animate()
}

// animate schedules a redraw while any mark is still moving.
func (m presentModel) animate() tea.Cmd {
	if !m.scene.Animating(m.now()) {
		return nil
	}
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m presentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		return m, m.animate()
	case tea.KeyMsg:
		m.err = nil
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Next):
			m.err = m.advance(1)
		case key.Matches(msg, m.keys.Prev):
			m.err = m.advance(-1)
		case key.Matches(msg, m.keys.Press):
			m.err = m.press(int(msg.String()[0] - '1'))
		case key.Matches(msg, m.keys.Inspect):
			step := 1
			if msg.String() == "shift+tab" {
				step = -1
			}
			m.err = m.inspect(step)
		}
		return m, m.animate()
	}
	return m, nil
}

func (m *presentModel) advance(delta int) error {
	m.hovered = ""
	return m.deck.Dispatch(view.SlideAdvance{Delta: delta})
}

// press performs control i of the active chart.
func (m *presentModel) press(i int) error {
	active := m.deck.Active()
	if active == nil {
		return nil
	}
	controls := active.Controls()
	if i < 0 || i >= len(controls) {
		return nil
	}
	before := m.deck.Index()
	if err := m.deck.Press(controls[i]); err != nil {
		return err
	}
	if m.deck.Index() != before {
		m.hovered = ""
	}
	return nil
}

// inspect moves the hover to the next (step 1) or previous (step -1) mark
// with detail.
func (m *presentModel) inspect(step int) error {
	active := m.deck.Active()
	if active == nil {
		return nil
	}
	keys := hoverKeys(active)
	if len(keys) == 0 {
		return nil
	}
	next := 0
	for i, k := range keys {
		if k == m.hovered {
			next = (i + step + len(keys)) % len(keys)
			break
		}
	}
	if m.hovered == "" && step < 0 {
		next = len(keys) - 1
	}
	m.hovered = keys[next]
	return m.deck.Dispatch(view.HoverChanged{Key: m.hovered, Active: true})
}

// hoverKeys lists the identities of the marks a chart can describe, in
// display order.
func hoverKeys(c chart.Chart) []string {
	var out []string
	for _, l := range c.Layers() {
		if l.Name != chart.LayerBars && l.Name != chart.LayerPoints {
			continue
		}
		for _, k := range l.Keys {
			if _, ok := c.Hover(k.String()); ok {
				out = append(out, k.String())
			}
		}
	}
	return out
}

// =============================================================================
// View
// =============================================================================

var (
	presentTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	presentCounterStyle = lipgloss.NewStyle().Foreground(colorDim)
	presentButtonStyle  = lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	presentActiveStyle  = presentButtonStyle.Foreground(colorWhite).Bold(true).BorderForeground(colorCyan)
	presentDetailStyle  = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(colorYellow)
	presentErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

func (m presentModel) View() string {
	var b strings.Builder

	title := ""
	if active := m.deck.Active(); active != nil {
		title = active.Title()
	}
	b.WriteString(presentTitleStyle.Render(title))
	b.WriteString(presentCounterStyle.Render(fmt.Sprintf("  %d/%d", m.deck.Index()+1, m.deck.Len())))
	b.WriteString("\n\n")

	b.WriteString(drawShapes(m.scene.Frame(m.now()), max(m.width-4, 20)))
	b.WriteString("\n")

	if active := m.deck.Active(); active != nil {
		if buttons := drawControls(active.Controls()); buttons != "" {
			b.WriteString(buttons)
			b.WriteString("\n")
		}
		if m.hovered != "" {
			if d, ok := active.Hover(m.hovered); ok {
				b.WriteString(presentDetailStyle.Render(StyleHighlight.Render(d.Title) + "\n" + strings.Join(d.Lines, "\n")))
				b.WriteString("\n")
			}
		}
	}
	if m.err != nil {
		b.WriteString(presentErrorStyle.Render(errors.UserMessage(m.err)))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// drawControls renders the buttons of a chart, numbered from 1.
func drawControls(controls []chart.Control) string {
	if len(controls) == 0 {
		return ""
	}
	buttons := make([]string, len(controls))
	for i, c := range controls {
		style := presentButtonStyle
		if c.Active {
			style = presentActiveStyle
		}
		label := c.Label
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, label)
		}
		buttons[i] = style.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

// drawShapes renders a scene frame as text: headings and body text first,
// then one horizontal bar per bar mark scaled to width, then a point count.
func drawShapes(shapes []surface.Shape, width int) string {
	var texts, bars []surface.Shape
	points := 0
	labels := make(map[reconcile.Key]string)
	for _, s := range shapes {
		switch {
		case s.Layer == chart.LayerText && s.Kind == reconcile.Text:
			texts = append(texts, s)
		case s.Layer == chart.LayerBars && s.Kind == reconcile.Rect:
			bars = append(bars, s)
		case s.Layer == chart.LayerPoints && !s.Exiting:
			points++
		case s.Layer == chart.LayerLabels && s.Kind == reconcile.Text:
			labels[s.Key] = s.Attrs.Text
		}
	}

	var b strings.Builder
	sort.SliceStable(texts, func(i, j int) bool { return texts[i].Attrs.Y < texts[j].Attrs.Y })
	for _, t := range texts {
		if t.Attrs.Text == "" {
			continue
		}
		b.WriteString(fadeStyle(t.Attrs.Opacity).Render(t.Attrs.Text))
		b.WriteString("\n")
	}

	if len(bars) > 0 {
		b.WriteString(drawBars(bars, labels, width))
	}
	if points > 0 {
		fmt.Fprintf(&b, "%s\n", StyleDim.Render(fmt.Sprintf("● %d students plotted", points)))
	}
	return b.String()
}

func drawBars(bars []surface.Shape, labels map[reconcile.Key]string, width int) string {
	labelWidth := 0
	tallest := 0.0
	for _, s := range bars {
		labelWidth = max(labelWidth, lipgloss.Width(s.Key.Label()))
		tallest = math.Max(tallest, s.Attrs.H)
	}
	room := max(width-labelWidth-10, 10)

	var b strings.Builder
	for _, s := range bars {
		n := 0
		if tallest > 0 {
			n = int(math.Round(s.Attrs.H / tallest * float64(room)))
		}
		style := lipgloss.NewStyle()
		if s.Attrs.Fill != "" {
			style = style.Foreground(lipgloss.Color(s.Attrs.Fill))
		}
		if s.Exiting || s.Attrs.Opacity < 0.5 {
			style = style.Faint(true)
		}
		label := lipgloss.NewStyle().Width(labelWidth).Render(s.Key.Label())
		fmt.Fprintf(&b, "%s %s %s\n", label, style.Render(strings.Repeat("█", max(n, 0))), StyleNumber.Render(labels[s.Key]))
	}
	return b.String()
}

func fadeStyle(opacity float64) lipgloss.Style {
	if opacity < 0.5 {
		return StyleDim
	}
	return StyleValue
}
