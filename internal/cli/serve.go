package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/chart"
	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/observability"
	"github.com/matzehuels/scoreslides/pkg/render"
	"github.com/matzehuels/scoreslides/pkg/slides"
	"github.com/matzehuels/scoreslides/pkg/surface"
	"github.com/matzehuels/scoreslides/pkg/view"
)

// maxEventBytes bounds the body of POST /events.
const maxEventBytes = 4 << 10

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr string // listen address
}

// serveCommand creates the serve command, which presents the deck in a
// browser.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Present the slides in a browser",
		Long: `Serve the slides over HTTP. The page at / shows the current slide and
its buttons; hovering a bar shows its details and clicking a legend entry
hides or shows that series.

Endpoints:
  GET  /            presentation page
  GET  /slide.svg   current slide as SVG
  GET  /slide.png   current slide as PNG (needs rsvg-convert)
  GET  /state       deck and chart state as JSON
  POST /events      apply an event, e.g. {"kind":"metric","value":"math"}
  POST /slides/{n}  show slide n
  POST /controls/{n} press button n of the current slide`,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("addr") {
				opts.addr = c.Config.Server.Addr
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "localhost:8080", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
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
	srv := newServer(deck, scene, c.Logger, time.Now)
	defer srv.close()

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.ListenAndServe() }()
	printSuccess("Serving %d slides", deck.Len())
	printKeyValue("URL", StyleLink.Render("http://"+opts.addr+"/"))
	printNextStep("Stop with", "ctrl+c")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Server
// =============================================================================

// server exposes one deck over HTTP. Every handler holds mu while it touches
// the deck or the scene.
type server struct {
	mu     sync.Mutex
	deck   *slides.Deck
	scene  *surface.Scene
	logger *log.Logger
	now    func() time.Time
}

func newServer(deck *slides.Deck, scene *surface.Scene, logger *log.Logger, now func() time.Time) *server {
	return &server{deck: deck, scene: scene, logger: logger, now: now}
}

func (s *server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.Close()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe)

	r.Get("/", s.handlePage)
	r.Get("/slide.svg", s.handleSVG)
	r.Get("/slide.png", s.handlePNG)
	r.Get("/state", s.handleState)
	r.Post("/events", s.handleEvent)
	r.Post("/slides/{index}", s.handleGoto)
	r.Post("/controls/{index}", s.handleControl)
	return r
}

// observe reports every request to the HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

// deckState is the JSON body of GET /state and of every successful POST.
type deckState struct {
	Index    int             `json:"index"`
	Slides   []slides.Info   `json:"slides"`
	Slide    string          `json:"slide"`
	Title    string          `json:"title"`
	State    view.State      `json:"state"`
	Controls []chart.Control `json:"controls"`
	Layers   []chart.Layer   `json:"layers"`
	Detail   *chart.Detail   `json:"detail,omitempty"`
}

// snapshot describes the deck. The caller holds mu.
func (s *server) snapshot() deckState {
	st := deckState{Index: s.deck.Index(), Slides: s.deck.Slides()}
	active := s.deck.Active()
	if active == nil {
		return st
	}
	st.Slide = active.Name()
	st.Title = active.Title()
	st.State = active.State()
	st.Controls = active.Controls()
	st.Layers = active.Layers()
	if st.State.Hovered != "" {
		if d, ok := active.Hover(st.State.Hovered); ok {
			st.Detail = &d
		}
	}
	return st
}

// svg renders the scene with transitions still in flight. The caller holds mu.
func (s *server) svg() []byte {
	title := ""
	if active := s.deck.Active(); active != nil {
		title = active.Title()
	}
	return s.scene.SVG(s.now(), surface.WithAnimation(), surface.WithTitle(title))
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, presentPage)
}

func (s *server) handleSVG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.svg()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *server) handlePNG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.svg()
	s.mu.Unlock()

	scale := 1.0
	if v := r.URL.Query().Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "bad scale %q", v))
			return
		}
		scale = f
	}
	png, err := render.ToPNG(r.Context(), data, scale)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read event"))
		return
	}
	ev, err := view.DecodeJSON(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, func() error { return s.deck.Dispatch(ev) })
}

func (s *server) handleGoto(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, func() error {
		if i >= s.deck.Len() {
			return errors.New(errors.ErrCodeNotFound, "no slide %d", i)
		}
		return s.deck.Goto(i)
	})
}

func (s *server) handleControl(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.apply(w, func() error {
		active := s.deck.Active()
		if active == nil {
			return errors.New(errors.ErrCodeNotFound, "no active slide")
		}
		controls := active.Controls()
		if i >= len(controls) {
			return errors.New(errors.ErrCodeNotFound, "no control %d", i)
		}
		return s.deck.Press(controls[i])
	})
}

// apply runs fn under the lock and answers with the resulting state.
func (s *server) apply(w http.ResponseWriter, fn func() error) {
	s.mu.Lock()
	err := fn()
	st := s.snapshot()
	s.mu.Unlock()

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func pathIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "bad index %q", raw)
	}
	return i, nil
}

// errorBody is the JSON body of failed requests.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Code: string(errors.GetCode(err)), Message: errors.UserMessage(err)})
}

// httpStatus maps an error code to a response status.
func httpStatus(err error) int {
	switch {
	case errors.IsContractViolation(err), errors.Is(err, errors.ErrCodeInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// presentPage fetches the slide and the state, draws the buttons and turns
// pointer input on the inline SVG into POST /events.
const presentPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>scoreslides</title>
<style>
  body { font-family: sans-serif; margin: 2em auto; max-width: 1040px; color: #2c3e50; }
  nav, #controls { display: flex; gap: 0.5em; margin: 0.75em 0; flex-wrap: wrap; }
  button { padding: 0.4em 0.9em; border: 1px solid #bbb; border-radius: 4px; background: #fff; cursor: pointer; }
  button.active { border-color: #4CAF50; background: #e8f5e9; font-weight: bold; }
  #error { color: #c0392b; min-height: 1.2em; }
  [data-layer="bars"]:hover, [data-layer="points"]:hover { stroke: #333; stroke-width: 2; }
  [data-layer="legend"] { cursor: pointer; }
</style>
</head>
<body>
<nav>
  <button id="prev">&larr; Previous</button>
  <span id="counter"></span>
  <button id="next">Next &rarr;</button>
</nav>
<div id="slide"></div>
<div id="controls"></div>
<div id="error"></div>
<script>
const slide = document.getElementById('slide');

async function refresh(state) {
  const svg = await fetch('/slide.svg').then(r => r.text());
  slide.innerHTML = svg;
  if (!state) state = await fetch('/state').then(r => r.json());
  document.getElementById('counter').textContent = (state.index + 1) + ' / ' + state.slides.length + ' ' + state.title;
  const controls = document.getElementById('controls');
  controls.innerHTML = '';
  (state.controls || []).forEach((c, i) => {
    const b = document.createElement('button');
    b.textContent = c.label;
    if (c.active) b.className = 'active';
    b.onclick = () => post('/controls/' + i);
    controls.appendChild(b);
  });
}

async function post(path, body) {
  const res = await fetch(path, { method: 'POST', body: body ? JSON.stringify(body) : null });
  const data = await res.json();
  document.getElementById('error').textContent = res.ok ? '' : data.message;
  if (res.ok) await refresh(data);
}

let hovered = '';
function mark(target) {
  return target && target.closest && target.closest('[data-layer="bars"], [data-layer="points"]');
}
slide.addEventListener('mouseover', e => {
  const m = mark(e.target);
  if (m && m.dataset.key !== hovered) {
    hovered = m.dataset.key;
    post('/events', { kind: 'hover', value: hovered, active: true });
  }
});
slide.addEventListener('mouseout', e => {
  const m = mark(e.target);
  const to = mark(e.relatedTarget);
  if (m && hovered && (!to || to.dataset.key !== hovered)) {
    post('/events', { kind: 'hover', value: hovered, active: false });
    hovered = '';
  }
});
slide.addEventListener('click', e => {
  const l = e.target.closest && e.target.closest('[data-layer="legend"][data-series]');
  if (l) post('/events', { kind: 'toggle', value: l.dataset.series });
});
function advance(value) {
  hovered = '';
  post('/events', { kind: 'slide', value: value });
}
document.getElementById('prev').onclick = () => advance('prev');
document.getElementById('next').onclick = () => advance('next');
document.addEventListener('keydown', e => {
  if (e.key === 'ArrowRight') advance('next');
  if (e.key === 'ArrowLeft') advance('prev');
});
refresh();
</script>
</body>
</html>
`
