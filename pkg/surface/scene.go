// Package surface provides the retained drawing surface charts render onto.
//
// A [Scene] implements [reconcile.Surface]. It keeps every live mark together
// with its transition, so any consumer can ask for the picture at an arbitrary
// instant:
//
//	scene := surface.NewScene(1000, 750)
//	// ... reconcilers create, update and remove marks ...
//	for _, sh := range scene.Frame(time.Now()) {
//	    fmt.Println(sh.Key, sh.Attrs.H)
//	}
//
// Exiting marks stay in the scene until their exit transition finishes and
// are pruned by the next [Scene.Frame] or [Scene.Prune] call. The terminal
// presenter polls Frame on a ticker; the SVG writer turns in-flight
// transitions into SMIL animations instead.
package surface

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/scoreslides/pkg/reconcile"
)

// Default canvas size.
const (
	DefaultWidth  = 1000
	DefaultHeight = 750
)

// Shape is a mark resolved at one instant.
type Shape struct {
	ID      uint64          `json:"id"`
	Layer   string          `json:"layer"`
	Key     reconcile.Key   `json:"key"`
	Kind    reconcile.Kind  `json:"kind"`
	Attrs   reconcile.Attrs `json:"attrs"`
	Exiting bool            `json:"exiting,omitempty"`
	Datum   any             `json:"-"`
}

type entry struct {
	mark    reconcile.Mark
	exiting bool
	seq     uint64
}

// Option configures a Scene.
type Option func(*Scene)

// WithBackground sets the canvas background color.
func WithBackground(color string) Option {
	return func(s *Scene) { s.background = color }
}

// WithLayerOrder sets the paint order of layers, bottom first. Layers not
// listed are painted above the listed ones in creation order.
func WithLayerOrder(layers ...string) Option {
	return func(s *Scene) {
		s.layers = make(map[string]int, len(layers))
		for i, l := range layers {
			s.layers[l] = i
		}
	}
}

// Scene is a retained set of marks.
type Scene struct {
	width, height float64
	background    string
	layers        map[string]int

	mu      sync.Mutex
	entries map[uint64]*entry
	seq     uint64
}

// NewScene creates an empty scene of the given size.
func NewScene(width, height float64, opts ...Option) *Scene {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	s := &Scene{
		width:      width,
		height:     height,
		background: "#ffffff",
		entries:    make(map[uint64]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the canvas width and height.
func (s *Scene) Size() (width, height float64) { return s.width, s.height }

// Background returns the canvas background color.
func (s *Scene) Background() string { return s.background }

// Create implements reconcile.Surface.
func (s *Scene) Create(m reconcile.Mark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[m.ID] = &entry{mark: m, seq: s.seq}
}

// Update implements reconcile.Surface. Updating an unknown mark creates it.
func (s *Scene) Update(m reconcile.Mark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[m.ID]; ok {
		e.mark = m
		e.exiting = false
		return
	}
	s.seq++
	s.entries[m.ID] = &entry{mark: m, seq: s.seq}
}

// Remove implements reconcile.Surface. Marks with a finished (or zero-length)
// transition disappear at once; others play their exit first.
func (s *Scene) Remove(m reconcile.Mark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[m.ID]
	if !ok {
		return
	}
	if m.Transition.Duration <= 0 {
		delete(s.entries, m.ID)
		return
	}
	e.mark = m
	e.exiting = true
}

// Prune drops exiting marks whose transition finished before now and returns
// how many were dropped.
func (s *Scene) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(now)
}

func (s *Scene) prune(now time.Time) int {
	n := 0
	for id, e := range s.entries {
		if e.exiting && e.mark.Transition.Done(now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Frame prunes finished exits and returns every remaining mark resolved at
// now, in paint order.
func (s *Scene) Frame(now time.Time) []Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)

	ordered := s.ordered()
	shapes := make([]Shape, len(ordered))
	for i, e := range ordered {
		shapes[i] = Shape{
			ID:      e.mark.ID,
			Layer:   e.mark.Layer,
			Key:     e.mark.Key,
			Kind:    e.mark.Kind,
			Attrs:   e.mark.At(now),
			Exiting: e.exiting,
			Datum:   e.mark.Datum,
		}
	}
	return shapes
}

func (s *Scene) ordered() []*entry {
	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	z := func(e *entry) int {
		if i, ok := s.layers[e.mark.Layer]; ok {
			return i
		}
		return len(s.layers)
	}
	slices.SortFunc(out, func(a, b *entry) int {
		if c := cmp.Compare(z(a), z(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Animating reports whether any mark is still moving at now.
func (s *Scene) Animating(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if !e.mark.Transition.Done(now) {
			return true
		}
	}
	return false
}

// Len returns the number of marks, exiting ones included.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Live returns the non-exiting marks of layer, or of every layer when layer
// is empty, in paint order.
func (s *Scene) Live(layer string) []reconcile.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconcile.Mark
	for _, e := range s.ordered() {
		if e.exiting || (layer != "" && e.mark.Layer != layer) {
			continue
		}
		out = append(out, e.mark)
	}
	return out
}

// Owned reports whether any mark in the scene, exiting or not, has the given ID.
func (s *Scene) Owned(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Clear removes every mark.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[uint64]*entry)
}

var _ reconcile.Surface = (*Scene)(nil)
