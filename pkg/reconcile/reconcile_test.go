package reconcile

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/observability"
)

// memSurface records operations and the set of marks it currently shows.
// Marks removed with a running transition stay in fading until removed again
// without one or revived by Update.
type memSurface struct {
	live    map[uint64]Mark
	fading  map[uint64]Mark
	created int
	updated int
	removed []Mark
}

func newMemSurface() *memSurface {
	return &memSurface{live: make(map[uint64]Mark), fading: make(map[uint64]Mark)}
}

func (s *memSurface) Create(m Mark) {
	if _, dup := s.live[m.ID]; dup {
		panic(fmt.Sprintf("mark %d created twice", m.ID))
	}
	s.live[m.ID] = m
	s.created++
}

func (s *memSurface) Update(m Mark) {
	_, live := s.live[m.ID]
	_, fading := s.fading[m.ID]
	if !live && !fading {
		panic(fmt.Sprintf("update of unknown mark %d", m.ID))
	}
	delete(s.fading, m.ID)
	s.live[m.ID] = m
	s.updated++
}

func (s *memSurface) Remove(m Mark) {
	delete(s.live, m.ID)
	if m.Transition.Duration > 0 {
		s.fading[m.ID] = m
	} else {
		delete(s.fading, m.ID)
	}
	s.removed = append(s.removed, m)
}

func (s *memSurface) keys() []string {
	var out []string
	for _, m := range s.live {
		out = append(out, m.Key.String())
	}
	sort.Strings(out)
	return out
}

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock               { return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }
func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func items(keys ...string) []Item {
	out := make([]Item, len(keys))
	for i, k := range keys {
		out[i] = Item{Key: Key{Group: k}, Kind: Rect, Attrs: Attrs{X: float64(i) * 10, Y: 0, W: 8, H: 100, Opacity: 1, Fill: "#4e79a7"}}
	}
	return out
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	sort.Strings(out)
	return out
}

func TestIdentityInvariant(t *testing.T) {
	surface := newMemSurface()
	r := New("bars", surface, WithDuration(0))

	steps := [][]string{
		{"a", "b", "c"},
		{"b", "c", "d", "e"},
		{"a", "b", "c"},
		{},
	}
	for i, step := range steps {
		if _, err := r.Reconcile(items(step...)); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		want := append([]string(nil), step...)
		sort.Strings(want)
		if got := keyStrings(r.Keys()); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("step %d: Keys() = %v, want %v", i, got, want)
		}
		if got := surface.keys(); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("step %d: surface = %v, want %v", i, got, want)
		}
	}
}

func TestPlan(t *testing.T) {
	r := New("bars", newMemSurface(), WithDuration(0))
	if _, err := r.Reconcile(items("a", "b", "c")); err != nil {
		t.Fatal(err)
	}
	plan, err := r.Reconcile(items("c", "d", "a"))
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(plan.Enter); got != "[{d }]" {
		t.Errorf("Enter = %v", got)
	}
	if got := fmt.Sprint(plan.Update); got != "[{c } {a }]" {
		t.Errorf("Update = %v", got)
	}
	if got := fmt.Sprint(plan.Exit); got != "[{b }]" {
		t.Errorf("Exit = %v", got)
	}
	if got := fmt.Sprint(r.Keys()); got != "[{c } {d } {a }]" {
		t.Errorf("Keys() = %v, want item order", got)
	}
}

func TestRepeatedCallUpdates(t *testing.T) {
	surface := newMemSurface()
	r := New("bars", surface, WithDuration(0))

	first, _ := r.Reconcile(items("a", "b"))
	second, _ := r.Reconcile(items("a", "b"))

	if len(first.Enter) != 2 || len(second.Enter) != 0 || len(second.Update) != 2 {
		t.Errorf("plans = %+v then %+v", first, second)
	}
	if surface.created != 2 || len(surface.live) != 2 {
		t.Errorf("surface created %d marks, holds %d; want 2 and 2", surface.created, len(surface.live))
	}
}

func TestDuplicateIdentity(t *testing.T) {
	surface := newMemSurface()
	r := New("bars", surface)
	if _, err := r.Reconcile(items("a")); err != nil {
		t.Fatal(err)
	}
	ops := surface.created + surface.updated + len(surface.removed)

	_, err := r.Reconcile(items("x", "y", "x"))
	if !errors.Is(err, errors.ErrCodeDuplicateIdentity) {
		t.Fatalf("error = %v, want DUPLICATE_IDENTITY", err)
	}
	if got := fmt.Sprint(r.Keys()); got != "[{a }]" {
		t.Errorf("rejected call changed Keys() to %v", got)
	}
	if surface.created+surface.updated+len(surface.removed) != ops {
		t.Error("rejected call touched the surface")
	}
}

func TestCheck(t *testing.T) {
	surface := newMemSurface()
	r := New("bars", surface)
	if err := r.Check(items("a", "b")); err != nil {
		t.Errorf("Check(distinct) = %v", err)
	}
	if err := r.Check(items("a", "a")); !errors.Is(err, errors.ErrCodeDuplicateIdentity) {
		t.Errorf("Check(duplicate) = %v, want DUPLICATE_IDENTITY", err)
	}
	if surface.created+surface.updated+len(surface.removed) != 0 {
		t.Error("Check should not touch the surface")
	}
	if err := New("bars", surface, WithLastWins()).Check(items("a", "a")); err != nil {
		t.Errorf("Check with last-wins = %v", err)
	}
	r.Dispose()
	if err := r.Check(nil); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("Check after Dispose = %v, want DISPOSED", err)
	}
}

func TestLastWins(t *testing.T) {
	r := New("bars", newMemSurface(), WithDuration(0), WithLastWins())
	in := items("x", "y", "x")
	in[2].Attrs.H = 42

	plan, err := r.Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(plan.Enter); got != "[{y } {x }]" {
		t.Errorf("Enter = %v", got)
	}
	m, _ := r.Mark(Key{Group: "x"})
	if m.Target().H != 42 {
		t.Errorf("x target H = %v, want last item's 42", m.Target().H)
	}
}

func TestEnterTransition(t *testing.T) {
	clock := newFakeClock()
	r := New("bars", newMemSurface(), WithClock(clock.Now), WithDuration(100*time.Millisecond), WithEase(EaseLinear))

	in := items("a")
	in[0].Attrs.Y = 20
	in[0].Attrs.H = 80
	if _, err := r.Reconcile(in); err != nil {
		t.Fatal(err)
	}
	m, _ := r.Mark(Key{Group: "a"})

	start := m.At(clock.Now())
	if start.H != 0 || start.Y != 100 {
		t.Errorf("enter pose = y %v h %v, want y 100 h 0", start.Y, start.H)
	}
	clock.Advance(50 * time.Millisecond)
	if mid := m.At(clock.Now()); mid.H != 40 || mid.Y != 60 {
		t.Errorf("midway = y %v h %v, want y 60 h 40", mid.Y, mid.H)
	}
	clock.Advance(time.Second)
	if !m.Transition.Done(clock.Now()) {
		t.Error("transition should be done")
	}
	if end := m.At(clock.Now()); end.H != 80 || end.Y != 20 {
		t.Errorf("end = y %v h %v, want y 20 h 80", end.Y, end.H)
	}
}

func TestUpdateRetargetsFromCurrent(t *testing.T) {
	clock := newFakeClock()
	r := New("bars", newMemSurface(), WithClock(clock.Now), WithDuration(100*time.Millisecond), WithEase(EaseLinear))

	in := items("a")
	in[0].Attrs.Y, in[0].Attrs.H = 0, 100
	r.Reconcile(in)
	clock.Advance(100 * time.Millisecond)

	in[0].Attrs.Y, in[0].Attrs.H = 100, 0
	r.Reconcile(in)
	clock.Advance(50 * time.Millisecond)

	// Retarget mid-flight: the new transition must begin where the mark is now.
	in[0].Attrs.Y, in[0].Attrs.H = 0, 100
	plan, _ := r.Reconcile(in)
	if len(plan.Update) != 1 {
		t.Fatalf("plan = %+v, want one update", plan)
	}
	m, _ := r.Mark(Key{Group: "a"})
	if from := m.Transition.From; from.H != 50 || from.Y != 50 {
		t.Errorf("retarget from = y %v h %v, want y 50 h 50", from.Y, from.H)
	}
	if !m.Transition.Start.Equal(clock.Now()) {
		t.Error("retargeted transition should start now")
	}
}

func TestZeroDurationSnaps(t *testing.T) {
	clock := newFakeClock()
	r := New("bars", newMemSurface(), WithClock(clock.Now), WithDuration(0))

	r.Reconcile(items("a"))
	m, _ := r.Mark(Key{Group: "a"})
	if m.Transition.From != m.Transition.To {
		t.Errorf("snap transition from %+v to %+v", m.Transition.From, m.Transition.To)
	}
	if !m.Transition.Done(clock.Now()) {
		t.Error("zero-duration transition should be done immediately")
	}
}

func TestExit(t *testing.T) {
	clock := newFakeClock()
	surface := newMemSurface()
	r := New("bars", surface, WithClock(clock.Now), WithDuration(200*time.Millisecond))

	r.Reconcile(items("a", "b"))
	clock.Advance(time.Second)
	plan, _ := r.Reconcile(items("a"))

	if got := fmt.Sprint(plan.Exit); got != "[{b }]" {
		t.Fatalf("Exit = %v", got)
	}
	if _, ok := r.Mark(Key{Group: "b"}); ok {
		t.Error("exiting mark should leave the identity map immediately")
	}
	if len(surface.removed) != 1 {
		t.Fatalf("surface saw %d removals, want 1", len(surface.removed))
	}
	gone := surface.removed[0]
	if gone.Transition.Duration != 200*time.Millisecond {
		t.Errorf("exit duration = %v", gone.Transition.Duration)
	}
	if end := gone.Transition.To; end.H != 0 || end.Opacity != 0 {
		t.Errorf("exit pose = %+v, want collapsed and transparent", end)
	}
}

func TestReenterRevivesExitingMark(t *testing.T) {
	clock := newFakeClock()
	surface := newMemSurface()
	r := New("bars", surface, WithClock(clock.Now), WithDuration(200*time.Millisecond), WithEase(EaseLinear))

	in := []Item{{Key: Key{Group: "a", Series: "reading"}, Kind: Rect, Attrs: Attrs{Y: 0, H: 100, W: 10, Opacity: 1}}}
	r.Reconcile(in)
	first, _ := r.Mark(in[0].Key)
	clock.Advance(time.Second)
	r.Reconcile(nil)
	clock.Advance(100 * time.Millisecond)

	plan, err := r.Reconcile(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Enter) != 1 {
		t.Fatalf("plan = %+v, want one enter", plan)
	}
	if surface.created != 1 {
		t.Errorf("created %d marks, want the exiting one revived", surface.created)
	}
	if len(surface.live) != 1 || len(surface.fading) != 0 {
		t.Errorf("surface shows %d live and %d fading marks, want 1 and 0", len(surface.live), len(surface.fading))
	}
	m, _ := r.Mark(in[0].Key)
	if m.ID != first.ID {
		t.Errorf("revived mark id = %d, want %d", m.ID, first.ID)
	}
	// Halfway through the exit the bar is half collapsed; it grows back from there.
	if from := m.Transition.From; from.H != 50 || from.Y != 50 {
		t.Errorf("revive from = y %v h %v, want y 50 h 50", from.Y, from.H)
	}

	// Once the exit has finished, the identity enters as a new mark.
	r.Reconcile(nil)
	clock.Advance(time.Second)
	r.Reconcile(in)
	if surface.created != 2 {
		t.Errorf("created = %d after a finished exit, want 2", surface.created)
	}
}

func TestDisposeRemovesExitingMarks(t *testing.T) {
	clock := newFakeClock()
	surface := newMemSurface()
	r := New("bars", surface, WithClock(clock.Now), WithDuration(200*time.Millisecond))

	r.Reconcile(items("a", "b"))
	clock.Advance(time.Second)
	r.Reconcile(items("a"))
	clock.Advance(50 * time.Millisecond)
	if len(surface.fading) != 1 {
		t.Fatalf("fading = %d, want the exiting b", len(surface.fading))
	}

	if n := r.Dispose(); n != 1 {
		t.Errorf("Dispose() = %d, want 1", n)
	}
	if len(surface.live) != 0 || len(surface.fading) != 0 {
		t.Errorf("surface still holds %d live and %d fading marks", len(surface.live), len(surface.fading))
	}
}

func TestEmptyItemsIsValid(t *testing.T) {
	r := New("bars", newMemSurface())
	r.Reconcile(items("a", "b"))
	plan, err := r.Reconcile(nil)
	if err != nil {
		t.Fatalf("empty reconcile: %v", err)
	}
	if len(plan.Exit) != 2 || r.Len() != 0 {
		t.Errorf("plan = %+v, Len = %d", plan, r.Len())
	}
}

func TestDispose(t *testing.T) {
	surface := newMemSurface()
	r := New("bars", surface)
	r.Reconcile(items("a", "b", "c"))

	if n := r.Dispose(); n != 3 {
		t.Errorf("Dispose() = %d, want 3", n)
	}
	if len(surface.live) != 0 {
		t.Errorf("surface still holds %d marks", len(surface.live))
	}
	for _, m := range surface.removed {
		if m.Transition.Duration != 0 {
			t.Errorf("disposed mark %s animated for %v", m.Key, m.Transition.Duration)
		}
	}
	if _, err := r.Reconcile(items("a")); !errors.Is(err, errors.ErrCodeDisposed) {
		t.Errorf("Reconcile after Dispose error = %v, want DISPOSED", err)
	}
	if n := r.Dispose(); n != 0 {
		t.Errorf("second Dispose() = %d, want 0", n)
	}
	if !r.Disposed() || r.Len() != 0 {
		t.Error("reconciler should report disposed and empty")
	}
}

type countingHooks struct {
	observability.NoopReconcileHooks
	enter, update, exit int
	errs                int
}

func (h *countingHooks) OnReconcile(_ string, enter, update, exit int, err error) {
	h.enter += enter
	h.update += update
	h.exit += exit
	if err != nil {
		h.errs++
	}
}

func TestReconcileHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetReconcileHooks(hooks)
	defer observability.Reset()

	r := New("bars", newMemSurface(), WithDuration(0))
	r.Reconcile(items("a", "b"))
	r.Reconcile(items("b", "c"))
	r.Reconcile(items("c", "c"))

	if hooks.enter != 3 || hooks.update != 1 || hooks.exit != 1 || hooks.errs != 1 {
		t.Errorf("hooks saw %+v", *hooks)
	}
}

func TestLerp(t *testing.T) {
	a := Attrs{X: 0, H: 10, Fill: "#000000", Opacity: 0, Text: "old"}
	b := Attrs{X: 10, H: 20, Fill: "#ffffff", Opacity: 1, Text: "new"}

	if got := Lerp(a, b, 0); got.X != 0 || got.Fill != "#000000" || got.Text != "new" {
		t.Errorf("Lerp(0) = %+v", got)
	}
	if got := Lerp(a, b, 1); got != b {
		t.Errorf("Lerp(1) = %+v, want %+v", got, b)
	}
	mid := Lerp(a, b, 0.5)
	if mid.X != 5 || mid.H != 15 || mid.Opacity != 0.5 {
		t.Errorf("Lerp(0.5) numbers = %+v", mid)
	}
	if mid.Fill == a.Fill || mid.Fill == b.Fill || len(mid.Fill) != 7 {
		t.Errorf("Lerp(0.5) fill = %q, want an in-between hex color", mid.Fill)
	}

	// Unparseable colors switch halfway.
	c := Lerp(Attrs{Fill: "none"}, Attrs{Fill: "#ffffff"}, 0.25)
	if c.Fill != "none" {
		t.Errorf("Lerp fill = %q, want none", c.Fill)
	}
}

func TestEaseCubicInOut(t *testing.T) {
	tests := []struct{ in, want float64 }{{0, 0}, {0.5, 0.5}, {1, 1}, {0.25, 0.0625}}
	for _, tt := range tests {
		if got := EaseCubicInOut(tt.in); got != tt.want {
			t.Errorf("EaseCubicInOut(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Group: "male"}, "male"},
		{Key{Group: "group A", Series: "math"}, "group A/math"},
		{Key{Group: "12", Series: "free/reduced"}, "12/free%2Freduced"},
		{Key{Group: "free/reduced", Series: "average"}, "free%2Freduced/average"},
		{Key{Group: "free/reduced"}, "free%2Freduced"},
		{Key{Group: "100%", Series: "a/b/c"}, "100%25/a%2Fb%2Fc"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := ParseKey(tt.key.String()); got != tt.key {
			t.Errorf("ParseKey(%q) = %+v, want %+v", tt.key.String(), got, tt.key)
		}
	}
	if got := (Key{Group: "free/reduced", Series: "average"}).Label(); got != "free/reduced/average" {
		t.Errorf("Label() = %q", got)
	}
}

func ExampleReconciler_Reconcile() {
	r := New("bars", newMemSurface(), WithDuration(0))
	r.Reconcile(items("male", "female"))
	plan, _ := r.Reconcile(items("female", "other"))
	fmt.Println("enter:", plan.Enter)
	fmt.Println("update:", plan.Update)
	fmt.Println("exit:", plan.Exit)
	// Output:
	// enter: [{other }]
	// update: [{female }]
	// exit: [{male }]
}
