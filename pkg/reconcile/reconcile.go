// Package reconcile keeps a chart's visual marks in step with its data.
//
// A [Reconciler] owns the identity → mark mapping of one chart layer. Each call
// to [Reconciler.Reconcile] receives the complete list of items that should be
// on screen and diffs it against the previous call:
//
//   - exit: identities no longer present are handed to the surface for removal
//     with a shrink/fade transition, and leave the mapping at once.
//   - enter: new identities are created at an entry pose and transition to
//     their target. An identity whose exit is still playing is revived from
//     its current pose instead.
//   - update: surviving identities transition from wherever they currently
//     are (possibly mid-flight) to their new target.
//
// Transitions are data ([Transition]); the reconciler never sleeps or ticks.
// A scheduler outside the package interpolates them with [Transition.At].
//
//	r := reconcile.New("bars", scene, reconcile.WithDuration(300*time.Millisecond))
//	plan, err := r.Reconcile([]reconcile.Item{
//	    {Key: reconcile.Key{Group: "male"}, Kind: reconcile.Rect, Attrs: a},
//	})
package reconcile

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/matzehuels/scoreslides/pkg/errors"
	"github.com/matzehuels/scoreslides/pkg/observability"
)

// DefaultDuration is the transition duration used when none is configured.
const DefaultDuration = 500 * time.Millisecond

// Surface receives mark operations. Remove hands over a mark whose transition
// ends at its exit pose; the surface deletes it once the transition is done.
type Surface interface {
	Create(m Mark)
	Update(m Mark)
	Remove(m Mark)
}

// Item is one entry of the data to display.
type Item struct {
	Key   Key
	Kind  Kind
	Attrs Attrs
	Datum any
}

// Plan lists the identities of one reconciliation, in item order for enter and
// update and in previous order for exit.
type Plan struct {
	Enter  []Key `json:"enter"`
	Update []Key `json:"update"`
	Exit   []Key `json:"exit"`
}

// Empty reports whether the plan did nothing.
func (p Plan) Empty() bool {
	return len(p.Enter) == 0 && len(p.Update) == 0 && len(p.Exit) == 0
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the time source used to stamp transitions.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDuration sets the shared duration of every transition. Zero disables
// animation: marks snap to their targets.
func WithDuration(d time.Duration) Option {
	return func(r *Reconciler) {
		if d < 0 {
			d = 0
		}
		r.duration = d
	}
}

// WithEase sets the easing applied to every transition.
func WithEase(e Ease) Option {
	return func(r *Reconciler) { r.ease = e }
}

// WithLastWins makes duplicate identities within one call resolve to the
// last item in input order instead of failing with DUPLICATE_IDENTITY.
func WithLastWins() Option {
	return func(r *Reconciler) { r.lastWins = true }
}

// WithEnterPose overrides the pose new marks start from.
func WithEnterPose(f func(Kind, Attrs) Attrs) Option {
	return func(r *Reconciler) {
		if f != nil {
			r.enterPose = f
		}
	}
}

// WithExitPose overrides the pose removed marks end at.
func WithExitPose(f func(Kind, Attrs) Attrs) Option {
	return func(r *Reconciler) {
		if f != nil {
			r.exitPose = f
		}
	}
}

var markIDs atomic.Uint64

// Reconciler maintains the marks of one chart layer.
type Reconciler struct {
	name      string
	surface   Surface
	now       func() time.Time
	duration  time.Duration
	ease      Ease
	lastWins  bool
	enterPose func(Kind, Attrs) Attrs
	exitPose  func(Kind, Attrs) Attrs

	mu       sync.Mutex
	marks    map[Key]Mark
	order    []Key
	exiting  map[Key]Mark
	disposed bool
}

// New creates a reconciler named name drawing on s.
func New(name string, s Surface, opts ...Option) *Reconciler {
	r := &Reconciler{
		name:      name,
		surface:   s,
		now:       time.Now,
		duration:  DefaultDuration,
		ease:      EaseCubicInOut,
		enterPose: EnterPose,
		exitPose:  ExitPose,
		marks:     make(map[Key]Mark),
		exiting:   make(map[Key]Mark),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the layer name.
func (r *Reconciler) Name() string { return r.name }

// Duration returns the transition duration.
func (r *Reconciler) Duration() time.Duration { return r.duration }

// Reconcile makes the layer show exactly items. It fails without touching the
// surface when two items share a key (unless WithLastWins is set) or when the
// reconciler has been disposed.
func (r *Reconciler) Reconcile(items []Item) (Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := r.reconcile(items)
	observability.Reconcile().OnReconcile(r.name, len(plan.Enter), len(plan.Update), len(plan.Exit), err)
	return plan, err
}

func (r *Reconciler) reconcile(items []Item) (Plan, error) {
	if r.disposed {
		return Plan{}, errors.New(errors.ErrCodeDisposed, "reconciler %q is disposed", r.name)
	}

	items, err := r.dedupe(items)
	if err != nil {
		return Plan{}, err
	}

	now := r.now()
	next := make(map[Key]Mark, len(items))
	order := make([]Key, 0, len(items))
	for _, it := range items {
		next[it.Key] = Mark{Key: it.Key}
		order = append(order, it.Key)
	}

	for k, m := range r.exiting {
		if m.Transition.Done(now) {
			delete(r.exiting, k)
		}
	}

	var plan Plan
	for _, k := range r.order {
		if _, keep := next[k]; keep {
			continue
		}
		m := r.marks[k]
		current := m.At(now)
		m.Transition = r.transition(current, r.exitPose(m.Kind, current), now)
		r.surface.Remove(m)
		r.exiting[k] = m
		plan.Exit = append(plan.Exit, k)
	}

	for _, it := range items {
		kind := it.Kind
		if kind == "" {
			kind = Rect
		}
		if old, ok := r.marks[it.Key]; ok {
			m := old
			m.Kind = kind
			m.Datum = it.Datum
			m.Transition = r.transition(old.At(now), it.Attrs, now)
			next[it.Key] = m
			r.surface.Update(m)
			plan.Update = append(plan.Update, it.Key)
			continue
		}
		if gone, ok := r.exiting[it.Key]; ok {
			delete(r.exiting, it.Key)
			m := gone
			m.Kind = kind
			m.Datum = it.Datum
			m.Transition = r.transition(gone.At(now), it.Attrs, now)
			next[it.Key] = m
			r.surface.Update(m)
			plan.Enter = append(plan.Enter, it.Key)
			continue
		}
		m := Mark{
			ID:    markIDs.Add(1),
			Layer: r.name,
			Key:   it.Key,
			Kind:  kind,
			Datum: it.Datum,
		}
		m.Transition = r.transition(r.enterPose(kind, it.Attrs), it.Attrs, now)
		next[it.Key] = m
		r.surface.Create(m)
		plan.Enter = append(plan.Enter, it.Key)
	}

	r.marks = next
	r.order = order
	return plan, nil
}

// Check reports the error Reconcile would return for items without touching
// the surface.
func (r *Reconciler) Check(items []Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return errors.New(errors.ErrCodeDisposed, "reconciler %q is disposed", r.name)
	}
	_, err := r.dedupe(items)
	return err
}

func (r *Reconciler) transition(from, to Attrs, now time.Time) Transition {
	if r.duration == 0 {
		from = to
	}
	return Transition{From: from, To: to, Start: now, Duration: r.duration, Ease: r.ease}
}

// dedupe rejects duplicate keys, or keeps the last occurrence of each key
// when last-wins is enabled.
func (r *Reconciler) dedupe(items []Item) ([]Item, error) {
	last := make(map[Key]int, len(items))
	dup := false
	for i, it := range items {
		if _, seen := last[it.Key]; seen {
			if !r.lastWins {
				return nil, errors.New(errors.ErrCodeDuplicateIdentity, "layer %q: duplicate identity %s", r.name, it.Key)
			}
			dup = true
		}
		last[it.Key] = i
	}
	if !dup {
		return items, nil
	}
	out := make([]Item, 0, len(last))
	for i, it := range items {
		if last[it.Key] == i {
			out = append(out, it)
		}
	}
	return out, nil
}

// Keys returns the live identities in the order of the last call.
func (r *Reconciler) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of live marks.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Mark returns the live mark for k.
func (r *Reconciler) Mark(k Key) (Mark, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.marks[k]
	return m, ok
}

// Marks returns the live marks in the order of the last call.
func (r *Reconciler) Marks() []Mark {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mark, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.marks[k])
	}
	return out
}

// Dispose removes every mark from the surface without animation, including
// marks still playing their exit, and rejects later calls with DISPOSED. It
// returns the number of live marks removed and is safe to call more than once.
func (r *Reconciler) Dispose() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return 0
	}
	now := r.now()
	for _, k := range r.order {
		m := r.marks[k]
		end := m.At(now)
		m.Transition = Transition{From: end, To: end, Start: now}
		r.surface.Remove(m)
	}
	for _, m := range r.exiting {
		end := m.At(now)
		m.Transition = Transition{From: end, To: end, Start: now}
		r.surface.Remove(m)
	}
	n := len(r.order)
	r.marks = nil
	r.order = nil
	r.exiting = nil
	r.disposed = true
	observability.Reconcile().OnDispose(r.name, n)
	return n
}

// Disposed reports whether Dispose has been called.
func (r *Reconciler) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}
