package view

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Event is one user interaction. The set of events is closed: only the types
// in this package implement it.
type Event interface {
	// Kind returns the wire name of the event.
	Kind() string
	event()
}

// MetricSelected switches the measured quantity.
type MetricSelected struct{ Name string }

// SortRequested sorts categories by Key. An empty Key restores insertion order.
type SortRequested struct{ Key string }

// SeriesToggled flips the visibility of one series.
type SeriesToggled struct{ Key string }

// SlideAdvance moves Delta slides forward (negative for backward).
type SlideAdvance struct{ Delta int }

// HoverChanged reports the pointer entering (Active) or leaving a mark.
// Key is the mark identity as rendered by reconcile.Key.String.
type HoverChanged struct {
	Key    string
	Active bool
}

// Event kinds.
const (
	KindMetric = "metric"
	KindSort   = "sort"
	KindToggle = "toggle"
	KindSlide  = "slide"
	KindHover  = "hover"
)

func (MetricSelected) Kind() string { return KindMetric }
func (SortRequested) Kind() string  { return KindSort }
func (SeriesToggled) Kind() string  { return KindToggle }
func (SlideAdvance) Kind() string   { return KindSlide }
func (HoverChanged) Kind() string   { return KindHover }

func (MetricSelected) event() {}
func (SortRequested) event()  {}
func (SeriesToggled) event()  {}
func (SlideAdvance) event()   {}
func (HoverChanged) event()   {}

func (e MetricSelected) String() string { return "metric " + e.Name }
func (e SortRequested) String() string {
	if e.Key == "" {
		return "sort none"
	}
	return "sort " + e.Key
}
func (e SeriesToggled) String() string { return "toggle " + e.Key }
func (e SlideAdvance) String() string  { return fmt.Sprintf("slide %+d", e.Delta) }
func (e HoverChanged) String() string {
	if e.Active {
		return "hover " + e.Key
	}
	return "unhover " + e.Key
}

// Message is the JSON form of an event.
type Message struct {
	Kind   string `json:"kind"`
	Value  string `json:"value,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// Decode converts a message into an event.
func (m Message) Decode() (Event, error) {
	switch m.Kind {
	case KindMetric:
		return MetricSelected{Name: m.Value}, nil
	case KindSort:
		if m.Value == "none" {
			return SortRequested{}, nil
		}
		return SortRequested{Key: m.Value}, nil
	case KindToggle:
		return SeriesToggled{Key: m.Value}, nil
	case KindSlide:
		switch m.Value {
		case "next", "":
			return SlideAdvance{Delta: 1}, nil
		case "prev":
			return SlideAdvance{Delta: -1}, nil
		}
		d, err := strconv.Atoi(m.Value)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "slide delta %q", m.Value)
		}
		return SlideAdvance{Delta: d}, nil
	case KindHover:
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		return HoverChanged{Key: m.Value, Active: active}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown event kind %q", m.Kind)
}

// Encode converts an event into its JSON message.
func Encode(ev Event) Message {
	switch e := ev.(type) {
	case MetricSelected:
		return Message{Kind: KindMetric, Value: e.Name}
	case SortRequested:
		if e.Key == "" {
			return Message{Kind: KindSort, Value: "none"}
		}
		return Message{Kind: KindSort, Value: e.Key}
	case SeriesToggled:
		return Message{Kind: KindToggle, Value: e.Key}
	case SlideAdvance:
		return Message{Kind: KindSlide, Value: strconv.Itoa(e.Delta)}
	case HoverChanged:
		active := e.Active
		return Message{Kind: KindHover, Value: e.Key, Active: &active}
	}
	return Message{}
}

// DecodeJSON parses a JSON message.
func DecodeJSON(data []byte) (Event, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode event")
	}
	return m.Decode()
}

// Parse reads the textual form used on the command line, for example
// "metric=math", "sort=none", "toggle=reading" or "slide=next".
func Parse(s string) (Event, error) {
	kind, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "event %q: want kind=value", s)
	}
	return Message{Kind: strings.ToLower(kind), Value: value}.Decode()
}
