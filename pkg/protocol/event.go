package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vango-dev/sprout/pkg/id"
)

// EventKind identifies the DOM event variant.
type EventKind string

const (
	EventBase     EventKind = "base"
	EventFocus    EventKind = "focus"
	EventKeyboard EventKind = "keyboard"
	EventMouse    EventKind = "mouse"
	EventWheel    EventKind = "wheel"
)

// ErrInvalidEvent is returned for event payloads that cannot be decoded.
var ErrInvalidEvent = errors.New("protocol: invalid event")

// ValueKind identifies the type of an element's current value.
type ValueKind string

const (
	ValueNone   ValueKind = "none"
	ValueBool   ValueKind = "bool"
	ValueText   ValueKind = "text"
	ValueNumber ValueKind = "number"
)

// InputValue is the target element's value at the time of the event.
type InputValue struct {
	Kind   ValueKind `json:"kind"`
	Bool   bool      `json:"bool,omitempty"`
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
}

// NoValue is the InputValue of targets without a value.
var NoValue = InputValue{Kind: ValueNone}

// BoolValue wraps a checkbox-like value.
func BoolValue(b bool) InputValue { return InputValue{Kind: ValueBool, Bool: b} }

// TextValue wraps a text input value.
func TextValue(s string) InputValue { return InputValue{Kind: ValueText, Text: s} }

// NumberValue wraps a numeric input value.
func NumberValue(f float64) InputValue { return InputValue{Kind: ValueNumber, Number: f} }

// GetBool returns the boolean value, if the value is a boolean.
func (v InputValue) GetBool() (bool, bool) { return v.Bool, v.Kind == ValueBool }

// GetText returns the text value, if the value is text.
func (v InputValue) GetText() (string, bool) { return v.Text, v.Kind == ValueText }

// GetNumber returns the numeric value, if the value is a number.
func (v InputValue) GetNumber() (float64, bool) { return v.Number, v.Kind == ValueNumber }

// ModifierState holds the keyboard modifiers active during an event.
type ModifierState struct {
	Alt   bool `json:"alt_key"`
	Ctrl  bool `json:"ctrl_key"`
	Meta  bool `json:"meta_key"`
	Shift bool `json:"shift_key"`
}

// Point is an (x, y) coordinate.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// KeyboardData is the payload specific to keyboard events.
type KeyboardData struct {
	Code     string `json:"code"`
	Key      string `json:"key"`
	Location int32  `json:"location"`
	Repeat   bool   `json:"repeat"`
}

// MouseData is the payload specific to mouse and wheel events.
type MouseData struct {
	Button  int32 `json:"button"`
	Buttons int32 `json:"buttons"`
	Client  Point `json:"client"`
	Offset  Point `json:"offset"`
	Page    Point `json:"page"`
	Screen  Point `json:"screen"`
}

// WheelData is the payload specific to wheel events.
type WheelData struct {
	DeltaX    float64 `json:"delta_x"`
	DeltaY    float64 `json:"delta_y"`
	DeltaZ    float64 `json:"delta_z"`
	DeltaMode int32   `json:"delta_mode"`
}

// DomEvent is a DOM event reported by the frontend.
//
// Every variant carries the target, the event name and the target value.
// Modifiers are set for keyboard, mouse and wheel events; Keyboard, Mouse
// and Wheel are set for their respective kinds (wheel events carry Mouse too).
type DomEvent struct {
	Kind        EventKind      `json:"kind"`
	Target      id.ID          `json:"target"`
	Name        string         `json:"event_name"`
	TargetValue InputValue     `json:"target_value"`
	Modifiers   *ModifierState `json:"modifier_state,omitempty"`
	Keyboard    *KeyboardData  `json:"keyboard,omitempty"`
	Mouse       *MouseData     `json:"mouse,omitempty"`
	Wheel       *WheelData     `json:"wheel,omitempty"`
}

// NewBaseEvent creates a generic event.
func NewBaseEvent(target id.ID, name string, value InputValue) DomEvent {
	return DomEvent{Kind: EventBase, Target: target, Name: name, TargetValue: value}
}

// Validate checks that the variant-specific payload is present.
func (e *DomEvent) Validate() error {
	switch e.Kind {
	case EventBase, EventFocus:
	case EventKeyboard:
		if e.Keyboard == nil || e.Modifiers == nil {
			return fmt.Errorf("%w: keyboard event without key data", ErrInvalidEvent)
		}
	case EventMouse:
		if e.Mouse == nil || e.Modifiers == nil {
			return fmt.Errorf("%w: mouse event without pointer data", ErrInvalidEvent)
		}
	case EventWheel:
		if e.Wheel == nil || e.Mouse == nil || e.Modifiers == nil {
			return fmt.Errorf("%w: wheel event without wheel data", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.TargetValue.Kind == "" {
		e.TargetValue = NoValue
	}
	return nil
}

// DecodeEvent decodes and validates a JSON event payload.
func DecodeEvent(data []byte) (DomEvent, error) {
	var e DomEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return DomEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return DomEvent{}, err
	}
	return e, nil
}

// EventPropagate tells the frontend what to do with an event it held back:
// whether to continue bubbling and whether to run the default action.
type EventPropagate struct {
	Target        id.ID  `json:"target"`
	Name          string `json:"event_name"`
	Propagate     bool   `json:"propagate"`
	DefaultAction bool   `json:"default_action"`
}
