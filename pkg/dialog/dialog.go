// Package dialog defines the modal dialogs an application can ask the
// frontend to show, and the bindings that turn a dialog's result back into
// an application message.
//
// Dialogs are sealed: only the kinds declared here can be opened. Each one
// is sent as a JSON object carrying a "__type__" discriminator and resolves
// to a typed result once the user closes it.
package dialog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TypeField is the JSON key carrying a dialog's type name.
const TypeField = "__type__"

// ErrInvalidResult is returned when a dialog result cannot be decoded.
var ErrInvalidResult = errors.New("dialog: invalid result")

// Dialog is a modal dialog resolving to R.
type Dialog[R any] interface {
	// TypeName uniquely identifies the dialog kind on the wire.
	TypeName() string

	resolve(data json.RawMessage) (R, error)
}

// Payload serializes d with its type discriminator.
func Payload[R any](d Dialog[R]) (json.RawMessage, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	name, err := json.Marshal(d.TypeName())
	if err != nil {
		return nil, err
	}
	obj[TypeField] = name
	return json.Marshal(obj)
}

// Binding pairs an open dialog with the function mapping its result into M.
type Binding[M any] interface {
	// Payload is the JSON sent to the frontend.
	Payload() (json.RawMessage, error)
	// Resolve decodes the frontend's answer and maps it to a message.
	Resolve(data json.RawMessage) (M, error)
}

// Bind binds d to fn.
func Bind[R, M any](d Dialog[R], fn func(R) M) Binding[M] {
	return &direct[R, M]{dialog: d, fn: fn}
}

type direct[R, M any] struct {
	dialog Dialog[R]
	fn     func(R) M
}

func (b *direct[R, M]) Payload() (json.RawMessage, error) { return Payload(b.dialog) }

func (b *direct[R, M]) Resolve(data json.RawMessage) (M, error) {
	r, err := b.dialog.resolve(data)
	if err != nil {
		var zero M
		return zero, fmt.Errorf("%s: %w", b.dialog.TypeName(), err)
	}
	return b.fn(r), nil
}

// MapBinding wraps b so its messages are converted by fn. Stacked maps are
// applied innermost first.
func MapBinding[T, M any](b Binding[T], fn func(T) M) Binding[M] {
	return &mapped[T, M]{inner: b, fn: fn}
}

type mapped[T, M any] struct {
	inner Binding[T]
	fn    func(T) M
}

func (b *mapped[T, M]) Payload() (json.RawMessage, error) { return b.inner.Payload() }

func (b *mapped[T, M]) Resolve(data json.RawMessage) (M, error) {
	t, err := b.inner.Resolve(data)
	if err != nil {
		var zero M
		return zero, err
	}
	return b.fn(t), nil
}

// unitOrTagged decodes an externally tagged enum value: either a bare
// string naming a unit variant or a single-key object holding the variant's
// payload.
func unitOrTagged(data json.RawMessage) (variant string, payload json.RawMessage, err error) {
	if err := json.Unmarshal(data, &variant); err == nil {
		return variant, nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) != 1 {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidResult, data)
	}
	for k, v := range obj {
		variant, payload = k, v
	}
	return variant, payload, nil
}
