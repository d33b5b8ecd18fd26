package protocol

import (
	"encoding/binary"

	"github.com/vango-dev/sprout/pkg/id"
)

// Encoder appends little-endian values to a growing buffer. Writes never
// fail.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a small preallocated buffer.
func NewEncoder() *Encoder { return NewEncoderWithCap(256) }

// NewEncoderWithCap returns an Encoder whose buffer starts with capacity n.
func NewEncoderWithCap(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// Reset empties the buffer, keeping its capacity.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the encoded data. It aliases the internal buffer until the
// next write or Reset.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len is the number of encoded bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// PutByte appends b.
func (e *Encoder) PutByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends b without a length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteBool appends 1 for true and 0 for false.
func (e *Encoder) WriteBool(v bool) {
	var b byte
	if v {
		b = 1
	}
	e.PutByte(b)
}

func (e *Encoder) WriteUint32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *Encoder) WriteUint64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// WriteLen appends a length or element count as a u32.
func (e *Encoder) WriteLen(n int) { e.WriteUint32(uint32(n)) }

// WriteString appends len(s) as a u32 followed by the bytes of s.
func (e *Encoder) WriteString(s string) {
	e.WriteLen(len(s))
	e.buf = append(e.buf, s...)
}

// WriteLenBytes is WriteString for byte slices.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteLen(len(b))
	e.WriteBytes(b)
}

// WriteID appends a presence byte, then the 8-byte id unless it is Empty.
func (e *Encoder) WriteID(v id.ID) {
	e.WriteBool(!v.IsEmpty())
	if !v.IsEmpty() {
		e.WriteUint64(uint64(v))
	}
}

// WriteOptString appends a presence byte, then s unless it is "".
func (e *Encoder) WriteOptString(s string) {
	e.WriteBool(s != "")
	if s != "" {
		e.WriteString(s)
	}
}
