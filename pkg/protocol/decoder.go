package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/vango-dev/sprout/pkg/id"
)

// Limits applied to length prefixes read from untrusted input.
const (
	// DefaultMaxAllocation caps strings (4MB).
	DefaultMaxAllocation = 4 << 20

	// HardMaxAllocation caps byte payloads such as blobs (16MB).
	HardMaxAllocation = 16 << 20

	// MaxCollectionCount caps element counts.
	MaxCollectionCount = 100_000
)

// Decoding errors. Truncated input yields io.ErrUnexpectedEOF.
var (
	ErrInvalidPresence    = errors.New("protocol: invalid presence byte")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads little-endian values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a Decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// EOF reports whether everything has been read.
func (d *Decoder) EOF() bool { return d.pos >= len(d.buf) }

// Position is the offset of the next byte to read.
func (d *Decoder) Position() int { return d.pos }

// take consumes n bytes and returns them without copying.
func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes consumes n bytes. The result aliases the input.
func (d *Decoder) ReadBytes(n int) ([]byte, error) { return d.take(n) }

// ReadBool treats any non-zero byte as true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadCount reads a u32 element count bounded by MaxCollectionCount.
func (d *Decoder) ReadCount() (int, error) {
	n, err := d.ReadUint32()
	switch {
	case err != nil:
		return 0, err
	case n > MaxCollectionCount:
		return 0, ErrCollectionTooLarge
	}
	return int(n), nil
}

// payload reads a u32 length prefix and the bytes it announces.
func (d *Decoder) payload(limit int) ([]byte, error) {
	n, err := d.ReadUint32()
	switch {
	case err != nil:
		return nil, err
	case uint64(n) > uint64(d.Remaining()):
		return nil, io.ErrUnexpectedEOF
	case uint64(n) > uint64(limit):
		return nil, ErrAllocationTooLarge
	}
	return d.take(int(n))
}

// ReadString reads a length-prefixed string of at most DefaultMaxAllocation bytes.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.payload(DefaultMaxAllocation)
	return string(b), err
}

// ReadLenBytes reads a length-prefixed payload of at most
// HardMaxAllocation bytes. The result is a copy.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	b, err := d.payload(HardMaxAllocation)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// present reads a presence byte, which must be 0 or 1.
func (d *Decoder) present() (bool, error) {
	b, err := d.ReadByte()
	switch {
	case err != nil:
		return false, err
	case b > 1:
		return false, ErrInvalidPresence
	}
	return b == 1, nil
}

// ReadID reads an identifier written by Encoder.WriteID.
func (d *Decoder) ReadID() (id.ID, error) {
	ok, err := d.present()
	if !ok || err != nil {
		return id.Empty, err
	}
	v, err := d.ReadUint64()
	return id.ID(v), err
}

// ReadOptString reads a string written by Encoder.WriteOptString.
func (d *Decoder) ReadOptString() (string, error) {
	ok, err := d.present()
	if !ok || err != nil {
		return "", err
	}
	return d.ReadString()
}
