package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = HardMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

// Outbound frames (runtime → frontend).
const (
	FramePing       FrameType = 0x00 // Heartbeat
	FramePatch      FrameType = 0x01 // Binary patch
	FrameLoadCSS    FrameType = 0x02 // Stylesheet injection
	FrameRunJS      FrameType = 0x03 // Script injection
	FrameServiceTx  FrameType = 0x04 // Service payload to the frontend
	FramePropagate  FrameType = 0x05 // Event propagation directive
	FrameDialogOpen FrameType = 0x06 // Open a modal dialog
)

// Inbound frames (frontend → runtime).
const (
	FrameEvent        FrameType = 0x10 // DOM event
	FrameApplied      FrameType = 0x11 // Patch applied acknowledgement
	FrameServiceRx    FrameType = 0x12 // Service payload from the frontend
	FrameDialogResult FrameType = 0x13 // Dialog resolution
	FrameRPC          FrameType = 0x14 // Element RPC call
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FramePing:
		return "Ping"
	case FramePatch:
		return "Patch"
	case FrameLoadCSS:
		return "LoadCSS"
	case FrameRunJS:
		return "RunJS"
	case FrameServiceTx:
		return "ServiceTx"
	case FramePropagate:
		return "Propagate"
	case FrameDialogOpen:
		return "DialogOpen"
	case FrameEvent:
		return "Event"
	case FrameApplied:
		return "Applied"
	case FrameServiceRx:
		return "ServiceRx"
	case FrameDialogResult:
		return "DialogResult"
	case FrameRPC:
		return "RPC"
	default:
		return "Unknown"
	}
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame represents a protocol frame with header and payload.
//
// Wire format (6 bytes header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, little-endian)      │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│                                                             │
//	│  Payload (variable length)                                  │
//	│                                                             │
//	└─────────────────────────────────────────────────────────────┘
//
// Flags are reserved and written as zero.
type Frame struct {
	Type    FrameType
	Flags   uint8
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = f.Flags
	binary.LittleEndian.PutUint32(buf[2:], uint32(length))
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes a frame from bytes.
// The input must contain at least the header (6 bytes) and full payload.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	flags := data[1]
	length := int(binary.LittleEndian.Uint32(data[2:]))

	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	if ft.String() == "Unknown" {
		return nil, ErrInvalidFrameType
	}

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: data[FrameHeaderSize : FrameHeaderSize+length],
	}, nil
}
