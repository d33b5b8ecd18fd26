package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vango-dev/sprout/pkg/id"
)

// TxServiceKind identifies an outbound service payload.
type TxServiceKind string

const (
	ServiceFrontend TxServiceKind = "frontend" // Opaque data for the frontend half of a service
	ServiceRunJS    TxServiceKind = "run_js"   // Script to evaluate in the service's context
	ServiceLoadCSS  TxServiceKind = "load_css" // Stylesheet to load
)

// TxServiceMessage is a message from a service to its frontend half.
type TxServiceMessage struct {
	Kind TxServiceKind `json:"kind"`
	Data []byte        `json:"data,omitempty"`
	Text string        `json:"text,omitempty"`
}

// RxServiceKind identifies an inbound service payload.
type RxServiceKind string

const (
	ServiceData RxServiceKind = "frontend" // Data produced by the frontend half
	ServiceStop RxServiceKind = "stop"     // The frontend half terminated
)

// RxServiceMessage is a message from the frontend half of a service.
type RxServiceMessage struct {
	Kind RxServiceKind `json:"kind"`
	Data string        `json:"data,omitempty"`
}

// RPCCall is an element-level remote call from the frontend.
type RPCCall struct {
	Target id.ID           `json:"target"`
	Args   json.RawMessage `json:"args"`
}

// TxMsg is a message from the runtime to the frontend.
// Type selects which of the remaining fields is meaningful.
type TxMsg struct {
	Type      FrameType
	Patch     []byte           // FramePatch
	Text      string           // FrameLoadCSS, FrameRunJS
	ServiceID id.ID            // FrameServiceTx
	Service   TxServiceMessage // FrameServiceTx
	Propagate EventPropagate   // FramePropagate
	Dialog    json.RawMessage  // FrameDialogOpen
}

// Ping creates a heartbeat message.
func Ping() TxMsg { return TxMsg{Type: FramePing} }

// PatchMsg wraps an encoded patch.
func PatchMsg(patch []byte) TxMsg { return TxMsg{Type: FramePatch, Patch: patch} }

// LoadCSS creates a stylesheet injection message.
func LoadCSS(css string) TxMsg { return TxMsg{Type: FrameLoadCSS, Text: css} }

// RunJS creates a script injection message.
func RunJS(js string) TxMsg { return TxMsg{Type: FrameRunJS, Text: js} }

// ServiceTx addresses a payload to the frontend half of a service.
func ServiceTx(service id.ID, msg TxServiceMessage) TxMsg {
	return TxMsg{Type: FrameServiceTx, ServiceID: service, Service: msg}
}

// PropagateMsg wraps a propagation directive.
func PropagateMsg(p EventPropagate) TxMsg { return TxMsg{Type: FramePropagate, Propagate: p} }

// DialogOpen wraps a dialog payload.
func DialogOpen(payload json.RawMessage) TxMsg { return TxMsg{Type: FrameDialogOpen, Dialog: payload} }

// Encode encodes the message as a frame.
func (m TxMsg) Encode() ([]byte, error) {
	var payload []byte
	switch m.Type {
	case FramePing:
	case FramePatch:
		payload = m.Patch
	case FrameLoadCSS, FrameRunJS:
		payload = []byte(m.Text)
	case FrameServiceTx:
		body, err := json.Marshal(m.Service)
		if err != nil {
			return nil, err
		}
		payload = servicePayload(m.ServiceID, body)
	case FramePropagate:
		body, err := json.Marshal(m.Propagate)
		if err != nil {
			return nil, err
		}
		payload = body
	case FrameDialogOpen:
		payload = m.Dialog
	default:
		return nil, fmt.Errorf("%w: %s is not outbound", ErrInvalidFrameType, m.Type)
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	return NewFrame(m.Type, payload).Encode(), nil
}

// DecodeTx decodes an outbound frame. Frontends and tools use it.
func DecodeTx(data []byte) (TxMsg, error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return TxMsg{}, err
	}
	m := TxMsg{Type: f.Type}
	switch f.Type {
	case FramePing:
	case FramePatch:
		m.Patch = append([]byte(nil), f.Payload...)
	case FrameLoadCSS, FrameRunJS:
		m.Text = string(f.Payload)
	case FrameServiceTx:
		sid, body, err := splitServicePayload(f.Payload)
		if err != nil {
			return TxMsg{}, err
		}
		m.ServiceID = sid
		if err := json.Unmarshal(body, &m.Service); err != nil {
			return TxMsg{}, err
		}
	case FramePropagate:
		if err := json.Unmarshal(f.Payload, &m.Propagate); err != nil {
			return TxMsg{}, err
		}
	case FrameDialogOpen:
		m.Dialog = append(json.RawMessage(nil), f.Payload...)
	default:
		return TxMsg{}, fmt.Errorf("%w: %s is not outbound", ErrInvalidFrameType, f.Type)
	}
	return m, nil
}

// RxMsg is a message from the frontend to the runtime.
type RxMsg struct {
	Type      FrameType
	Event     DomEvent         // FrameEvent
	ServiceID id.ID            // FrameServiceRx
	Service   RxServiceMessage // FrameServiceRx
	Dialog    json.RawMessage  // FrameDialogResult
	RPC       RPCCall          // FrameRPC
}

// EventMsg wraps a DOM event.
func EventMsg(e DomEvent) RxMsg { return RxMsg{Type: FrameEvent, Event: e} }

// Applied acknowledges that the last patch was applied.
func Applied() RxMsg { return RxMsg{Type: FrameApplied} }

// ServiceRx addresses a payload to a service.
func ServiceRx(service id.ID, msg RxServiceMessage) RxMsg {
	return RxMsg{Type: FrameServiceRx, ServiceID: service, Service: msg}
}

// DialogResult wraps a dialog resolution.
func DialogResult(payload json.RawMessage) RxMsg {
	return RxMsg{Type: FrameDialogResult, Dialog: payload}
}

// RPCMsg wraps an element RPC call.
func RPCMsg(target id.ID, args json.RawMessage) RxMsg {
	return RxMsg{Type: FrameRPC, RPC: RPCCall{Target: target, Args: args}}
}

// Encode encodes the message as a frame. Frontends and tests use it.
func (m RxMsg) Encode() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch m.Type {
	case FrameEvent:
		payload, err = json.Marshal(m.Event)
	case FrameApplied:
	case FrameServiceRx:
		var body []byte
		if body, err = json.Marshal(m.Service); err == nil {
			payload = servicePayload(m.ServiceID, body)
		}
	case FrameDialogResult:
		payload = m.Dialog
	case FrameRPC:
		payload, err = json.Marshal(m.RPC)
	default:
		return nil, fmt.Errorf("%w: %s is not inbound", ErrInvalidFrameType, m.Type)
	}
	if err != nil {
		return nil, err
	}
	return NewFrame(m.Type, payload).Encode(), nil
}

// DecodeRx decodes an inbound frame.
func DecodeRx(data []byte) (RxMsg, error) {
	f, err := DecodeFrame(data)
	if err != nil {
		return RxMsg{}, err
	}
	m := RxMsg{Type: f.Type}
	switch f.Type {
	case FrameEvent:
		if m.Event, err = DecodeEvent(f.Payload); err != nil {
			return RxMsg{}, err
		}
	case FrameApplied:
	case FrameServiceRx:
		sid, body, err := splitServicePayload(f.Payload)
		if err != nil {
			return RxMsg{}, err
		}
		m.ServiceID = sid
		if err := json.Unmarshal(body, &m.Service); err != nil {
			return RxMsg{}, err
		}
	case FrameDialogResult:
		m.Dialog = append(json.RawMessage(nil), f.Payload...)
	case FrameRPC:
		if err := json.Unmarshal(f.Payload, &m.RPC); err != nil {
			return RxMsg{}, err
		}
	default:
		return RxMsg{}, fmt.Errorf("%w: %s is not inbound", ErrInvalidFrameType, f.Type)
	}
	return m, nil
}

func servicePayload(service id.ID, body []byte) []byte {
	e := NewEncoderWithCap(8 + len(body))
	e.WriteUint64(uint64(service))
	e.WriteBytes(body)
	return e.Bytes()
}

func splitServicePayload(payload []byte) (id.ID, []byte, error) {
	d := NewDecoder(payload)
	sid, err := d.ReadUint64()
	if err != nil {
		return id.Empty, nil, err
	}
	body, _ := d.ReadBytes(d.Remaining())
	return id.ID(sid), body, nil
}
