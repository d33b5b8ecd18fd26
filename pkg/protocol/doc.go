// Package protocol implements the binary wire protocol between a runtime
// and its frontend.
//
// # Wire Format
//
// Byte transports frame every message with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, little-endian)      │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Patches
//
// A patch payload is a flat sequence of tagged operations. Numbers are
// 4-byte little-endian unsigned integers, strings are prefixed with a 4-byte
// length, and identifiers are a presence byte followed by 8 raw bytes.
//
//	[op tag: 1 byte][op payload...][op tag][op payload]...
//
// Element nodes encode as
//
//	0x00 [id] [tag] [attr count] ([key][value])* [event count]
//	     ([no_propagate][prevent_default][name])* [child count] (child)*
//	     [namespace present] ([namespace])?
//
// and text nodes as 0x01 [text].
//
// # Messages
//
// TxMsg values flow from the runtime to the frontend, RxMsg values the other
// way. DOM events, dialogs, propagation directives and RPC arguments travel
// as JSON inside their frames.
package protocol
