// Package domain contains the core value types and errors for faderlink.
//
// This package is the innermost layer. It has no dependencies on transport,
// file system or logging concerns.
//
// # Entities
//
//   - [Message]: an immutable MIDI message (kind plus bytes)
//   - [Kind]: classification used by the receive loop
//
// For [KindSysEx] messages the data is the sysex payload without the
// surrounding F0/F7 framing bytes. For every other kind it is the raw
// MIDI bytes including the status byte.
package domain
