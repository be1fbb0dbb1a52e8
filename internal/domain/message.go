package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind classifies a Message.
type Kind int

const (
	KindOther Kind = iota
	KindSysEx
	KindProgramChange
	KindClock
	KindNoteOn
	KindNoteOff
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSysEx:
		return "sysex"
	case KindProgramChange:
		return "program-change"
	case KindClock:
		return "clock"
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	default:
		return "other"
	}
}

const (
	sysExStart = 0xF0
	sysExEnd   = 0xF7
	clock      = 0xF8
)

// Message is a MIDI message. Values are treated as immutable: constructors
// copy their input and Data must not be modified by callers.
type Message struct {
	Kind Kind
	Data []byte
}

// NewSysEx builds a sysex message from its payload (no F0/F7 framing).
func NewSysEx(payload ...byte) Message {
	return Message{Kind: KindSysEx, Data: append([]byte(nil), payload...)}
}

// NewRaw classifies raw MIDI bytes. A framed F0 ... F7 sequence becomes a
// sysex message carrying the inner payload.
func NewRaw(raw []byte) (Message, error) {
	if len(raw) == 0 {
		return Message{}, fmt.Errorf("%w: empty", ErrInvalidMessage)
	}
	data := append([]byte(nil), raw...)

	switch status := data[0]; {
	case status == sysExStart:
		if len(data) < 2 || data[len(data)-1] != sysExEnd {
			return Message{}, fmt.Errorf("%w: unterminated sysex", ErrInvalidMessage)
		}
		return Message{Kind: KindSysEx, Data: data[1 : len(data)-1]}, nil
	case status == clock:
		return Message{Kind: KindClock, Data: data}, nil
	case status&0xF0 == 0xC0:
		return Message{Kind: KindProgramChange, Data: data}, nil
	case status&0xF0 == 0x90:
		return Message{Kind: KindNoteOn, Data: data}, nil
	case status&0xF0 == 0x80:
		return Message{Kind: KindNoteOff, Data: data}, nil
	default:
		return Message{Kind: KindOther, Data: data}, nil
	}
}

// ParseHex parses whitespace separated (or contiguous) hex bytes such as
// "F0 42 30 68 12 F7".
func ParseHex(s string) (Message, error) {
	clean := strings.Join(strings.Fields(s), "")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return NewRaw(raw)
}

// Raw returns the wire bytes, re-adding sysex framing.
func (m Message) Raw() []byte {
	if m.Kind != KindSysEx {
		return append([]byte(nil), m.Data...)
	}
	raw := make([]byte, 0, len(m.Data)+2)
	raw = append(raw, sysExStart)
	raw = append(raw, m.Data...)
	return append(raw, sysExEnd)
}

// Hex renders the wire bytes as upper-case space separated hex.
func (m Message) Hex() string {
	return fmt.Sprintf("% X", m.Raw())
}

// HasPrefix reports whether m is a sysex message whose payload starts with prefix.
func (m Message) HasPrefix(prefix []byte) bool {
	return m.Kind == KindSysEx && bytes.HasPrefix(m.Data, prefix)
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return m.Kind.String() + " " + m.Hex()
}
