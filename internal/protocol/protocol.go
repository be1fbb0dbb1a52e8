// Package protocol holds the bit-exact sysex constants of the Kronos fader
// subset: message prefixes, command templates, canonical requests and the
// mode table.
package protocol

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/bft-labs/faderlink/internal/domain"
)

// Payload prefixes (sysex data without F0).
var (
	// FaderPrefix starts every fader-update message (Korg, channel 0, Kronos).
	FaderPrefix = []byte{66, 48, 104}

	// ControlAssignPrefix starts a control-assign change notification.
	ControlAssignPrefix = []byte{66, 48, 104, 67, 26}

	// ModeReplyTag starts the reply to the GET_MODE request.
	ModeReplyTag = []byte{66, 48, 104, 66}
)

// Byte offsets inside a fader-update payload.
const (
	UpdateAddressIndex = 7
	UpdateValueStart   = 9
	UpdateValueEnd     = 12

	ControlAssignValueIndex = 11

	ModeCodeIndex = 4
)

// Template is the fixed part of a fader command. The fader address is
// inserted between Head and Tail and the encoded value appended after.
type Template struct {
	Head []byte
	Tail []byte
}

var (
	// ChannelTemplate drives the eight mixer channel faders.
	ChannelTemplate = Template{Head: []byte{109, 0, 0, 0}, Tail: []byte{4}}

	// MasterTemplate drives the master fader.
	MasterTemplate = Template{Head: []byte{67, 7, 0, 0}, Tail: []byte{0}}
)

// Build returns the sysex command setting address to the encoded group.
func (t Template) Build(address byte, group [3]byte) domain.Message {
	payload := make([]byte, 0, len(FaderPrefix)+len(t.Head)+1+len(t.Tail)+len(group))
	payload = append(payload, FaderPrefix...)
	payload = append(payload, t.Head...)
	payload = append(payload, address)
	payload = append(payload, t.Tail...)
	payload = append(payload, group[:]...)
	return domain.Message{Kind: domain.KindSysEx, Data: payload}
}

// Canonical request names.
const (
	RequestCombi    = "combi"
	RequestProgram  = "program"
	RequestAll      = "all"
	RequestSettings = "settings"
	RequestMode     = "mode"
)

var requests = map[string][]byte{
	RequestCombi:    {0x42, 0x30, 0x68, 0x74, 0x01},
	RequestProgram:  {0x42, 0x30, 0x68, 0x74, 0x00},
	RequestAll:      {0x42, 0x30, 0x68, 0x72, 0x01, 0x00, 0x00, 0x41},
	RequestSettings: {0x42, 0x30, 0x68, 0x74, 0x03},
	RequestMode:     {0x42, 0x30, 0x68, 0x12},
}

// Request returns the canonical request with the given name.
func Request(name string) (domain.Message, error) {
	payload, ok := requests[name]
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: unknown request %q", domain.ErrInvalidMessage, name)
	}
	return domain.NewSysEx(payload...), nil
}

// RequestNames returns the canonical request names, sorted.
func RequestNames() []string {
	names := make([]string, 0, len(requests))
	for name := range requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mode is a device operating mode.
type Mode struct {
	Code byte
	Name string
}

var modes = map[byte]string{
	0: "COMBI",
	2: "PROG",
	4: "SEQ",
	6: "SAMPLING",
	7: "GLOBAL",
	8: "DISK",
	9: "SETLIST",
}

// LookupMode resolves a mode code.
func LookupMode(code byte) (Mode, error) {
	name, ok := modes[code]
	if !ok {
		return Mode{}, fmt.Errorf("%w: code %d", domain.ErrUnknownMode, code)
	}
	return Mode{Code: code, Name: name}, nil
}

// ParseModeReply extracts the mode from a GET_MODE reply.
func ParseModeReply(msg domain.Message) (Mode, error) {
	if !msg.HasPrefix(ModeReplyTag) || len(msg.Data) <= ModeCodeIndex {
		return Mode{}, fmt.Errorf("%w: not a mode reply: %s", domain.ErrDecode, msg.Hex())
	}
	return LookupMode(msg.Data[ModeCodeIndex])
}

// ReplyTag derives the default reply tag for a request. Canonical requests
// get the tag from ReplyTagFor; any other payload of at least four bytes is
// answered with its first (up to) five bytes, the function byte (index 3)
// incremented.
func ReplyTag(req domain.Message) ([]byte, error) {
	if req.Kind != domain.KindSysEx {
		return nil, fmt.Errorf("%w: cannot derive reply tag from %s", domain.ErrInvalidMessage, req.Hex())
	}
	if name, ok := requestName(req.Data); ok {
		return ReplyTagFor(name)
	}
	return deriveTag(req)
}

// ReplyTagFor returns the tag a named canonical request is answered with.
func ReplyTagFor(name string) ([]byte, error) {
	if name == RequestMode {
		return append([]byte(nil), ModeReplyTag...), nil
	}
	req, err := Request(name)
	if err != nil {
		return nil, err
	}
	return deriveTag(req)
}

func deriveTag(req domain.Message) ([]byte, error) {
	if len(req.Data) < 4 {
		return nil, fmt.Errorf("%w: cannot derive reply tag from %s", domain.ErrInvalidMessage, req.Hex())
	}
	tag := append([]byte(nil), req.Data[:min(5, len(req.Data))]...)
	tag[3]++
	return tag, nil
}

func requestName(payload []byte) (string, bool) {
	for name, p := range requests {
		if bytes.Equal(p, payload) {
			return name, true
		}
	}
	return "", false
}
