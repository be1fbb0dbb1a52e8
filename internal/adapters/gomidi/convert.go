package gomidi

import (
	"strings"

	"gitlab.com/gomidi/midi/v2"

	"github.com/bft-labs/faderlink/internal/domain"
)

// fromMIDI converts a received gomidi message.
func fromMIDI(msg midi.Message) (domain.Message, error) {
	var data []byte
	if msg.GetSysEx(&data) {
		return domain.NewSysEx(data...), nil
	}
	return domain.NewRaw(msg.Bytes())
}

// toMIDI converts an outbound message.
func toMIDI(msg domain.Message) midi.Message {
	if msg.Kind == domain.KindSysEx {
		return midi.SysEx(msg.Data)
	}
	return midi.Message(msg.Raw())
}

// matches reports whether a port name contains pattern, ignoring case.
func matches(name, pattern string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}
