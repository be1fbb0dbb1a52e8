package gomidi

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/bft-labs/faderlink/internal/domain"
)

func TestFromMIDI(t *testing.T) {
	tests := []struct {
		name     string
		in       midi.Message
		wantKind domain.Kind
		wantData []byte
	}{
		{"sysex", midi.SysEx([]byte{0x42, 0x30, 0x68, 0x42, 0x04}), domain.KindSysEx, []byte{0x42, 0x30, 0x68, 0x42, 0x04}},
		{"program change", midi.ProgramChange(1, 7), domain.KindProgramChange, []byte{0xC1, 0x07}},
		{"clock", midi.Message{0xF8}, domain.KindClock, []byte{0xF8}},
		{"note on", midi.NoteOn(0, 60, 100), domain.KindNoteOn, []byte{0x90, 60, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromMIDI(tt.in)
			if err != nil {
				t.Fatalf("fromMIDI() error = %v", err)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if !bytes.Equal(got.Data, tt.wantData) {
				t.Errorf("Data = % X, want % X", got.Data, tt.wantData)
			}
		})
	}
}

func TestToMIDI(t *testing.T) {
	sysex := toMIDI(domain.NewSysEx(0x42, 0x30, 0x68, 0x12))
	if want := []byte{0xF0, 0x42, 0x30, 0x68, 0x12, 0xF7}; !bytes.Equal(sysex.Bytes(), want) {
		t.Errorf("toMIDI(sysex) = % X, want % X", sysex.Bytes(), want)
	}

	pc := toMIDI(domain.Message{Kind: domain.KindProgramChange, Data: []byte{0xC0, 0x03}})
	var ch, prog uint8
	if !pc.GetProgramChange(&ch, &prog) || ch != 0 || prog != 3 {
		t.Errorf("toMIDI(program change) = % X", pc.Bytes())
	}
}

func TestRoundTripThroughMIDI(t *testing.T) {
	orig := domain.NewSysEx(66, 48, 104, 109, 0, 0, 0, 56, 4, 127, 127, 123)
	back, err := fromMIDI(toMIDI(orig))
	if err != nil {
		t.Fatal(err)
	}
	if back.Kind != domain.KindSysEx || !bytes.Equal(back.Data, orig.Data) {
		t.Errorf("round trip = %v, want %v", back, orig)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"KRONOS:KRONOS MIDI 1 20:0", "kronos", true},
		{"Kronos Sound", "KRONOS", true},
		{"Midi Through Port-0", "kronos", false},
		{"anything", "", true},
	}
	for _, tt := range tests {
		if got := matches(tt.name, tt.pattern); got != tt.want {
			t.Errorf("matches(%q, %q) = %v, want %v", tt.name, tt.pattern, got, tt.want)
		}
	}
}

func TestNewOpener_Defaults(t *testing.T) {
	o := NewOpener(nil, 0)
	if o.sysExBufferSize != DefaultSysExBufferSize {
		t.Errorf("sysExBufferSize = %d, want %d", o.sysExBufferSize, DefaultSysExBufferSize)
	}
}
