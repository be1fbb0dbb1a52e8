package codec

import (
	"errors"
	"testing"

	"github.com/bft-labs/faderlink/internal/domain"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		v    int
		want [3]byte
	}{
		{0, [3]byte{0, 0, 0}},
		{1, [3]byte{0, 0, 1}},
		{127, [3]byte{0, 0, 127}},
		{-1, [3]byte{127, 127, 127}},
		{-5, [3]byte{127, 127, 123}},
		{-128, [3]byte{127, 127, 0}},
	}

	for _, tt := range tests {
		got, err := Encode(tt.v)
		if err != nil {
			t.Fatalf("Encode(%d) error = %v", tt.v, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%d) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	for _, v := range []int{128, -129, 1000, -1000} {
		if _, err := Encode(v); !errors.Is(err, domain.ErrValueOutOfRange) {
			t.Errorf("Encode(%d) error = %v, want ErrValueOutOfRange", v, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for v := MinValue; v <= MaxValue; v++ {
		group, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%d) error = %v", v, err)
		}
		for _, b := range group {
			if b > 127 {
				t.Fatalf("Encode(%d) produced non 7-bit byte %d", v, b)
			}
		}
		got, err := Decode(group[:])
		if err != nil {
			t.Fatalf("Decode(%v) error = %v", group, err)
		}
		if got != v {
			t.Errorf("Decode(Encode(%d)) = %d", v, got)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		group []byte
		want  int
	}{
		{"positive", []byte{0, 0, 42}, 42},
		{"negative", []byte{127, 127, 100}, -28},
		{"two byte positive", []byte{0, 9}, 9},
		{"two byte negative", []byte{127, 0}, -128},
		// Only the first byte selects the sign.
		{"mixed sign pair", []byte{1, 0, 5}, -123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.group)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode(%v) = %d, want %d", tt.group, got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		group []byte
	}{
		{"empty", nil},
		{"one byte", []byte{5}},
		{"four bytes", []byte{0, 0, 0, 5}},
		{"not 7-bit", []byte{0, 0, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.group); !errors.Is(err, domain.ErrDecode) {
				t.Errorf("Decode(%v) error = %v, want ErrDecode", tt.group, err)
			}
		})
	}
}
