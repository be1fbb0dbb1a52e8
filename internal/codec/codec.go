// Package codec converts signed fader values to and from the device's
// 3-byte 7-bit wire group.
//
// Non-negative values are sent as (0, 0, v) and negative values as
// (127, 127, 128+v). Only that sign-pair form is understood; the group is
// not a general base-128 number and must not be decoded as one.
package codec

import (
	"fmt"

	"github.com/bft-labs/faderlink/internal/domain"
)

// Value range accepted by Encode.
const (
	MinValue = -128
	MaxValue = 127
)

// GroupLen is the length of an encoded value group.
const GroupLen = 3

// Encode returns the wire group for v.
func Encode(v int) ([GroupLen]byte, error) {
	if v < MinValue || v > MaxValue {
		return [GroupLen]byte{}, fmt.Errorf("%w: %d", domain.ErrValueOutOfRange, v)
	}
	if v >= 0 {
		return [GroupLen]byte{0, 0, byte(v)}, nil
	}
	return [GroupLen]byte{127, 127, byte(128 + v)}, nil
}

// Decode returns the value carried by group. Groups of two or three bytes
// are accepted; the first byte selects the sign and the last carries the
// magnitude.
func Decode(group []byte) (int, error) {
	if len(group) != 2 && len(group) != GroupLen {
		return 0, fmt.Errorf("%w: group length %d", domain.ErrDecode, len(group))
	}
	for _, b := range group {
		if b > 127 {
			return 0, fmt.Errorf("%w: byte 0x%02X is not 7-bit", domain.ErrDecode, b)
		}
	}

	last := int(group[len(group)-1])
	if group[0] == 0 {
		return last, nil
	}
	return last - 128, nil
}
