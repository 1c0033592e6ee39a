// Package gameid issues sortable identifiers for hands: a UUIDv7 encoded as
// a 26-character Crockford base32 string, so ids generated later compare
// lexicographically greater.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet: no i, l, o, or u.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded id.
const Length = 26

// New returns a fresh hand id.
func New() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// Encode renders a UUID as a 26-character base32 string, five bits per
// character, most significant bits first. Two zero bits are prepended so
// the 128 bits split evenly into 26 groups, which caps the first character
// at 7.
func Encode(id uuid.UUID) string {
	var out [Length]byte
	var acc uint
	bits := 2
	next := 0
	for i := range out {
		for bits < 5 {
			acc = acc<<8 | uint(id[next])
			next++
			bits += 8
		}
		bits -= 5
		out[i] = alphabet[(acc>>bits)&0x1f]
	}
	return string(out[:])
}

// Validate checks that id is a well-formed encoded game id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game id must be %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game id first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) == -1 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
