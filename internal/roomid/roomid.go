// Package roomid maps short external room ids to room UUIDs and back.
//
// A short id is the UUID's 128-bit value written in base62 with the alphabet
// 0-9A-Za-z, left-padded to a fixed 22 characters. The mapping is a pure
// reversible encoding, so no lookup table is needed on either side.
package roomid

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Alphabet is the base62 digit set in ascending order.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Length is the length of every short id: ceil(128 / log2(62)).
const Length = 22

// ErrInvalidID is returned for strings that are neither a short id nor a UUID.
var ErrInvalidID = errors.New("invalid room id")

var base = big.NewInt(int64(len(Alphabet)))

// New returns the short id of a fresh random UUID.
func New() string {
	return Encode(uuid.New())
}

// Encode converts a UUID to its short id.
func Encode(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])

	var digits [Length]byte
	i := Length
	mod := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		i--
		digits[i] = Alphabet[mod.Int64()]
	}
	for i > 0 {
		i--
		digits[i] = Alphabet[0]
	}
	return string(digits[:])
}

// Decode converts a short id to a UUID. A canonical UUID string is accepted
// as is, so links built from either form open the same room.
func Decode(s string) (uuid.UUID, error) {
	if IsUUID(s) {
		return uuid.Parse(s)
	}
	if len(s) != Length {
		return uuid.UUID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	n := new(big.Int)
	for _, c := range []byte(s) {
		d := strings.IndexByte(Alphabet, c)
		if d < 0 {
			return uuid.UUID{}, fmt.Errorf("%w: %q has invalid character %q", ErrInvalidID, s, c)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(d)))
	}
	if n.BitLen() > 128 {
		return uuid.UUID{}, fmt.Errorf("%w: %q is out of range", ErrInvalidID, s)
	}

	var id uuid.UUID
	n.FillBytes(id[:])
	return id, nil
}

// IsUUID reports whether s is a canonical hyphenated UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Normalize returns the short id for either form of a room id.
func Normalize(s string) (string, error) {
	id, err := Decode(s)
	if err != nil {
		return "", err
	}
	return Encode(id), nil
}
