// Package types defines the data structures shared by the execution core:
// addresses, hashes, logs, transaction and block environments, and the
// EIP-7702 delegation designator.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	HashLength    = 32
	AddressLength = 20
)

var errHexLength = errors.New("hex string has wrong length")

// Hash represents the 32-byte Keccak256 hash of data.
type Hash [HashLength]byte

// Address represents the 20-byte address of an Ethereum account.
type Address [AddressLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(FromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the hex string representation of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. The input must be
// exactly 32 bytes of hex, with or without the 0x prefix.
func (h *Hash) UnmarshalText(text []byte) error {
	return unmarshalFixedHex("hash", text, h[:])
}

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the hex string representation of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// SetBytes sets the address from a byte slice.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero returns whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	return unmarshalFixedHex("address", text, a[:])
}

// Log represents a contract log event.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

var (
	// EmptyCodeHash is the hash of empty EVM bytecode (keccak256 of empty string).
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

	// EmptyRootHash is the hash of an empty trie.
	EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
)

// FromHex decodes a hex string, stripping an optional "0x" prefix. Odd
// length input is left-padded with a zero nibble. Invalid input decodes to nil.
func FromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func unmarshalFixedHex(kind string, text []byte, out []byte) error {
	s := string(text)
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s) != 2*len(out) {
		return fmt.Errorf("%s %q: %w", kind, text, errHexLength)
	}
	if _, err := hex.Decode(out, []byte(s)); err != nil {
		return fmt.Errorf("%s %q: %w", kind, text, err)
	}
	return nil
}
