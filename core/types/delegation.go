package types

import "fmt"

const (
	// DelegationLength is the size of an EIP-7702 delegation designator.
	DelegationLength = 2 + 1 + AddressLength

	// DelegationVersion is the only designator version currently defined.
	DelegationVersion byte = 0x00
)

// DelegationMagic is the two-byte prefix of a delegation designator.
var DelegationMagic = [2]byte{0xef, 0x01}

// DelegationCodeHash is keccak256(0xef01). A state backend may report it as
// the code hash of delegated accounts.
var DelegationCodeHash = HexToHash("eadcdba66a79ab5dce91622d1d75c8cff5cff0b96944c3bf1072cd08ce018329")

// DelegationError describes why a byte string is not a delegation designator.
type DelegationError uint8

const (
	ErrDelegationInvalidLength DelegationError = iota + 1
	ErrDelegationInvalidMagic
	ErrDelegationUnsupportedVersion
)

func (e DelegationError) Error() string {
	switch e {
	case ErrDelegationInvalidLength:
		return "delegation: invalid length"
	case ErrDelegationInvalidMagic:
		return "delegation: invalid magic"
	case ErrDelegationUnsupportedVersion:
		return "delegation: unsupported version"
	default:
		return fmt.Sprintf("delegation: error %d", uint8(e))
	}
}

// Delegation is a validated EIP-7702 delegation designator:
// 0xef01 || version || address. It can only be obtained from
// DecodeDelegation or NewDelegation.
type Delegation struct {
	raw [DelegationLength]byte
}

// NewDelegation builds the version 0 designator pointing at addr.
func NewDelegation(addr Address) Delegation {
	var d Delegation
	d.raw[0], d.raw[1] = DelegationMagic[0], DelegationMagic[1]
	d.raw[2] = DelegationVersion
	copy(d.raw[3:], addr[:])
	return d
}

// DecodeDelegation validates raw as a delegation designator. Checks are
// applied in order: length, magic, version.
func DecodeDelegation(raw []byte) (Delegation, error) {
	if len(raw) != DelegationLength {
		return Delegation{}, ErrDelegationInvalidLength
	}
	if raw[0] != DelegationMagic[0] || raw[1] != DelegationMagic[1] {
		return Delegation{}, ErrDelegationInvalidMagic
	}
	if raw[2] != DelegationVersion {
		return Delegation{}, ErrDelegationUnsupportedVersion
	}
	var d Delegation
	copy(d.raw[:], raw)
	return d, nil
}

// Address returns the delegate address.
func (d Delegation) Address() Address {
	return BytesToAddress(d.raw[3:])
}

// Version returns the designator version byte.
func (d Delegation) Version() byte { return d.raw[2] }

// Raw returns a copy of the 23 encoded bytes.
func (d Delegation) Raw() []byte {
	out := make([]byte, DelegationLength)
	copy(out, d.raw[:])
	return out
}

// Bytes is an alias for Raw, so a Delegation can be installed as code.
func (d Delegation) Bytes() []byte { return d.Raw() }

// IsZero reports whether d was never initialized.
func (d Delegation) IsZero() bool { return d == Delegation{} }

// IsDelegation reports whether code is a valid delegation designator.
func IsDelegation(code []byte) bool {
	_, err := DecodeDelegation(code)
	return err == nil
}

// ResolveDelegation returns the delegate address when code is a valid
// designator. Any decode failure means the code is ordinary bytecode.
func ResolveDelegation(code []byte) (Address, bool) {
	d, err := DecodeDelegation(code)
	if err != nil {
		return Address{}, false
	}
	return d.Address(), true
}
