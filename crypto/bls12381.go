package crypto

import "errors"

// BLS12-381 G1 addition sizes (EIP-2537). Field elements are encoded as
// 64 bytes: 16 zero bytes followed by the 48-byte big-endian value.
const (
	BLSFieldElementLength = 64
	BLSG1PointLength      = 2 * BLSFieldElementLength
	BLSG1AddInputLength   = 2 * BLSG1PointLength
)

var (
	ErrBLSInputLength     = errors.New("bls12381: invalid input length")
	ErrBLSFieldTopBytes   = errors.New("bls12381: invalid field element top bytes")
	ErrBLSFieldElement    = errors.New("bls12381: invalid field element")
	ErrBLSPointNotOnCurve = errors.New("bls12381: point is not on curve")
)

// BLS12G1Add adds two G1 points given as 256 bytes and returns the
// 128-byte encoded sum. The all-zero encoding is the point at infinity.
// Subgroup membership is not checked for addition.
func BLS12G1Add(input []byte) ([]byte, error) {
	if len(input) != BLSG1AddInputLength {
		return nil, ErrBLSInputLength
	}
	for _, off := range []int{0, BLSFieldElementLength, BLSG1PointLength, BLSG1PointLength + BLSFieldElementLength} {
		for _, b := range input[off : off+16] {
			if b != 0 {
				return nil, ErrBLSFieldTopBytes
			}
		}
	}
	return g1Add(input[:BLSG1PointLength], input[BLSG1PointLength:])
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
