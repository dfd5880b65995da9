// Package crypto holds the verification primitives consumed by the
// precompiles: P-256 ECDSA verification and Keccak-256 hashing.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
)

// P256Verify verifies an ECDSA signature on the secp256r1 (P-256/NIST P-256)
// curve over an already hashed message.
//
// Parameters:
//   - hash: the 32-byte message digest
//   - r, s: the signature components
//   - x, y: the public key coordinates
//
// Returns true if the signature is valid.
func P256Verify(hash []byte, r, s, x, y *big.Int) bool {
	if x == nil || y == nil || r == nil || s == nil {
		return false
	}
	// IsOnCurve rejects the point at infinity and non-canonical coordinates.
	if !elliptic.P256().IsOnCurve(x, y) {
		return false
	}
	pk := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	return ecdsa.Verify(pk, hash, r, s)
}

// P256VerifyPacked verifies a signature given as fixed-size big-endian
// blocks: sig = r || s and pub = x || y. Zero or out-of-range signature
// scalars are rejected.
func P256VerifyPacked(hash [32]byte, sig [64]byte, pub [64]byte) bool {
	var (
		r = new(big.Int).SetBytes(sig[:32])
		s = new(big.Int).SetBytes(sig[32:])
		x = new(big.Int).SetBytes(pub[:32])
		y = new(big.Int).SetBytes(pub[32:])
	)
	n := elliptic.P256().Params().N
	if r.Sign() == 0 || s.Sign() == 0 || r.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return false
	}
	return P256Verify(hash[:], r, s, x, y)
}
