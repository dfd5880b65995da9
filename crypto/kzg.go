package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
)

// KZG point evaluation sizes (EIP-4844).
const (
	KZGPointEvalInputLength = 192
	KZGVersionedHashVersion = 0x01

	kzgFieldElementsPerBlob = 4096
)

// BLSModulus is the scalar field modulus of BLS12-381, big-endian.
var BLSModulus = [32]byte{
	0x73, 0xed, 0xa7, 0x53, 0x29, 0x9d, 0x7d, 0x48, 0x33, 0x39, 0xd8, 0x08, 0x09, 0xa1, 0xd8, 0x05,
	0x53, 0xbd, 0xa4, 0x02, 0xff, 0xfe, 0x5b, 0xfe, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01,
}

var (
	ErrKZGInputLength    = errors.New("kzg: invalid point evaluation input length")
	ErrKZGVersionedHash  = errors.New("kzg: versioned hash mismatch")
	ErrKZGProofInvalid   = errors.New("kzg: proof verification failed")
	ErrKZGContextFailure = errors.New("kzg: trusted setup unavailable")
)

var (
	kzgOnce sync.Once
	kzgCtx  *goethkzg.Context
	kzgErr  error
)

// kzgContext loads the Ethereum ceremony setup on first use. Loading takes
// a few seconds so it is deferred until a point evaluation actually runs.
func kzgContext() (*goethkzg.Context, error) {
	kzgOnce.Do(func() {
		kzgCtx, kzgErr = goethkzg.NewContext4096Secure()
	})
	if kzgErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrKZGContextFailure, kzgErr)
	}
	return kzgCtx, nil
}

// KZGToVersionedHash returns 0x01 || sha256(commitment)[1:].
func KZGToVersionedHash(commitment []byte) [32]byte {
	h := sha256.Sum256(commitment)
	h[0] = KZGVersionedHashVersion
	return h
}

// KZGPointEvaluation verifies the 192-byte input
// versioned_hash || z || y || commitment || proof and returns the
// 64-byte success output: FIELD_ELEMENTS_PER_BLOB || BLS_MODULUS.
func KZGPointEvaluation(input []byte) ([]byte, error) {
	if len(input) != KZGPointEvalInputLength {
		return nil, ErrKZGInputLength
	}
	var (
		commitment goethkzg.KZGCommitment
		proof      goethkzg.KZGProof
		z, y       goethkzg.Scalar
	)
	copy(z[:], input[32:64])
	copy(y[:], input[64:96])
	copy(commitment[:], input[96:144])
	copy(proof[:], input[144:192])

	vh := KZGToVersionedHash(commitment[:])
	if !bytes.Equal(vh[:], input[:32]) {
		return nil, ErrKZGVersionedHash
	}
	ctx, err := kzgContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.VerifyKZGProof(commitment, z, y, proof); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKZGProofInvalid, err)
	}

	out := make([]byte, 64)
	out[30] = byte(kzgFieldElementsPerBlob >> 8)
	out[31] = byte(kzgFieldElementsPerBlob & 0xff)
	copy(out[32:], BLSModulus[:])
	return out, nil
}
