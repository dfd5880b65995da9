package vm

import (
	"math/big"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Precompile addresses.
var (
	EcRecoverAddress       = types.BytesToAddress([]byte{0x01})
	PointEvaluationAddress = types.BytesToAddress([]byte{0x0a})
	BLS12G1AddAddress      = types.BytesToAddress([]byte{0x0b})
	P256VerifyAddress      = types.BytesToAddress([]byte{0x01, 0x00})
)

// Fixed precompile costs.
const (
	EcRecoverGas       uint64 = 3000
	PointEvaluationGas uint64 = 50000
	BLS12G1AddGas      uint64 = 375
	P256VerifyGas      uint64 = 3450
	P256VerifyGasOsaka uint64 = 6900

	// P256VerifyInputLength is hash || r || s || x || y.
	P256VerifyInputLength = 160
)

// P256VerifyGasFor returns the P256VERIFY cost under spec.
func P256VerifyGasFor(spec SpecID) uint64 {
	if spec.Enabled(Osaka) {
		return P256VerifyGasOsaka
	}
	return P256VerifyGas
}

var (
	EcRecoverPrecompile = Precompile{
		Address: EcRecoverAddress,
		Name:    "ecRecover",
		Gas:     FixedGas(EcRecoverGas),
		Run:     ecRecover,
	}
	PointEvaluationPrecompile = Precompile{
		Address: PointEvaluationAddress,
		Name:    "pointEvaluation",
		Gas:     FixedGas(PointEvaluationGas),
		Run:     crypto.KZGPointEvaluation,
	}
	BLS12G1AddPrecompile = Precompile{
		Address: BLS12G1AddAddress,
		Name:    "bls12G1Add",
		Gas:     FixedGas(BLS12G1AddGas),
		Run:     crypto.BLS12G1Add,
	}
	P256VerifyPrecompile = Precompile{
		Address: P256VerifyAddress,
		Name:    "p256Verify",
		Gas:     P256VerifyGasFor,
		Run:     p256Verify,
	}
)

var specPrecompiles [LatestSpec + 1]*PrecompileSet

func init() {
	for spec := Frontier; spec <= LatestSpec; spec++ {
		ps := []Precompile{EcRecoverPrecompile}
		if spec.Enabled(Cancun) {
			ps = append(ps, PointEvaluationPrecompile, P256VerifyPrecompile)
		}
		if spec.Enabled(Prague) {
			ps = append(ps, BLS12G1AddPrecompile)
		}
		specPrecompiles[spec] = NewPrecompileSet(ps...)
	}
}

// PrecompilesFor returns the shared precompile set active under spec.
func PrecompilesFor(spec SpecID) *PrecompileSet {
	if spec > LatestSpec {
		spec = LatestSpec
	}
	return specPrecompiles[spec]
}

func ecRecover(input []byte) ([]byte, error) {
	const inputLength = 128
	input = common.RightPadBytes(input, inputLength)

	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	v := input[63] - 27

	// v must be a single byte; homestead low-s only applies to tx signatures.
	if !allZero(input[32:63]) || !gethcrypto.ValidateSignatureValues(v, r, s, false) {
		return nil, nil
	}
	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v

	pub, err := gethcrypto.Ecrecover(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	return common.LeftPadBytes(gethcrypto.Keccak256(pub[1:])[12:], 32), nil
}

// p256Verify implements P256VERIFY. Malformed input and failed
// verification both produce empty output; success is a 32-byte word 1.
func p256Verify(input []byte) ([]byte, error) {
	if len(input) != P256VerifyInputLength {
		return nil, nil
	}
	var (
		hash [32]byte
		sig  [64]byte
		pub  [64]byte
	)
	copy(hash[:], input[:32])
	copy(sig[:], input[32:96])
	copy(pub[:], input[96:160])
	if !crypto.P256VerifyPacked(hash, sig, pub) {
		return nil, nil
	}
	out := make([]byte, 32)
	out[31] = 1
	return out, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
