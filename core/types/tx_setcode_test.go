package types

import (
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestAuthorizationSignRecover(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	want := PubkeyToAddress(key.PublicKey)

	auth, err := SignAuthorization(Authorization{
		ChainID: uint256.NewInt(1),
		Address: HexToAddress("0xc0de"),
		Nonce:   7,
	}, key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := auth.Authority()
	if err != nil {
		t.Fatalf("Authority: %v", err)
	}
	if got != want {
		t.Fatalf("authority mismatch: got %s, want %s", got, want)
	}

	// Changing any signed field changes the recovered authority.
	auth.Nonce++
	if other, err := auth.Authority(); err == nil && other == want {
		t.Fatal("tampered authorization recovered original authority")
	}
}

func TestAuthorizationRejectsBadSignature(t *testing.T) {
	auth := Authorization{ChainID: uint256.NewInt(1), V: 2, R: uint256.NewInt(1), S: uint256.NewInt(1)}
	if _, err := auth.Authority(); err != ErrAuthSignature {
		t.Fatalf("V=2: got %v", err)
	}
	auth.V = 0
	auth.R = nil
	if _, err := auth.Authority(); err != ErrAuthSignature {
		t.Fatalf("nil R: got %v", err)
	}
	// s above half the curve order is rejected.
	auth.R = uint256.NewInt(1)
	auth.S = new(uint256.Int).SetAllOne()
	if _, err := auth.Authority(); err != ErrAuthSignature {
		t.Fatalf("high s: got %v", err)
	}
}

func TestEffectiveGasPrice(t *testing.T) {
	base := uint256.NewInt(10)
	legacy := &Transaction{GasPrice: uint256.NewInt(25)}
	if got := legacy.EffectiveGasPrice(base); got.Uint64() != 25 {
		t.Fatalf("legacy: got %d", got.Uint64())
	}
	capped := &Transaction{GasPrice: uint256.NewInt(12), GasTipCap: uint256.NewInt(5)}
	if got := capped.EffectiveGasPrice(base); got.Uint64() != 12 {
		t.Fatalf("capped: got %d", got.Uint64())
	}
	tip := &Transaction{GasPrice: uint256.NewInt(100), GasTipCap: uint256.NewInt(3)}
	if got := tip.EffectiveGasPrice(base); got.Uint64() != 13 {
		t.Fatalf("tip: got %d", got.Uint64())
	}
	if (&Transaction{}).ValueOrZero().Sign() != 0 {
		t.Fatal("nil value should be zero")
	}
}
