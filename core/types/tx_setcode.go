package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// EIP-7702 SetCode constants.
const (
	// AuthMagic is the signing magic byte for EIP-7702 authorization hashes.
	// The authorization hash is: keccak256(0x05 || rlp([chain_id, address, nonce]))
	AuthMagic byte = 0x05

	// PerAuthBaseCost is the cost of an authorization whose authority
	// already exists; the difference to PerEmptyAccountCost is refunded.
	PerAuthBaseCost uint64 = 12500

	// PerEmptyAccountCost is the intrinsic gas charged per authorization entry.
	PerEmptyAccountCost uint64 = 25000
)

var (
	ErrAuthSignature = errors.New("authorization: invalid signature")
	ErrAuthRecover   = errors.New("authorization: cannot recover authority")
)

// Authorization is a signed EIP-7702 tuple allowing Address to be installed
// as the delegate of the signing account.
type Authorization struct {
	ChainID *uint256.Int
	Address Address
	Nonce   uint64
	V       uint8
	R       *uint256.Int
	S       *uint256.Int
}

type authPayload struct {
	ChainID *uint256.Int
	Address Address
	Nonce   uint64
}

// SigHash returns the digest signed by the authority.
func (a *Authorization) SigHash() Hash {
	chainID := a.ChainID
	if chainID == nil {
		chainID = new(uint256.Int)
	}
	enc, err := rlp.EncodeToBytes(&authPayload{ChainID: chainID, Address: a.Address, Nonce: a.Nonce})
	if err != nil {
		// Fixed-shape payload; encoding cannot fail.
		panic(err)
	}
	return BytesToHash(gethcrypto.Keccak256([]byte{AuthMagic}, enc))
}

// Authority recovers the account that signed the authorization. High-s
// signatures are rejected.
func (a *Authorization) Authority() (Address, error) {
	if a.R == nil || a.S == nil || a.V > 1 {
		return Address{}, ErrAuthSignature
	}
	if !gethcrypto.ValidateSignatureValues(a.V, a.R.ToBig(), a.S.ToBig(), true) {
		return Address{}, ErrAuthSignature
	}
	sig := make([]byte, 65)
	r, s := a.R.Bytes32(), a.S.Bytes32()
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = a.V

	hash := a.SigHash()
	pub, err := gethcrypto.Ecrecover(hash[:], sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrAuthRecover, err)
	}
	if len(pub) != 65 || pub[0] != 4 {
		return Address{}, ErrAuthRecover
	}
	return BytesToAddress(gethcrypto.Keccak256(pub[1:])[12:]), nil
}

// SignAuthorization signs auth with key and returns the signed copy.
func SignAuthorization(auth Authorization, key *ecdsa.PrivateKey) (Authorization, error) {
	hash := auth.SigHash()
	sig, err := gethcrypto.Sign(hash[:], key)
	if err != nil {
		return Authorization{}, err
	}
	auth.R = new(uint256.Int).SetBytes(sig[:32])
	auth.S = new(uint256.Int).SetBytes(sig[32:64])
	auth.V = sig[64]
	return auth, nil
}

// PubkeyToAddress returns the account address controlled by key.
func PubkeyToAddress(key ecdsa.PublicKey) Address {
	return Address(gethcrypto.PubkeyToAddress(key))
}
