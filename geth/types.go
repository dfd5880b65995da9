// Package geth adapts the execution core to go-ethereum: address and
// value conversions, messages for go-ethereum's state transition, the
// precompile catalog as go-ethereum contracts and spec selection from a
// params.ChainConfig.
package geth

import (
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core/types"
)

// --- Address and Hash conversion (zero-copy, layout-compatible) ---

// ToGethAddress converts an Address to a go-ethereum Address.
func ToGethAddress(a types.Address) gethcommon.Address {
	return gethcommon.Address(a)
}

// FromGethAddress converts a go-ethereum Address to an Address.
func FromGethAddress(a gethcommon.Address) types.Address {
	return types.Address(a)
}

// ToGethHash converts a Hash to a go-ethereum Hash.
func ToGethHash(h types.Hash) gethcommon.Hash {
	return gethcommon.Hash(h)
}

// FromGethHash converts a go-ethereum Hash to a Hash.
func FromGethHash(h gethcommon.Hash) types.Hash {
	return types.Hash(h)
}

// --- Value conversion ---

// ToUint256 converts *big.Int to *uint256.Int. Nil and overflowing values
// become zero.
func ToUint256(b *big.Int) *uint256.Int {
	if b == nil {
		return new(uint256.Int)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return new(uint256.Int)
	}
	return u
}

// FromUint256 converts *uint256.Int to *big.Int, nil staying nil.
func FromUint256(u *uint256.Int) *big.Int {
	if u == nil {
		return nil
	}
	return u.ToBig()
}

// --- Transaction conversion ---

// ToGethAccessList converts an access list.
func ToGethAccessList(al []types.AccessTuple) gethtypes.AccessList {
	if al == nil {
		return nil
	}
	result := make(gethtypes.AccessList, len(al))
	for i, tuple := range al {
		keys := make([]gethcommon.Hash, len(tuple.StorageKeys))
		for j, k := range tuple.StorageKeys {
			keys[j] = ToGethHash(k)
		}
		result[i] = gethtypes.AccessTuple{
			Address:     ToGethAddress(tuple.Address),
			StorageKeys: keys,
		}
	}
	return result
}

// ToGethAuthorizations converts an EIP-7702 authorization list.
func ToGethAuthorizations(auths []types.Authorization) []gethtypes.SetCodeAuthorization {
	if auths == nil {
		return nil
	}
	result := make([]gethtypes.SetCodeAuthorization, len(auths))
	for i, auth := range auths {
		out := gethtypes.SetCodeAuthorization{
			Address: ToGethAddress(auth.Address),
			Nonce:   auth.Nonce,
			V:       auth.V,
		}
		if auth.ChainID != nil {
			out.ChainID = *auth.ChainID
		}
		if auth.R != nil {
			out.R = *auth.R
		}
		if auth.S != nil {
			out.S = *auth.S
		}
		result[i] = out
	}
	return result
}

func toGethHashes(hashes []types.Hash) []gethcommon.Hash {
	if hashes == nil {
		return nil
	}
	result := make([]gethcommon.Hash, len(hashes))
	for i, h := range hashes {
		result[i] = ToGethHash(h)
	}
	return result
}

// ToGethMessage converts tx into a go-ethereum message priced against
// baseFee. A nil baseFee prices dynamic fee transactions at their cap.
func ToGethMessage(tx *types.Transaction, baseFee *uint256.Int) *gethcore.Message {
	var to *gethcommon.Address
	if tx.To != nil {
		addr := ToGethAddress(*tx.To)
		to = &addr
	}
	msg := &gethcore.Message{
		From:                  ToGethAddress(tx.Caller),
		To:                    to,
		Nonce:                 tx.Nonce,
		Value:                 tx.ValueOrZero().ToBig(),
		GasLimit:              tx.GasLimit,
		Data:                  tx.Data,
		AccessList:            ToGethAccessList(tx.AccessList),
		BlobHashes:            toGethHashes(tx.BlobHashes),
		BlobGasFeeCap:         FromUint256(tx.MaxFeePerBlobGas),
		SetCodeAuthorizations: ToGethAuthorizations(tx.AuthorizationList),
	}

	maxFee := tx.MaxFee().ToBig()
	msg.GasFeeCap = maxFee
	if tx.GasTipCap == nil {
		msg.GasPrice = maxFee
		msg.GasTipCap = maxFee
		return msg
	}
	msg.GasTipCap = tx.GasTipCap.ToBig()
	msg.GasPrice = tx.EffectiveGasPrice(baseFee).ToBig()
	return msg
}

// --- Log conversion ---

// FromGethLog converts a go-ethereum log. Block and receipt positions are
// dropped.
func FromGethLog(l *gethtypes.Log) *types.Log {
	if l == nil {
		return nil
	}
	topics := make([]types.Hash, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = FromGethHash(t)
	}
	return &types.Log{
		Address: FromGethAddress(l.Address),
		Topics:  topics,
		Data:    l.Data,
	}
}

// ToGethLogs converts logs for go-ethereum consumers such as bloom and
// receipt builders.
func ToGethLogs(logs []*types.Log) []*gethtypes.Log {
	result := make([]*gethtypes.Log, len(logs))
	for i, l := range logs {
		topics := make([]gethcommon.Hash, len(l.Topics))
		for j, t := range l.Topics {
			topics[j] = ToGethHash(t)
		}
		result[i] = &gethtypes.Log{
			Address: ToGethAddress(l.Address),
			Topics:  topics,
			Data:    l.Data,
			Index:   uint(i),
		}
	}
	return result
}
