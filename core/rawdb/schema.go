package rawdb

import "encoding/binary"

// Key prefixes for the state schema.
var (
	accountPrefix   = []byte("a") // a + address -> account RLP
	storagePrefix   = []byte("s") // s + address + slot -> value (32 bytes)
	codePrefix      = []byte("C") // C + code hash -> contract bytecode
	blockHashPrefix = []byte("n") // n + num (8 bytes BE) -> block hash
)

// encodeBlockNumber encodes a block number as an 8-byte big-endian value.
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// AccountKey = accountPrefix + address
func AccountKey(addr [20]byte) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// StorageKey = storagePrefix + address + slot
func StorageKey(addr [20]byte, slot [32]byte) []byte {
	return append(StoragePrefix(addr), slot[:]...)
}

// StoragePrefix is the key range holding every slot of addr.
func StoragePrefix(addr [20]byte) []byte {
	return append(append([]byte{}, storagePrefix...), addr[:]...)
}

// CodeKey = codePrefix + code hash
func CodeKey(hash [32]byte) []byte {
	return append(append([]byte{}, codePrefix...), hash[:]...)
}

// BlockHashKey = blockHashPrefix + num
func BlockHashKey(number uint64) []byte {
	return append(append([]byte{}, blockHashPrefix...), encodeBlockNumber(number)...)
}
