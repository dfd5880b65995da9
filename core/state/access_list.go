package state

import "github.com/eth2030/evmcore/core/types"

// accessList tracks warm addresses and storage slots per EIP-2929. It is
// reset at every transaction boundary.
type accessList struct {
	addresses map[types.Address]map[types.Hash]struct{}
}

func newAccessList() *accessList {
	return &accessList{addresses: make(map[types.Address]map[types.Hash]struct{})}
}

// addAddress returns true if addr was already warm.
func (al *accessList) addAddress(addr types.Address) bool {
	if _, ok := al.addresses[addr]; ok {
		return true
	}
	al.addresses[addr] = nil
	return false
}

// addSlot returns whether the address and the slot were already warm.
func (al *accessList) addSlot(addr types.Address, slot types.Hash) (addrPresent, slotPresent bool) {
	slots, addrPresent := al.addresses[addr]
	if _, ok := slots[slot]; ok {
		return true, true
	}
	if slots == nil {
		slots = make(map[types.Hash]struct{})
		al.addresses[addr] = slots
	}
	slots[slot] = struct{}{}
	return addrPresent, false
}

func (al *accessList) containsAddress(addr types.Address) bool {
	_, ok := al.addresses[addr]
	return ok
}

func (al *accessList) containsSlot(addr types.Address, slot types.Hash) (addressOk, slotOk bool) {
	slots, ok := al.addresses[addr]
	if !ok {
		return false, false
	}
	_, slotOk = slots[slot]
	return true, slotOk
}

func (al *accessList) deleteAddress(addr types.Address) {
	delete(al.addresses, addr)
}

func (al *accessList) deleteSlot(addr types.Address, slot types.Hash) {
	delete(al.addresses[addr], slot)
}

func (al *accessList) reset() {
	clear(al.addresses)
}
