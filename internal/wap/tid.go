package wap

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// -------------------------------------------------------------------------
// TID Validation Cache — spec.md Section 4.3
// -------------------------------------------------------------------------

// tidWindowSize is WTP_TID_WINDOW_SIZE from spec.md Section 6: half the
// 15-bit TID space, used by the forward-window duplicate test.
const tidWindowSize = 16384

// tidModulo is 2^15, the size of the TID space the window test is
// computed modulo.
const tidModulo = 32768

// TIDCache maps an AddrTuple to the last-accepted TID from that peer,
// supporting the windowed duplicate-detection test of spec.md Section
// 4.3. Entries are reused and overwritten in place; the cache never
// shrinks except at shutdown (spec.md Section 3 invariants).
//
// Grounded on internal/bfd/discriminator.go's DiscriminatorAllocator:
// same mutex-guarded map shape, same Allocate/Release-style API
// surface, adapted here from "allocate a unique discriminator" to
// "validate an incoming TID against the last one seen".
type TIDCache struct {
	mu      sync.Mutex
	entries map[AddrTuple]uint16
}

// NewTIDCache creates an empty TID cache.
func NewTIDCache() *TIDCache {
	return &TIDCache{entries: make(map[AddrTuple]uint16)}
}

// Lookup reports whether addr has a cached TID and, if so, its value.
func (c *TIDCache) Lookup(addr AddrTuple) (tid uint16, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tid, ok = c.entries[addr]
	return tid, ok
}

// Validate applies the spec.md Section 4.3 window predicate: given the
// cached TID L and the received TID R, R is accepted when
//
//	R != L && ((R > L && R-L <= WINDOW) || (R < L && L-R >= WINDOW))
//
// computed over the 15-bit space (mod 32768), and records R as the new
// L on acceptance. If no entry exists yet, Validate reports accepted
// unconditionally and seeds the cache with R -- the caller is
// responsible for the "peer does not support caching" TIDOK_WAIT detour
// (spec.md Section 4.3); Validate only implements the window
// arithmetic.
func (c *TIDCache) Validate(addr AddrTuple, received uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.entries[addr]
	if !ok {
		c.entries[addr] = received
		return true
	}

	if !tidInWindow(last, received) {
		return false
	}
	c.entries[addr] = received
	return true
}

// Reset clears the cached TID for addr back to 0, used when the peer's
// tid_new flag announces a restart or wraparound (spec.md Section 4.3).
func (c *TIDCache) Reset(addr AddrTuple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[addr] = 0
}

// Set unconditionally overwrites the cached TID for addr, used by the
// Responder FSM's TIDOK_WAIT -> INVOKE_RESP_WAIT transition once the
// peer confirms TID verification (spec.md Section 4.5).
func (c *TIDCache) Set(addr AddrTuple, tid uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[addr] = tid
}

// Delete removes the cache entry for addr entirely.
func (c *TIDCache) Delete(addr AddrTuple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, addr)
}

// tidInWindow implements the forward-window test of spec.md Section
// 4.3 over the 15-bit modular TID space.
func tidInWindow(last, received uint16) bool {
	l := uint32(last) % tidModulo
	r := uint32(received) % tidModulo
	if r == l {
		return false
	}
	if r > l && r-l <= tidWindowSize {
		return true
	}
	if r < l && l-r >= tidWindowSize {
		return true
	}
	return false
}

// -------------------------------------------------------------------------
// Initiator TID allocator — spec.md Section 4.6, Section 9
// -------------------------------------------------------------------------
//
// spec.md Section 9 flags the original's static wraparound state as a
// peculiarity to replace with "a per-initiator-context counter" -- this
// type is that counter, one instance per Initiator FSM context rather
// than a package-level global.

// TIDAllocator assigns fresh TIDs for WTP Initiator-originated
// transactions (spec.md Section 4.6: "allocate fresh TID (increment a
// monotonic counter; if wraparound set tidnew=1)"). The counter is
// seeded from crypto-adjacent randomness at construction so restarts of
// the gateway don't immediately reuse TIDs a peer may still remember,
// then increments monotonically within the 15-bit TID space.
type TIDAllocator struct {
	mu         sync.Mutex
	next       uint16
	everIssued bool
}

// NewTIDAllocator creates a TIDAllocator with a randomized starting
// point in the 15-bit TID space (bit 15, the initiator/responder
// perspective bit, is never part of this counter -- it is applied at
// the wire-encoding boundary per spec.md Section 4.4).
func NewTIDAllocator() *TIDAllocator {
	var seed [2]byte
	binary.BigEndian.PutUint16(seed[:], uint16(rand.N(uint32(tidModulo)))) //nolint:gosec // non-crypto TID spacing only
	return &TIDAllocator{next: binary.BigEndian.Uint16(seed[:]) % tidModulo}
}

// Next returns the next TID to use and whether the 15-bit space wrapped
// to reach it (in which case the caller must set the Invoke PDU's
// TIDnew flag, per spec.md Section 4.6). The very first TID issued by a
// freshly constructed allocator is never reported as wrapped.
func (a *TIDAllocator) Next() (tid uint16, wrapped bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tid = a.next
	wrapped = a.everIssued && tid == 0
	a.everIssued = true

	a.next++
	if a.next >= tidModulo {
		a.next = 0
	}

	return tid, wrapped
}
