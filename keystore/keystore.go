// Package keystore holds the small fixed-size MIFARE key-slot table
// (spec.md §4.4) and the in-flight load coalescing table (PendingKeyLoads
// in spec.md §3/§5). It generalizes classic.DefaultKeys/LoadKey's
// single-shot "load a key, remember nothing" style into a stateful,
// concurrency-safe cache.
package keystore

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/oo-developer/nfccore/apdu"
	"github.com/oo-developer/nfccore/corerr"
)

// SlotCount is the fixed number of key slots (spec.md §3: slots 0 and 1).
const SlotCount = 2

// Transmitter is the capability Store needs to issue the Load Auth Key
// APDU. session.Session satisfies this.
type Transmitter interface {
	Transmit(data []byte) ([]byte, error)
}

// Store is the 2-slot MIFARE key table plus its coalesced in-flight load
// tracking. The zero value is not usable; construct with New.
type Store struct {
	mu   sync.Mutex
	keys [SlotCount][]byte // nil when the slot is empty

	pendingMu sync.Mutex
	pending   map[string]*pendingLoad // canonical lower-hex key -> in-flight load
}

// pendingLoad is a singleflight-style shared future: the initiator starts
// the load and closes done on settle; every awaiter (including the
// initiator) reads slot/err only after done is closed. Grounded on the
// mutex-guarded keyed-registry idiom in
// other_examples/...calvinalkan-agent-task__pkg-slotcache-slotcache.go.go
// (globalRegistry/fileRegistryEntry), adapted from a file-lock registry
// into an in-process channel-based future.
type pendingLoad struct {
	done chan struct{}
	slot int
	err  error
}

// New returns an empty Store.
func New() *Store {
	return &Store{pending: make(map[string]*pendingLoad)}
}

func canonicalHex(key []byte) string {
	return strings.ToLower(hex.EncodeToString(key))
}

// FindKeyNumber returns the slot whose stored key matches key (by
// lowercase hex equality), or -1 if no slot matches. If key is nil, it
// instead returns the first empty slot, or -1 if none is empty
// (spec.md §4.4).
func (s *Store) FindKeyNumber(key []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == nil {
		for i, k := range s.keys {
			if k == nil {
				return i
			}
		}
		return -1
	}

	target := canonicalHex(key)
	for i, k := range s.keys {
		if k != nil && canonicalHex(k) == target {
			return i
		}
	}
	return -1
}

// Snapshot returns the canonical hex of each loaded slot ("" when empty),
// never the raw key bytes.
func (s *Store) Snapshot() [SlotCount]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [SlotCount]string
	for i, k := range s.keys {
		if k != nil {
			out[i] = canonicalHex(k)
		}
	}
	return out
}

// Load issues the Load Auth Key APDU for key into slot and, on success,
// records it (spec.md §4.4 "loadAuthenticationKey"). slot must be 0 or 1;
// key must normalize to exactly 6 bytes.
func (s *Store) Load(t Transmitter, slot int, key []byte) (int, error) {
	if slot != 0 && slot != 1 {
		return 0, corerr.New(corerr.KindLoadAuthenticationKey, corerr.CodeInvalidKeyNumber, "slot must be 0 or 1")
	}
	if len(key) != 6 {
		return 0, corerr.New(corerr.KindLoadAuthenticationKey, corerr.CodeInvalidKey, "key must be 6 bytes")
	}

	cmd, err := apdu.LoadAuthKey(byte(slot), key)
	if err != nil {
		return 0, corerr.New(corerr.KindLoadAuthenticationKey, corerr.CodeInvalidKey, err.Error())
	}

	resp, err := t.Transmit(cmd)
	if err != nil {
		return 0, corerr.Failure(corerr.KindLoadAuthenticationKey, "load key transmit failed", err)
	}
	_, status, err := apdu.Validate(resp)
	if err != nil {
		return 0, corerr.New(corerr.KindLoadAuthenticationKey, corerr.CodeInvalidResponse, err.Error())
	}
	if !apdu.IsSuccess(status) {
		return 0, corerr.OperationFailed(corerr.KindLoadAuthenticationKey, apdu.FormatStatus(status))
	}

	s.mu.Lock()
	s.keys[slot] = append([]byte(nil), key...)
	s.mu.Unlock()

	return slot, nil
}

// PickSlot chooses the slot authenticate should load key into, per
// spec.md §4.4 step 2: prefer an empty slot; if none is empty, overwrite
// slot 0 (no LRU modelled — see spec.md §9 Open Question 1).
func (s *Store) PickSlot() int {
	if empty := s.FindKeyNumber(nil); empty != -1 {
		return empty
	}
	return 0
}

// LoadCoalesced performs Load for key, but if a load for the same
// canonical key is already in flight, awaits that load instead of
// starting a new one (spec.md §4.4 step 3, invariant 4 in spec.md §8).
// The initiator removes the pending entry on settle regardless of
// outcome; awaiters never remove it.
func (s *Store) LoadCoalesced(t Transmitter, slot int, key []byte) (int, error) {
	canon := canonicalHex(key)

	s.pendingMu.Lock()
	if existing, ok := s.pending[canon]; ok {
		s.pendingMu.Unlock()
		<-existing.done
		return existing.slot, existing.err
	}

	pl := &pendingLoad{done: make(chan struct{})}
	s.pending[canon] = pl
	s.pendingMu.Unlock()

	slotLoaded, err := s.Load(t, slot, key)

	pl.slot, pl.err = slotLoaded, err
	close(pl.done)

	s.pendingMu.Lock()
	delete(s.pending, canon)
	s.pendingMu.Unlock()

	return slotLoaded, err
}
