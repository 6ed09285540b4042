// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// storageKey identifies a storage slot inside the backing kv store.
type storageKey poly.Bytes32

// State manages the ledger state: a flat set of rlp-encoded storage slots
// with checkpoint/revert semantics. All writes land in a stacked map and
// reach the backing store only when a Stage is committed.
type State struct {
	store kv.GetPutter
	sm    *stackedmap.StackedMap
}

// New creates a state object backed by the given store.
func New(store kv.GetPutter) *State {
	st := &State{store: store}
	st.sm = stackedmap.New(func(key any) (any, bool, error) {
		return st.storeGetter(key)
	})
	// the bottom level holds all writes until a checkpoint is opened
	st.sm.Push()
	return st
}

// storeGetter implements stackedmap.MapGetter.
func (s *State) storeGetter(key any) (any, bool, error) {
	k, ok := key.(storageKey)
	if !ok {
		panic(fmt.Errorf("unexpected key type %+v", key))
	}
	raw, err := s.store.Get(poly.Bytes32(k).Bytes())
	if err != nil {
		if s.store.IsNotFound(err) {
			return rlp.RawValue(nil), true, nil
		}
		return nil, false, &Error{err}
	}
	return rlp.RawValue(raw), true, nil
}

// GetRawStorage returns the raw rlp value of the given slot. Empty raw means
// the slot is unset.
func (s *State) GetRawStorage(key poly.Bytes32) (rlp.RawValue, error) {
	raw, _, err := s.sm.Get(storageKey(key))
	if err != nil {
		return nil, err
	}
	return raw.(rlp.RawValue), nil
}

// SetRawStorage sets the raw rlp value of the given slot. A nil raw clears it.
func (s *State) SetRawStorage(key poly.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey(key), raw)
}

// DecodeStorage decodes the raw value of the slot using the decoder.
func (s *State) DecodeStorage(key poly.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(key)
	if err != nil {
		return err
	}
	return dec(raw)
}

// EncodeStorage encodes a value with the encoder and stores it in the slot.
// The encoder returning nil bytes clears the slot.
func (s *State) EncodeStorage(key poly.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return err
	}
	s.SetRawStorage(key, raw)
	return nil
}

// GetStorage returns the Bytes32 form of the slot value.
func (s *State) GetStorage(key poly.Bytes32) (poly.Bytes32, error) {
	raw, err := s.GetRawStorage(key)
	if err != nil {
		return poly.Bytes32{}, err
	}
	if len(raw) == 0 {
		return poly.Bytes32{}, nil
	}
	var b []byte
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return poly.Bytes32{}, &Error{err}
	}
	return poly.BytesToBytes32(b), nil
}

// SetStorage sets the Bytes32 form of the slot value, trimming leading zero
// bytes. The all-zero value clears the slot.
func (s *State) SetStorage(key, value poly.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(key, nil)
		return
	}
	trimmed := value.Bytes()
	for len(trimmed) > 0 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}
	raw, _ := rlp.EncodeToBytes(trimmed)
	s.SetRawStorage(key, raw)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint.
// The checkpoint and all checkpoints taken after it become invalid.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Stage collects all journaled writes for atomic persistence.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key, value any) bool {
		changes[key.(storageKey)] = value.(rlp.RawValue)
		return true
	})
	return &Stage{store: s.store, changes: changes}
}
