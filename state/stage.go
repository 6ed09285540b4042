// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/poly"
)

// Stage abstracts the changes ready to be persisted to the backing store.
type Stage struct {
	store   kv.GetPutter
	changes map[storageKey]rlp.RawValue
}

// Len returns the number of dirty slots.
func (stg *Stage) Len() int {
	return len(stg.changes)
}

// Commit writes all dirty slots to the backing store in one batch.
func (stg *Stage) Commit() error {
	batch := stg.store.NewBatch()
	for key, raw := range stg.changes {
		if len(raw) == 0 {
			if err := batch.Delete(poly.Bytes32(key).Bytes()); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := batch.Put(poly.Bytes32(key).Bytes(), raw); err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}
