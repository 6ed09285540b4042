// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unbonding

import (
	"encoding/binary"
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/storage"
)

var (
	slotRecords = poly.BytesToBytes32([]byte("unbond-records"))
	slotNonces  = poly.BytesToBytes32([]byte("unbond-nonces"))
)

// Record is a pending withdrawal awaiting its unbonding period. A record
// with a zero user is the tombstone left by a claim (or was never created);
// both cases are rejected identically at claim time.
type Record struct {
	User   poly.Address
	Amount *big.Int
}

func (r *Record) Exists() bool {
	return !r.User.IsZero()
}

// Queue tracks withdrawal requests per (validator, nonce). Nonces are
// assigned by the staking backend, strictly increasing per validator and
// starting at 1; the queue mirrors the highest nonce seen.
type Queue struct {
	records *storage.Mapping[poly.Bytes32, *Record]
	nonces  *storage.Mapping[poly.Address, uint64]
}

func New(sctx *storage.Context) *Queue {
	return &Queue{
		records: storage.NewMapping[poly.Bytes32, *Record](sctx, slotRecords),
		nonces:  storage.NewMapping[poly.Address, uint64](sctx, slotNonces),
	}
}

func recordKey(validator poly.Address, nonce uint64) poly.Bytes32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return poly.Blake2b(validator.Bytes(), buf[:])
}

// Put records a withdrawal request under the backend-assigned nonce.
func (q *Queue) Put(validator poly.Address, nonce uint64, user poly.Address, amount *big.Int) error {
	last, err := q.nonces.Get(validator)
	if err != nil {
		return err
	}
	if nonce > last {
		if err := q.nonces.Set(validator, nonce); err != nil {
			return err
		}
	}
	return q.records.Set(recordKey(validator, nonce), &Record{
		User:   user,
		Amount: new(big.Int).Set(amount),
	})
}

// Get returns the record for (validator, nonce). The zero record means
// claimed or never created.
func (q *Queue) Get(validator poly.Address, nonce uint64) (*Record, error) {
	return q.records.Get(recordKey(validator, nonce))
}

// Remove tombstones the record after a successful claim.
func (q *Queue) Remove(validator poly.Address, nonce uint64) error {
	return q.records.Delete(recordKey(validator, nonce))
}

// LastNonce returns the highest nonce issued for the validator, 0 if none.
func (q *Queue) LastNonce(validator poly.Address) (uint64, error) {
	return q.nonces.Get(validator)
}
