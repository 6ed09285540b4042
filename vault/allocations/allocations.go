// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocations

import (
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/storage"
	"github.com/polystake/vault/vault/ratio"
	"github.com/polystake/vault/vault/reverts"
)

var (
	slotIndividual   = poly.BytesToBytes32([]byte("alloc-individual"))
	slotAggregate    = poly.BytesToBytes32([]byte("alloc-aggregate"))
	slotRecipients   = poly.BytesToBytes32([]byte("alloc-recipients"))
	slotDistributors = poly.BytesToBytes32([]byte("alloc-distributors"))
)

// body is the stored form of an allocation: the promised principal and the
// unreduced share price it was booked at. A zero amount is the tombstone;
// the price fields are zeroed with it.
type body struct {
	Amount *big.Int
	Num    *big.Int
	Denom  *big.Int
}

func (b *body) exists() bool {
	return b.Amount != nil && b.Amount.Sign() != 0
}

func (b *body) price() ratio.Ratio {
	return ratio.New(b.Num, b.Denom)
}

// Entry is an allocation as seen by callers.
type Entry struct {
	Amount *big.Int
	Price  ratio.Ratio
}

// Ledger books yield promises from distributors to recipients, in loose and
// strict mode, together with each distributor's aggregate position and the
// reciprocal recipient/distributor indices. It does pure bookkeeping: access
// control, balance checks and reward settlement are driven by the vault.
type Ledger struct {
	individual   *storage.Mapping[poly.Bytes32, *body]
	aggregate    *storage.Mapping[poly.Bytes32, *body]
	recipients   *indexList
	distributors *indexList
}

func New(sctx *storage.Context) *Ledger {
	return &Ledger{
		individual:   storage.NewMapping[poly.Bytes32, *body](sctx, slotIndividual),
		aggregate:    storage.NewMapping[poly.Bytes32, *body](sctx, slotAggregate),
		recipients:   newIndexList(sctx, slotRecipients),
		distributors: newIndexList(sctx, slotDistributors),
	}
}

func strictByte(strict bool) []byte {
	if strict {
		return []byte{1}
	}
	return []byte{0}
}

func allocKey(distributor, recipient poly.Address, strict bool) poly.Bytes32 {
	return poly.Blake2b(distributor.Bytes(), recipient.Bytes(), strictByte(strict))
}

func aggKey(distributor poly.Address, strict bool) poly.Bytes32 {
	return poly.Blake2b(distributor.Bytes(), strictByte(strict))
}

func scopeOf(owner poly.Address, strict bool) poly.Bytes32 {
	return poly.Blake2b(owner.Bytes(), strictByte(strict))
}

// Get returns the allocation from distributor to recipient, or nil if none
// exists.
func (l *Ledger) Get(distributor, recipient poly.Address, strict bool) (*Entry, error) {
	b, err := l.individual.Get(allocKey(distributor, recipient, strict))
	if err != nil || !b.exists() {
		return nil, err
	}
	return &Entry{Amount: b.Amount, Price: b.price()}, nil
}

// Aggregate returns the distributor's total allocated position, or nil.
func (l *Ledger) Aggregate(distributor poly.Address, strict bool) (*Entry, error) {
	b, err := l.aggregate.Get(aggKey(distributor, strict))
	if err != nil || !b.exists() {
		return nil, err
	}
	return &Entry{Amount: b.Amount, Price: b.price()}, nil
}

// Allocate books amount at the current share price, merging with any prior
// allocation via the harmonic weighted average so the implied share count of
// the merged record equals the sum of the parts. The aggregate is merged the
// same way.
func (l *Ledger) Allocate(distributor, recipient poly.Address, strict bool, amount *big.Int, current ratio.Ratio) error {
	key := allocKey(distributor, recipient, strict)
	prior, err := l.individual.Get(key)
	if err != nil {
		return err
	}

	if prior.exists() {
		total, combined := ratio.Combine(prior.Amount, prior.price(), amount, current)
		if err := l.individual.Set(key, &body{Amount: total, Num: combined.Num, Denom: combined.Denom}); err != nil {
			return err
		}
	} else {
		cur := current.Clone()
		if err := l.individual.Set(key, &body{
			Amount: new(big.Int).Set(amount),
			Num:    cur.Num,
			Denom:  cur.Denom,
		}); err != nil {
			return err
		}
		if err := l.recipients.add(scopeOf(distributor, strict), recipient); err != nil {
			return err
		}
		if err := l.distributors.add(scopeOf(recipient, strict), distributor); err != nil {
			return err
		}
	}

	akey := aggKey(distributor, strict)
	agg, err := l.aggregate.Get(akey)
	if err != nil {
		return err
	}
	if agg.exists() {
		total, combined := ratio.Combine(agg.Amount, agg.price(), amount, current)
		return l.aggregate.Set(akey, &body{Amount: total, Num: combined.Num, Denom: combined.Denom})
	}
	cur := current.Clone()
	return l.aggregate.Set(akey, &body{
		Amount: new(big.Int).Set(amount),
		Num:    cur.Num,
		Denom:  cur.Denom,
	})
}

// Deallocate releases amount from an existing allocation. The stored price
// is untouched; it still reflects the remaining principal's cost basis. A
// fully released allocation is tombstoned and unindexed.
func (l *Ledger) Deallocate(distributor, recipient poly.Address, strict bool, amount *big.Int) error {
	key := allocKey(distributor, recipient, strict)
	alloc, err := l.individual.Get(key)
	if err != nil {
		return err
	}
	if !alloc.exists() {
		return reverts.ErrNoRewardsAllocatedToRecipient
	}
	if alloc.Amount.Cmp(amount) < 0 {
		return reverts.ErrExcessDeallocation
	}

	alloc.Amount.Sub(alloc.Amount, amount)
	if alloc.Amount.Sign() == 0 {
		if err := l.individual.Delete(key); err != nil {
			return err
		}
		if err := l.recipients.remove(scopeOf(distributor, strict), recipient); err != nil {
			return err
		}
		if err := l.distributors.remove(scopeOf(recipient, strict), distributor); err != nil {
			return err
		}
	} else if err := l.individual.Set(key, alloc); err != nil {
		return err
	}

	akey := aggKey(distributor, strict)
	agg, err := l.aggregate.Get(akey)
	if err != nil {
		return err
	}
	agg.Amount.Sub(agg.Amount, amount)
	if agg.Amount.Sign() == 0 {
		return l.aggregate.Delete(akey)
	}
	return l.aggregate.Set(akey, agg)
}

// Reallocate moves a whole loose allocation from one recipient to another,
// merging with the target's existing allocation if there is one. The
// aggregate is untouched: its amount and implied share count are the same
// before and after. Reallocating to the same recipient leaves the record
// and both indices untouched.
func (l *Ledger) Reallocate(distributor, oldRecipient, newRecipient poly.Address) error {
	srcKey := allocKey(distributor, oldRecipient, false)
	src, err := l.individual.Get(srcKey)
	if err != nil {
		return err
	}
	if !src.exists() {
		return reverts.ErrAllocationNonExistent
	}
	if newRecipient == oldRecipient {
		return nil
	}

	dstKey := allocKey(distributor, newRecipient, false)
	dst, err := l.individual.Get(dstKey)
	if err != nil {
		return err
	}
	if dst.exists() {
		total, combined := ratio.Combine(dst.Amount, dst.price(), src.Amount, src.price())
		if err := l.individual.Set(dstKey, &body{Amount: total, Num: combined.Num, Denom: combined.Denom}); err != nil {
			return err
		}
	} else {
		if err := l.individual.Set(dstKey, src); err != nil {
			return err
		}
		if err := l.recipients.add(scopeOf(distributor, false), newRecipient); err != nil {
			return err
		}
		if err := l.distributors.add(scopeOf(newRecipient, false), distributor); err != nil {
			return err
		}
	}

	if err := l.individual.Delete(srcKey); err != nil {
		return err
	}
	if err := l.recipients.remove(scopeOf(distributor, false), oldRecipient); err != nil {
		return err
	}
	return l.distributors.remove(scopeOf(oldRecipient, false), distributor)
}

// SettlePrice rebases an allocation to the current share price after its
// accrued yield has been paid out, and reprices the aggregate so its implied
// share count stays consistent with the sum of its parts.
func (l *Ledger) SettlePrice(distributor, recipient poly.Address, strict bool, current ratio.Ratio) error {
	key := allocKey(distributor, recipient, strict)
	alloc, err := l.individual.Get(key)
	if err != nil {
		return err
	}
	if !alloc.exists() {
		return reverts.ErrNoRewardsAllocatedToRecipient
	}

	akey := aggKey(distributor, strict)
	agg, err := l.aggregate.Get(akey)
	if err != nil {
		return err
	}
	if agg.exists() {
		settled := ratio.Reprice(agg.Amount, agg.price(), alloc.Amount, alloc.price(), current)
		if err := l.aggregate.Set(akey, &body{Amount: agg.Amount, Num: settled.Num, Denom: settled.Denom}); err != nil {
			return err
		}
	}

	cur := current.Clone()
	alloc.Num = cur.Num
	alloc.Denom = cur.Denom
	return l.individual.Set(key, alloc)
}

// Recipients lists the current recipients of a distributor.
func (l *Ledger) Recipients(distributor poly.Address, strict bool) ([]poly.Address, error) {
	return l.recipients.list(scopeOf(distributor, strict))
}

// Distributors lists the distributors currently allocating to a recipient.
func (l *Ledger) Distributors(recipient poly.Address, strict bool) ([]poly.Address, error) {
	return l.distributors.list(scopeOf(recipient, strict))
}
