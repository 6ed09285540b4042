// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/storage"
	"github.com/polystake/vault/vault/reverts"
)

// Status of a registered validator. Validators are never removed, only
// disabled, so StatusNone doubles as the non-existence marker.
type Status uint8

const (
	StatusNone Status = iota
	StatusEnabled
	StatusDisabled
)

var (
	slotEntries = poly.BytesToBytes32([]byte("validator-entries"))
	slotHead    = poly.BytesToBytes32([]byte("validator-head"))
	slotTail    = poly.BytesToBytes32([]byte("validator-tail"))
	slotDefault = poly.BytesToBytes32([]byte("validator-default"))
	slotGrants  = poly.BytesToBytes32([]byte("validator-grants"))
)

type entry struct {
	Status       Status
	StakedAmount *big.Int
	Private      bool
	Next         *poly.Address `rlp:"nil"`
}

func (e *entry) exists() bool {
	return e.Status != StatusNone
}

// Validator is a registry listing item.
type Validator struct {
	Address      poly.Address
	Status       Status
	StakedAmount *big.Int
	Private      bool
}

// Registry keeps the ordered validator set, the default stake target and
// per-user private-validator entitlements. Entries form a singly linked
// list in insertion order, with the head, tail and default addresses in
// dedicated slots.
type Registry struct {
	entries *storage.Mapping[poly.Address, *entry]
	head    *storage.Raw[poly.Address]
	tail    *storage.Raw[poly.Address]
	defslot *storage.Raw[poly.Address]
	grants  *storage.Mapping[poly.Address, poly.Address]
}

func New(sctx *storage.Context) *Registry {
	return &Registry{
		entries: storage.NewMapping[poly.Address, *entry](sctx, slotEntries),
		head:    storage.NewRaw[poly.Address](sctx, slotHead),
		tail:    storage.NewRaw[poly.Address](sctx, slotTail),
		defslot: storage.NewRaw[poly.Address](sctx, slotDefault),
		grants:  storage.NewMapping[poly.Address, poly.Address](sctx, slotGrants),
	}
}

// Add registers a new enabled validator at the end of the list.
// initialStake seeds the book with the backend's already-reported stake, so
// migrating a pre-staked validator in does not lose accounting.
func (r *Registry) Add(addr poly.Address, private bool, initialStake *big.Int) error {
	if addr.IsZero() {
		return reverts.ErrZeroAddress
	}
	ent, err := r.entries.Get(addr)
	if err != nil {
		return err
	}
	if ent.exists() {
		return reverts.ErrValidatorAlreadyExists
	}

	tail, err := r.tail.Get()
	if err != nil {
		return err
	}
	if tail.IsZero() {
		if err := r.head.Set(addr); err != nil {
			return err
		}
	} else {
		prev, err := r.entries.Get(tail)
		if err != nil {
			return err
		}
		next := addr
		prev.Next = &next
		if err := r.entries.Set(tail, prev); err != nil {
			return err
		}
	}
	if err := r.tail.Set(addr); err != nil {
		return err
	}

	return r.entries.Set(addr, &entry{
		Status:       StatusEnabled,
		StakedAmount: new(big.Int).Set(initialStake),
		Private:      private,
	})
}

// Enable re-enables a disabled validator.
func (r *Registry) Enable(addr poly.Address) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	if ent.Status != StatusDisabled {
		return reverts.ErrValidatorNotDisabled
	}
	ent.Status = StatusEnabled
	return r.entries.Set(addr, ent)
}

// Disable excludes a validator from default selection and new deposits.
// Funds staked with it stay in place and remain withdrawable.
func (r *Registry) Disable(addr poly.Address) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	if ent.Status != StatusEnabled {
		return reverts.ErrValidatorNotEnabled
	}
	ent.Status = StatusDisabled
	return r.entries.Set(addr, ent)
}

// SetDefault designates the validator used by untargeted deposits.
func (r *Registry) SetDefault(addr poly.Address) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	if ent.Status != StatusEnabled {
		return reverts.ErrValidatorNotEnabled
	}
	return r.defslot.Set(addr)
}

// Default returns the default validator, or the zero address if unset.
func (r *Registry) Default() (poly.Address, error) {
	return r.defslot.Get()
}

// SetPrivacy flips a validator between public and private. A public
// validator holding more than a de-minimis stake cannot be turned private,
// as that would lock out public depositors with an existing position.
func (r *Registry) SetPrivacy(addr poly.Address, private bool) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	if ent.Private == private {
		if private {
			return reverts.ErrValidatorAlreadyPrivate
		}
		return reverts.ErrValidatorAlreadyNonPrivate
	}
	if private && ent.StakedAmount.Cmp(poly.StakeUnit) > 0 {
		return reverts.ErrValidatorHasAssets
	}
	ent.Private = private
	return r.entries.Set(addr, ent)
}

// GrantAccess entitles a user to one private validator.
func (r *Registry) GrantAccess(user, validator poly.Address) error {
	if user.IsZero() {
		return reverts.ErrZeroAddress
	}
	ent, err := r.get(validator)
	if err != nil {
		return err
	}
	if !ent.Private {
		return reverts.ErrValidatorNotPrivate
	}
	existing, err := r.grants.Get(user)
	if err != nil {
		return err
	}
	if !existing.IsZero() {
		return reverts.ErrPrivateAccessAlreadyGiven
	}
	return r.grants.Set(user, validator)
}

// RevokeAccess removes a user's private validator entitlement.
func (r *Registry) RevokeAccess(user poly.Address) error {
	existing, err := r.grants.Get(user)
	if err != nil {
		return err
	}
	if existing.IsZero() {
		return reverts.ErrNoPrivateAccess
	}
	return r.grants.Delete(user)
}

// GrantOf returns the private validator a user is entitled to, or the zero
// address.
func (r *Registry) GrantOf(user poly.Address) (poly.Address, error) {
	return r.grants.Get(user)
}

// CheckAccess verifies a user may act against a validator: the validator is
// public, or the user's entitlement matches it.
func (r *Registry) CheckAccess(user, validator poly.Address) error {
	ent, err := r.get(validator)
	if err != nil {
		return err
	}
	if !ent.Private {
		return nil
	}
	grant, err := r.grants.Get(user)
	if err != nil {
		return err
	}
	if grant != validator {
		return reverts.ErrValidatorAccessDenied
	}
	return nil
}

// Get returns a registered validator.
func (r *Registry) Get(addr poly.Address) (*Validator, error) {
	ent, err := r.get(addr)
	if err != nil {
		return nil, err
	}
	return &Validator{
		Address:      addr,
		Status:       ent.Status,
		StakedAmount: ent.StakedAmount,
		Private:      ent.Private,
	}, nil
}

// Exists reports whether the validator is registered.
func (r *Registry) Exists(addr poly.Address) (bool, error) {
	ent, err := r.entries.Get(addr)
	if err != nil {
		return false, err
	}
	return ent.exists(), nil
}

// AddStake increases a validator's book stake.
func (r *Registry) AddStake(addr poly.Address, amount *big.Int) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	ent.StakedAmount.Add(ent.StakedAmount, amount)
	return r.entries.Set(addr, ent)
}

// SubStake decreases a validator's book stake.
func (r *Registry) SubStake(addr poly.Address, amount *big.Int) error {
	ent, err := r.get(addr)
	if err != nil {
		return err
	}
	if ent.StakedAmount.Cmp(amount) < 0 {
		return reverts.ErrWithdrawalAmountTooLarge
	}
	ent.StakedAmount.Sub(ent.StakedAmount, amount)
	return r.entries.Set(addr, ent)
}

// All returns every registered validator in insertion order.
func (r *Registry) All() ([]*Validator, error) {
	var all []*Validator
	ptr, err := r.head.Get()
	if err != nil {
		return nil, err
	}
	for !ptr.IsZero() {
		ent, err := r.entries.Get(ptr)
		if err != nil {
			return nil, err
		}
		all = append(all, &Validator{
			Address:      ptr,
			Status:       ent.Status,
			StakedAmount: ent.StakedAmount,
			Private:      ent.Private,
		})
		if ent.Next == nil {
			break
		}
		ptr = *ent.Next
	}
	return all, nil
}

func (r *Registry) get(addr poly.Address) (*entry, error) {
	ent, err := r.entries.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ent.exists() {
		return nil, reverts.ErrValidatorDoesNotExist
	}
	return ent, nil
}
