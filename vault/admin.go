// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault/registry"
	"github.com/polystake/vault/vault/reverts"
)

// Owner returns the administrative account.
func (v *Vault) Owner() (poly.Address, error) {
	return v.owner.Get()
}

// Treasury returns the fee-receiving account.
func (v *Vault) Treasury() (poly.Address, error) {
	return v.treasury.Get()
}

// Paused reports whether principal and allocation mutation is blocked.
func (v *Vault) Paused() (bool, error) {
	return v.paused.Get()
}

// Fees returns the yield fee and the distribution fee, in FeePrecision-ths.
func (v *Vault) Fees() (phi, distPhi uint64, err error) {
	p, err := v.phi.Get()
	if err != nil {
		return 0, 0, err
	}
	d, err := v.distPhi.Get()
	if err != nil {
		return 0, 0, err
	}
	return p.Uint64(), d.Uint64(), nil
}

// MinDeposit returns the smallest accepted deposit.
func (v *Vault) MinDeposit() (*big.Int, error) {
	return v.minDeposit.Get()
}

// TransferOwnership hands the administrative role to a new account.
func (v *Vault) TransferOwnership(caller, newOwner poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if newOwner.IsZero() {
			return reverts.ErrZeroAddress
		}
		logger.Info("ownership transferred", "from", caller, "to", newOwner)
		return v.owner.Set(newOwner)
	})
}

// SetTreasury changes the fee-receiving account.
func (v *Vault) SetTreasury(caller, treasury poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if treasury.IsZero() {
			return reverts.ErrTreasuryNotSet
		}
		return v.treasury.Set(treasury)
	})
}

// SetFee changes the treasury's cut of realized yield.
func (v *Vault) SetFee(caller poly.Address, phi uint64) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if phi > poly.FeePrecision {
			return reverts.ErrFeeTooLarge
		}
		v.phi.Set(new(big.Int).SetUint64(phi))
		return nil
	})
}

// SetDistFee changes the treasury's cut of distributed allocation rewards.
func (v *Vault) SetDistFee(caller poly.Address, distPhi uint64) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if distPhi > poly.FeePrecision {
			return reverts.ErrFeeTooLarge
		}
		v.distPhi.Set(new(big.Int).SetUint64(distPhi))
		return nil
	})
}

// SetMinDeposit changes the smallest accepted deposit, bounded below by the
// protocol floor.
func (v *Vault) SetMinDeposit(caller poly.Address, amount *big.Int) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if amount.Cmp(poly.MinDepositFloor) < 0 {
			return reverts.ErrMinDepositTooSmall
		}
		v.minDeposit.Set(amount)
		return nil
	})
}

// SetEpsilon changes the rounding buffer used by MaxWithdraw.
func (v *Vault) SetEpsilon(caller poly.Address, epsilon *big.Int) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if epsilon.Cmp(poly.MaxEpsilon) > 0 {
			return reverts.ErrEpsilonTooLarge
		}
		v.epsilon.Set(epsilon)
		return nil
	})
}

// SetStrictAllocation flips the global strict-allocation switch.
func (v *Vault) SetStrictAllocation(caller poly.Address, enabled bool) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if !enabled {
			return v.strictAllowed.Clear()
		}
		return v.strictAllowed.Set(true)
	})
}

// Pause blocks all principal and allocation mutation. Views stay available.
func (v *Vault) Pause(caller poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		logger.Warn("vault paused", "by", caller)
		return v.paused.Set(true)
	})
}

// Unpause lifts the pause.
func (v *Vault) Unpause(caller poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		logger.Warn("vault unpaused", "by", caller)
		return v.paused.Clear()
	})
}

// AddValidator registers a validator, seeding its book stake from the
// backend's currently-reported stake so a pre-staked validator migrates in
// without losing accounting.
func (v *Vault) AddValidator(caller, validator poly.Address, private bool) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		if validator.IsZero() {
			return reverts.ErrZeroAddress
		}
		staked, err := v.staker.StakedAmount(validator)
		if err != nil {
			return errors.Wrap(err, "failed to read staked amount")
		}
		if err := v.registry.Add(validator, private, staked); err != nil {
			return err
		}
		logger.Info("validator added", "validator", validator, "private", private, "staked", staked)
		return nil
	})
}

// EnableValidator re-enables a disabled validator.
func (v *Vault) EnableValidator(caller, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.Enable(validator)
	})
}

// DisableValidator excludes a validator from default selection and new
// deposits without moving funds.
func (v *Vault) DisableValidator(caller, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.Disable(validator)
	})
}

// SetDefaultValidator designates the target of untargeted deposits.
func (v *Vault) SetDefaultValidator(caller, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.SetDefault(validator)
	})
}

// ChangeValidatorPrivacy flips a validator between public and private.
func (v *Vault) ChangeValidatorPrivacy(caller, validator poly.Address, private bool) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.SetPrivacy(validator, private)
	})
}

// GivePrivateAccess entitles a user to a private validator.
func (v *Vault) GivePrivateAccess(caller, user, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.GrantAccess(user, validator)
	})
}

// RemovePrivateAccess withdraws a user's private validator entitlement.
func (v *Vault) RemovePrivateAccess(caller, user poly.Address) error {
	return v.run(func() error {
		if err := v.requireOwner(caller); err != nil {
			return err
		}
		return v.registry.RevokeAccess(user)
	})
}

// Validators lists the registered validators in insertion order.
func (v *Vault) Validators() ([]*registry.Validator, error) {
	return v.registry.All()
}

// Validator returns a single registered validator.
func (v *Vault) Validator(addr poly.Address) (*registry.Validator, error) {
	return v.registry.Get(addr)
}

// DefaultValidator returns the target of untargeted deposits, or the zero
// address when unset.
func (v *Vault) DefaultValidator() (poly.Address, error) {
	return v.registry.Default()
}

// Withdrawal returns the pending withdrawal record at (validator, nonce);
// Exists is false for claimed or never-created nonces.
func (v *Vault) Withdrawal(validator poly.Address, nonce uint64) (user poly.Address, amount *big.Int, exists bool, err error) {
	record, err := v.queue.Get(validator, nonce)
	if err != nil {
		return poly.Address{}, nil, false, err
	}
	if !record.Exists() {
		return poly.Address{}, nil, false, nil
	}
	return record.User, record.Amount, true, nil
}

// LastUnbondNonce returns the highest unbond nonce seen for a validator.
func (v *Vault) LastUnbondNonce(validator poly.Address) (uint64, error) {
	return v.queue.LastNonce(validator)
}

// Allocation returns the allocation from distributor to recipient, with a
// false flag when none exists.
func (v *Vault) Allocation(distributor, recipient poly.Address, strict bool) (amount *big.Int, exists bool, err error) {
	alloc, err := v.allocs.Get(distributor, recipient, strict)
	if err != nil || alloc == nil {
		return nil, false, err
	}
	return alloc.Amount, true, nil
}

// AllocationRecipients lists the current recipients of a distributor.
func (v *Vault) AllocationRecipients(distributor poly.Address, strict bool) ([]poly.Address, error) {
	return v.allocs.Recipients(distributor, strict)
}

// AllocationDistributors lists the distributors allocating to a recipient.
func (v *Vault) AllocationDistributors(recipient poly.Address, strict bool) ([]poly.Address, error) {
	return v.allocs.Distributors(recipient, strict)
}
