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
	"github.com/polystake/vault/vault/unbonding"
)

// Deposit stakes amount with the given validator (or the default one for
// the zero address) and mints shares to the caller at the post-sweep price.
func (v *Vault) Deposit(caller poly.Address, amount *big.Int, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		target, err := v.resolveValidator(validator)
		if err != nil {
			return err
		}
		val, err := v.registry.Get(target)
		if err != nil {
			return err
		}
		if val.Status != registry.StatusEnabled {
			return reverts.ErrValidatorNotEnabled
		}
		if err := v.registry.CheckAccess(caller, target); err != nil {
			return err
		}
		minDeposit, err := v.minDeposit.Get()
		if err != nil {
			return err
		}
		if amount.Cmp(minDeposit) < 0 {
			return reverts.ErrDepositBelowMinDeposit
		}

		if err := v.sweep(target); err != nil {
			return err
		}
		price, err := v.SharePrice()
		if err != nil {
			return err
		}
		minted := price.SharesFromAmount(amount)

		if err := v.assets.Transfer(caller, v.addr, amount); err != nil {
			return errors.Wrap(err, "failed to pull deposit")
		}
		if err := v.staker.Stake(target, amount); err != nil {
			return errors.Wrap(err, "failed to stake deposit")
		}
		if err := v.totalStaked.Add(amount); err != nil {
			return err
		}
		if err := v.registry.AddStake(target, amount); err != nil {
			return err
		}
		if err := v.shares.Mint(caller, minted); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "deposit"})
		v.meterTotalStaked()
		logger.Info("deposit", "user", caller, "validator", target, "amount", amount, "shares", minted)
		return nil
	})
}

// Withdraw requests an unstake of amount from the validator. Shares are
// burnt immediately; the assets become claimable once the unbonding period
// has elapsed. Returns the unbond nonce identifying the request.
func (v *Vault) Withdraw(caller poly.Address, amount *big.Int, validator poly.Address) (nonce uint64, err error) {
	err = v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return reverts.ErrWithdrawalRequestAmountZero
		}
		target, err := v.resolveValidator(validator)
		if err != nil {
			return err
		}
		if _, err := v.registry.Get(target); err != nil {
			return err
		}
		if err := v.registry.CheckAccess(caller, target); err != nil {
			return err
		}

		if err := v.sweep(target); err != nil {
			return err
		}
		price, err := v.SharePrice()
		if err != nil {
			return err
		}
		limit, err := v.maxWithdrawAt(caller, price)
		if err != nil {
			return err
		}
		if amount.Cmp(limit) > 0 {
			return reverts.ErrWithdrawalAmountTooLarge
		}

		burnt := price.SharesFromAmountCeil(amount)
		if err := v.shares.Burn(caller, burnt); err != nil {
			return err
		}
		if err := v.totalStaked.Sub(amount); err != nil {
			return err
		}
		if err := v.registry.SubStake(target, amount); err != nil {
			return err
		}
		nonce, err = v.staker.RequestUnstake(target, amount)
		if err != nil {
			return errors.Wrap(err, "failed to request unstake")
		}
		if err := v.queue.Put(target, nonce, caller, amount); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "withdraw"})
		v.meterTotalStaked()
		logger.Info("withdrawal requested",
			"user", caller, "validator", target, "amount", amount, "nonce", nonce, "shares", burnt)
		return nil
	})
	return
}

// WithdrawClaim pays out a matured withdrawal request. Only the user who
// made the request may claim it, exactly once.
func (v *Vault) WithdrawClaim(caller poly.Address, validator poly.Address, nonce uint64) (claimed *big.Int, err error) {
	err = v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		target, err := v.resolveValidator(validator)
		if err != nil {
			return err
		}
		claimed, err = v.claimOne(caller, target, nonce)
		return err
	})
	return
}

// ClaimList claims several nonces atomically: any single failure aborts the
// whole batch. Every record is validated before the first one pays out, so
// an abort leaves the staking backend untouched too.
func (v *Vault) ClaimList(caller poly.Address, validator poly.Address, nonces []uint64) (total *big.Int, err error) {
	err = v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		target, err := v.resolveValidator(validator)
		if err != nil {
			return err
		}
		records := make([]*unbonding.Record, len(nonces))
		for i, nonce := range nonces {
			if records[i], err = v.claimableRecord(caller, target, nonce); err != nil {
				return err
			}
		}
		total = new(big.Int)
		for i, nonce := range nonces {
			claimed, err := v.payClaim(caller, target, nonce, records[i])
			if err != nil {
				return err
			}
			total.Add(total, claimed)
		}
		return nil
	})
	return
}

func (v *Vault) claimOne(caller, validator poly.Address, nonce uint64) (*big.Int, error) {
	record, err := v.claimableRecord(caller, validator, nonce)
	if err != nil {
		return nil, err
	}
	return v.payClaim(caller, validator, nonce, record)
}

// claimableRecord checks ownership and maturity of a withdrawal request
// without touching any state.
func (v *Vault) claimableRecord(caller, validator poly.Address, nonce uint64) (*unbonding.Record, error) {
	record, err := v.queue.Get(validator, nonce)
	if err != nil {
		return nil, err
	}
	// a tombstoned or never-created record has a zero user and fails here
	if record.User != caller {
		return nil, reverts.ErrSenderMustHaveInitiatedWithdrawalRequest
	}

	requestEpoch, err := v.staker.UnbondEpoch(validator, nonce)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read unbond epoch")
	}
	current, err := v.staker.CurrentEpoch()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read current epoch")
	}
	if current < requestEpoch+poly.UnbondingEpochs {
		return nil, reverts.ErrWithdrawalNotClaimable
	}
	return record, nil
}

func (v *Vault) payClaim(caller, validator poly.Address, nonce uint64, record *unbonding.Record) (*big.Int, error) {
	if _, err := v.staker.ClaimUnstaked(validator, nonce); err != nil {
		return nil, errors.Wrap(err, "failed to claim unstaked assets")
	}
	if err := v.assets.Transfer(v.addr, record.User, record.Amount); err != nil {
		return nil, errors.Wrap(err, "failed to forward claim")
	}
	if err := v.queue.Remove(validator, nonce); err != nil {
		return nil, err
	}

	metricOperations().AddWithLabel(1, map[string]string{"op": "claim"})
	logger.Info("withdrawal claimed", "user", caller, "validator", validator, "nonce", nonce, "amount", record.Amount)
	return record.Amount, nil
}

// CompoundRewards sweeps the validator's yield and restakes it together
// with any uninvested dust. A restake below the backend's minimum is
// skipped, not an error: one validator's dust must never block compounding.
func (v *Vault) CompoundRewards(caller poly.Address, validator poly.Address) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		target, err := v.resolveValidator(validator)
		if err != nil {
			return err
		}
		if _, err := v.registry.Get(target); err != nil {
			return err
		}

		if err := v.sweep(target); err != nil {
			return err
		}
		restake, err := v.uninvested.Get()
		if err != nil {
			return err
		}
		if restake.Cmp(v.staker.MinRestakeAmount()) < 0 {
			metricRestakeSkips().Add(1)
			logger.Info("restake skipped", "validator", target, "amount", restake)
			return nil
		}

		if err := v.staker.Stake(target, restake); err != nil {
			return errors.Wrap(err, "failed to restake")
		}
		if err := v.uninvested.Sub(restake); err != nil {
			return err
		}
		if err := v.totalStaked.Add(restake); err != nil {
			return err
		}
		if err := v.registry.AddStake(target, restake); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "compound"})
		v.meterTotalStaked()
		logger.Info("compounded rewards", "validator", target, "amount", restake)
		return nil
	})
}
