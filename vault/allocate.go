// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault/ratio"
	"github.com/polystake/vault/vault/reverts"
)

// Allocate earmarks amount of the caller's principal to continuously route
// its yield to recipient. Loose allocations may exceed the caller's balance;
// strict ones may not, and strictly-allocated balance becomes
// non-transferable.
func (v *Vault) Allocate(caller, recipient poly.Address, amount *big.Int, strict bool) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		if recipient.IsZero() {
			return reverts.ErrZeroAddress
		}
		if amount.Cmp(poly.StakeUnit) < 0 {
			return reverts.ErrAllocationUnderOneUnit
		}
		if strict {
			enabled, err := v.strictAllowed.Get()
			if err != nil {
				return err
			}
			if !enabled {
				return reverts.ErrStrictAllocationDisabled
			}
		}

		price, err := v.SharePrice()
		if err != nil {
			return err
		}
		if strict {
			unallocated, err := v.unallocatedAssets(caller, price)
			if err != nil {
				return err
			}
			if amount.Cmp(unallocated) > 0 {
				return reverts.ErrInsufficientDistributorBalance
			}
		}
		if err := v.allocs.Allocate(caller, recipient, strict, amount, price); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "allocate"})
		logger.Info("allocated", "distributor", caller, "recipient", recipient, "amount", amount, "strict", strict)
		return nil
	})
}

// unallocatedAssets is the asset value of the caller's balance not yet
// backing a strict allocation.
func (v *Vault) unallocatedAssets(addr poly.Address, price ratio.Ratio) (*big.Int, error) {
	balance, err := v.shares.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	value := price.AmountFromShares(balance)
	agg, err := v.allocs.Aggregate(addr, true)
	if err != nil {
		return nil, err
	}
	if agg != nil {
		value.Sub(value, agg.Amount)
		if value.Sign() < 0 {
			value.SetInt64(0)
		}
	}
	return value, nil
}

// Deallocate releases amount of an allocation. A strict deallocation first
// settles the pending reward on the whole allocation, so an accrued
// obligation cannot be dodged.
func (v *Vault) Deallocate(caller, recipient poly.Address, amount *big.Int, strict bool) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		if strict {
			price, err := v.SharePrice()
			if err != nil {
				return err
			}
			if err := v.distributeOne(caller, recipient, strict, false, price); err != nil {
				return err
			}
		}
		if err := v.allocs.Deallocate(caller, recipient, strict, amount); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "deallocate"})
		logger.Info("deallocated", "distributor", caller, "recipient", recipient, "amount", amount, "strict", strict)
		return nil
	})
}

// Reallocate moves a whole loose allocation from oldRecipient to
// newRecipient. Strict allocations are not reallocatable.
func (v *Vault) Reallocate(caller, oldRecipient, newRecipient poly.Address) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		if newRecipient.IsZero() {
			return reverts.ErrZeroAddress
		}
		if err := v.allocs.Reallocate(caller, oldRecipient, newRecipient); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "reallocate"})
		logger.Info("reallocated", "distributor", caller, "from", oldRecipient, "to", newRecipient)
		return nil
	})
}

// DistributeRewards pays recipient the yield accrued on the caller's
// allocation since it was last settled, net of the distribution fee. With
// inAsset the reward is redeemed to the base asset out of uninvested funds;
// otherwise it is paid in shares.
func (v *Vault) DistributeRewards(caller, recipient poly.Address, strict, inAsset bool) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		price, err := v.SharePrice()
		if err != nil {
			return err
		}
		return v.distributeOne(caller, recipient, strict, inAsset, price)
	})
}

// DistributeAll distributes to every current recipient of the caller at one
// consistent price. The outcome is order-independent.
func (v *Vault) DistributeAll(caller poly.Address, strict, inAsset bool) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if err := v.requireAllowed(caller); err != nil {
			return err
		}
		recipients, err := v.allocs.Recipients(caller, strict)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return reverts.ErrNothingToDistribute
		}
		price, err := v.SharePrice()
		if err != nil {
			return err
		}
		for _, recipient := range recipients {
			if err := v.distributeOne(caller, recipient, strict, inAsset, price); err != nil {
				return err
			}
		}
		return nil
	})
}

// distributeOne settles a single allocation at the given price. The reward
// is the shrinkage of the allocation's implied share count since the last
// settlement; zero shrinkage still rebases the stored price.
func (v *Vault) distributeOne(distributor, recipient poly.Address, strict, inAsset bool, price ratio.Ratio) error {
	alloc, err := v.allocs.Get(distributor, recipient, strict)
	if err != nil {
		return err
	}
	if alloc == nil {
		return reverts.ErrNoRewardsAllocatedToRecipient
	}

	reward := alloc.Price.SharesFromAmount(alloc.Amount)
	reward.Sub(reward, price.SharesFromAmount(alloc.Amount))

	if reward.Sign() > 0 {
		balance, err := v.shares.BalanceOf(distributor)
		if err != nil {
			return err
		}
		if balance.Cmp(reward) < 0 {
			return reverts.ErrInsufficientDistributorBalance
		}

		distPhi, err := v.distPhi.Get()
		if err != nil {
			return err
		}
		fee := new(big.Int).Mul(reward, distPhi)
		fee.Div(fee, new(big.Int).SetUint64(poly.FeePrecision))
		net := new(big.Int).Sub(reward, fee)

		if fee.Sign() > 0 {
			treasury, err := v.treasury.Get()
			if err != nil {
				return err
			}
			if err := v.shares.Transfer(distributor, treasury, fee); err != nil {
				return err
			}
		}
		if inAsset {
			proceeds := price.AmountFromShares(net)
			uninvested, err := v.uninvested.Get()
			if err != nil {
				return err
			}
			if uninvested.Cmp(proceeds) < 0 {
				return reverts.ErrInsufficientUninvestedAssets
			}
			if err := v.shares.Burn(distributor, net); err != nil {
				return err
			}
			if err := v.uninvested.Sub(proceeds); err != nil {
				return err
			}
			if err := v.assets.Transfer(v.addr, recipient, proceeds); err != nil {
				return err
			}
		} else if err := v.shares.Transfer(distributor, recipient, net); err != nil {
			return err
		}

		metricOperations().AddWithLabel(1, map[string]string{"op": "distribute"})
		logger.Info("distributed rewards",
			"distributor", distributor, "recipient", recipient,
			"shares", net, "strict", strict, "inAsset", inAsset)
	}

	return v.allocs.SettlePrice(distributor, recipient, strict, price)
}

// TransferShares moves shares between accounts, rejecting transfers that
// would dip into the caller's strictly-allocated balance.
func (v *Vault) TransferShares(caller, to poly.Address, amount *big.Int) error {
	return v.run(func() error {
		if err := v.requireNotPaused(); err != nil {
			return err
		}
		if to.IsZero() {
			return reverts.ErrZeroAddress
		}
		transferable, err := v.transferableShares(caller)
		if err != nil {
			return err
		}
		if amount.Cmp(transferable) > 0 {
			return reverts.ErrExceedsUnallocatedBalance
		}
		return v.shares.Transfer(caller, to, amount)
	})
}
