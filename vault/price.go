// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault/ratio"
)

// SharePrice reports the current asset-per-share price as an unreduced
// fraction. An empty vault prices at exactly one asset unit per share.
// Unclaimed yield counts toward the price net of the treasury's phi cut, so
// minting against this price never dilutes the treasury's pending fee.
func (v *Vault) SharePrice() (ratio.Ratio, error) {
	supply, err := v.shares.TotalSupply()
	if err != nil {
		return ratio.Ratio{}, err
	}
	if supply.Sign() == 0 {
		return ratio.Bootstrap(), nil
	}

	staked, err := v.totalStaked.Get()
	if err != nil {
		return ratio.Ratio{}, err
	}
	uninvested, err := v.uninvested.Get()
	if err != nil {
		return ratio.Ratio{}, err
	}
	rewards, err := v.TotalRewards()
	if err != nil {
		return ratio.Ratio{}, err
	}
	phi, err := v.phi.Get()
	if err != nil {
		return ratio.Ratio{}, err
	}

	precision := new(big.Int).SetUint64(poly.FeePrecision)
	num := new(big.Int).Add(staked, uninvested)
	num.Mul(num, precision)
	netted := new(big.Int).Sub(precision, phi)
	netted.Mul(netted, rewards)
	num.Add(num, netted)
	num.Mul(num, poly.StakeUnit)

	denom := new(big.Int).Mul(supply, precision)
	return ratio.New(num, denom), nil
}

// TotalRewards sums the currently-reported unclaimed yield over all
// registered validators. Derived, never stored.
func (v *Vault) TotalRewards() (*big.Int, error) {
	validators, err := v.registry.All()
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, val := range validators {
		yield, err := v.staker.LiquidYield(val.Address)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read liquid yield")
		}
		total.Add(total, yield)
	}
	return total, nil
}

// TotalStaked returns the principal the vault believes is staked or pending
// stake.
func (v *Vault) TotalStaked() (*big.Int, error) {
	return v.totalStaked.Get()
}

// UninvestedAssets returns the asset dust held by the vault awaiting
// restake.
func (v *Vault) UninvestedAssets() (*big.Int, error) {
	return v.uninvested.Get()
}

// TotalAssets returns the principal under management: staked plus
// uninvested, excluding unclaimed yield.
func (v *Vault) TotalAssets() (*big.Int, error) {
	staked, err := v.totalStaked.Get()
	if err != nil {
		return nil, err
	}
	uninvested, err := v.uninvested.Get()
	if err != nil {
		return nil, err
	}
	return staked.Add(staked, uninvested), nil
}

// TotalSupply returns the total minted shares.
func (v *Vault) TotalSupply() (*big.Int, error) {
	return v.shares.TotalSupply()
}

// BalanceOf returns an account's share balance.
func (v *Vault) BalanceOf(addr poly.Address) (*big.Int, error) {
	return v.shares.BalanceOf(addr)
}

// strictLockedShares returns the shares an account cannot move because they
// back its strict allocations, measured at the aggregate's stored price.
func (v *Vault) strictLockedShares(addr poly.Address) (*big.Int, error) {
	agg, err := v.allocs.Aggregate(addr, true)
	if err != nil || agg == nil {
		return new(big.Int), err
	}
	return agg.Price.SharesFromAmountCeil(agg.Amount), nil
}

// transferableShares returns the share balance minus the strict lock.
func (v *Vault) transferableShares(addr poly.Address) (*big.Int, error) {
	balance, err := v.shares.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	locked, err := v.strictLockedShares(addr)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(locked) <= 0 {
		return new(big.Int), nil
	}
	return balance.Sub(balance, locked), nil
}

func (v *Vault) maxWithdrawAt(addr poly.Address, price ratio.Ratio) (*big.Int, error) {
	avail, err := v.transferableShares(addr)
	if err != nil {
		return nil, err
	}
	amount := price.AmountFromShares(avail)
	eps, err := v.epsilon.Get()
	if err != nil {
		return nil, err
	}
	// reserve the epsilon buffer so a withdrawal of exactly the maximum
	// cannot revert on ceil-rounded share burning
	amount.Sub(amount, eps)
	if amount.Sign() < 0 {
		amount.SetInt64(0)
	}
	return amount, nil
}

// MaxWithdraw returns the largest amount a withdrawal request by addr can
// name without reverting, at the current share price.
func (v *Vault) MaxWithdraw(addr poly.Address) (*big.Int, error) {
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	return v.maxWithdrawAt(addr, price)
}

// MaxRedeem returns the largest share count addr can redeem, reserving the
// epsilon buffer in share terms.
func (v *Vault) MaxRedeem(addr poly.Address) (*big.Int, error) {
	avail, err := v.transferableShares(addr)
	if err != nil {
		return nil, err
	}
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	eps, err := v.epsilon.Get()
	if err != nil {
		return nil, err
	}
	buffer := price.SharesFromAmountCeil(eps)
	avail.Sub(avail, buffer)
	if avail.Sign() < 0 {
		avail.SetInt64(0)
	}
	return avail, nil
}

// MaxDeposit is unbounded; deposits are limited only by the caller's asset
// balance and the minimum deposit.
func (v *Vault) MaxDeposit(poly.Address) *big.Int {
	return unboundedLimit()
}

// MaxMint is unbounded, like MaxDeposit; minting is limited only by the
// assets needed to back the shares.
func (v *Vault) MaxMint(poly.Address) *big.Int {
	return unboundedLimit()
}

func unboundedLimit() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 256)
	return limit.Sub(limit, big.NewInt(1))
}

// PreviewDeposit returns the shares a deposit of amount would mint now.
func (v *Vault) PreviewDeposit(amount *big.Int) (*big.Int, error) {
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	return price.SharesFromAmount(amount), nil
}

// PreviewMint returns the assets needed to mint the given shares now.
func (v *Vault) PreviewMint(shares *big.Int) (*big.Int, error) {
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	return price.AmountFromSharesCeil(shares), nil
}

// PreviewWithdraw returns the shares a withdrawal of amount would burn now.
func (v *Vault) PreviewWithdraw(amount *big.Int) (*big.Int, error) {
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	return price.SharesFromAmountCeil(amount), nil
}

// PreviewRedeem returns the assets redeeming the given shares would pay now.
func (v *Vault) PreviewRedeem(shares *big.Int) (*big.Int, error) {
	price, err := v.SharePrice()
	if err != nil {
		return nil, err
	}
	return price.AmountFromShares(shares), nil
}
