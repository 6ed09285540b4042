// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault/reverts"
)

// Config is the initial vault configuration.
type Config struct {
	// Owner is the administrative account.
	Owner poly.Address

	// Treasury receives the protocol's fee shares.
	Treasury poly.Address

	// Phi is the treasury's cut of realized yield, in FeePrecision-ths.
	Phi uint64

	// DistPhi is the treasury's cut of distributed allocation rewards,
	// in FeePrecision-ths.
	DistPhi uint64

	// MinDeposit is the smallest accepted deposit. Defaults to
	// poly.MinDepositFloor when nil.
	MinDeposit *big.Int

	// Epsilon is the rounding buffer reserved by MaxWithdraw. Defaults to
	// poly.DefaultEpsilon when nil.
	Epsilon *big.Int

	// StrictAllocation enables the strict allocation mode globally.
	StrictAllocation bool
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.Owner.IsZero() {
		return reverts.ErrZeroAddress
	}
	if c.Treasury.IsZero() {
		return reverts.ErrTreasuryNotSet
	}
	if c.Phi > poly.FeePrecision || c.DistPhi > poly.FeePrecision {
		return reverts.ErrFeeTooLarge
	}
	if c.MinDeposit != nil && c.MinDeposit.Cmp(poly.MinDepositFloor) < 0 {
		return reverts.ErrMinDepositTooSmall
	}
	if c.Epsilon != nil && c.Epsilon.Cmp(poly.MaxEpsilon) > 0 {
		return reverts.ErrEpsilonTooLarge
	}
	return nil
}

func (c *Config) minDepositOrDefault() *big.Int {
	if c.MinDeposit == nil {
		return new(big.Int).Set(poly.MinDepositFloor)
	}
	return c.MinDeposit
}

func (c *Config) epsilonOrDefault() *big.Int {
	if c.Epsilon == nil {
		return new(big.Int).Set(poly.DefaultEpsilon)
	}
	return c.Epsilon
}
