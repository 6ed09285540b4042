// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poly

import "math/big"

// Protocol-wide constants of the vault accounting engine.
// Amounts are denominated in the base asset's smallest unit (wei scale).
const (
	// FeePrecision is the denominator for fee fractions: a fee of
	// FeePrecision/FeePrecision takes the whole amount.
	FeePrecision = uint64(10_000)

	// UnbondingEpochs is the number of epochs a withdrawal request stays
	// pending before it becomes claimable.
	UnbondingEpochs = uint64(80)
)

var (
	// StakeUnit is one whole unit of the base asset (1e18 wei). It is also
	// the scale factor of the share price fraction. Treated as read-only.
	StakeUnit = big.NewInt(1e18)

	// MinDepositFloor is the lower bound for the configurable minimum
	// deposit. A floor of one whole unit keeps first-deposit rounding loss
	// negligible against direct-donation price inflation.
	MinDepositFloor = big.NewInt(1e18)

	// DefaultEpsilon is the buffer reserved by MaxWithdraw so that a
	// withdrawal of exactly that amount cannot revert on rounding.
	DefaultEpsilon = big.NewInt(1e4)

	// MaxEpsilon bounds the configurable epsilon.
	MaxEpsilon = big.NewInt(1e12)
)
