// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vaultapi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/vault/ratio"
	"github.com/polystake/vault/vault/registry"
)

// Status is the vault-wide accounting snapshot.
type Status struct {
	SharePrice       *Price                `json:"sharePrice"`
	TotalStaked      *math.HexOrDecimal256 `json:"totalStaked"`
	Uninvested       *math.HexOrDecimal256 `json:"uninvested"`
	TotalAssets      *math.HexOrDecimal256 `json:"totalAssets"`
	TotalSupply      *math.HexOrDecimal256 `json:"totalSupply"`
	Phi              uint64                `json:"phi"`
	DistPhi          uint64                `json:"distPhi"`
	MinDeposit       *math.HexOrDecimal256 `json:"minDeposit"`
	Paused           bool                  `json:"paused"`
	DefaultValidator *poly.Address         `json:"defaultValidator"`
}

// Price is an unreduced asset-per-share fraction.
type Price struct {
	Num   *math.HexOrDecimal256 `json:"num"`
	Denom *math.HexOrDecimal256 `json:"denom"`
}

// Account is a share holder's position.
type Account struct {
	Shares      *math.HexOrDecimal256 `json:"shares"`
	AssetValue  *math.HexOrDecimal256 `json:"assetValue"`
	MaxWithdraw *math.HexOrDecimal256 `json:"maxWithdraw"`
	MaxRedeem   *math.HexOrDecimal256 `json:"maxRedeem"`
}

// Validator is a registered stake target.
type Validator struct {
	Address      poly.Address          `json:"address"`
	Enabled      bool                  `json:"enabled"`
	Private      bool                  `json:"private"`
	StakedAmount *math.HexOrDecimal256 `json:"stakedAmount"`
}

// Withdrawal is a pending unbonding request.
type Withdrawal struct {
	User   poly.Address          `json:"user"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// Allocation is one distributor-to-recipient earmark.
type Allocation struct {
	Recipient poly.Address          `json:"recipient"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	Strict    bool                  `json:"strict"`
}

func num(x *big.Int) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(x)
}

func convertPrice(p ratio.Ratio) *Price {
	return &Price{Num: num(p.Num), Denom: num(p.Denom)}
}

func convertValidator(v *registry.Validator) *Validator {
	return &Validator{
		Address:      v.Address,
		Enabled:      v.Status == registry.StatusEnabled,
		Private:      v.Private,
		StakedAmount: num(v.StakedAmount),
	}
}
