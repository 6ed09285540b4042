// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package shares

import (
	"math/big"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/storage"
	"github.com/polystake/vault/vault/reverts"
)

var (
	slotBalances = poly.BytesToBytes32([]byte("share-balances"))
	slotSupply   = poly.BytesToBytes32([]byte("share-supply"))
)

// Ledger is the claim-share token book: balances and total supply.
// Transfer restrictions tied to strict allocations are enforced by the
// vault on top of this ledger, not here.
type Ledger struct {
	balances *storage.Mapping[poly.Address, *big.Int]
	supply   *storage.Uint256
}

func New(sctx *storage.Context) *Ledger {
	return &Ledger{
		balances: storage.NewMapping[poly.Address, *big.Int](sctx, slotBalances),
		supply:   storage.NewUint256(sctx, slotSupply),
	}
}

// TotalSupply returns the sum of all minted shares.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.supply.Get()
}

// BalanceOf returns the share balance of an account.
func (l *Ledger) BalanceOf(addr poly.Address) (*big.Int, error) {
	return l.balances.Get(addr)
}

// Mint credits newly issued shares to an account.
func (l *Ledger) Mint(addr poly.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := l.balances.Get(addr)
	if err != nil {
		return err
	}
	bal.Add(bal, amount)
	if err := l.balances.Set(addr, bal); err != nil {
		return err
	}
	return l.supply.Add(amount)
}

// Burn destroys shares held by an account.
func (l *Ledger) Burn(addr poly.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := l.balances.Get(addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	if err := l.balances.Set(addr, bal); err != nil {
		return err
	}
	return l.supply.Sub(amount)
}

// Transfer moves shares between accounts.
func (l *Ledger) Transfer(from, to poly.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := l.balances.Get(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	toBal, err := l.balances.Get(to)
	if err != nil {
		return err
	}
	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)
	if err := l.balances.Set(from, fromBal); err != nil {
		return err
	}
	return l.balances.Set(to, toBal)
}
