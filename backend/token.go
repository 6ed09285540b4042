// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package backend

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/poly"
)

// TokenLedger is an in-memory base-asset book.
type TokenLedger struct {
	balances map[poly.Address]*big.Int
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{balances: make(map[poly.Address]*big.Int)}
}

// Mint credits amount out of thin air.
func (t *TokenLedger) Mint(addr poly.Address, amount *big.Int) {
	bal, ok := t.balances[addr]
	if !ok {
		bal = new(big.Int)
		t.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

func (t *TokenLedger) Transfer(from, to poly.Address, amount *big.Int) error {
	fromBal := t.balances[from]
	if fromBal == nil || fromBal.Cmp(amount) < 0 {
		return errors.Errorf("insufficient asset balance at %s", from)
	}
	fromBal.Sub(fromBal, amount)
	t.Mint(to, amount)
	return nil
}

func (t *TokenLedger) BalanceOf(addr poly.Address) (*big.Int, error) {
	bal, ok := t.balances[addr]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}
