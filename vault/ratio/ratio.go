// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ratio

import (
	"fmt"
	"math/big"

	"github.com/polystake/vault/poly"
)

// Ratio is an unreduced rational number expressing asset units per share.
// It is deliberately never reduced: reducing would discard precision that
// later harmonic combinations depend on. The fraction is scaled so that a
// price of exactly one asset unit per share is (StakeUnit, 1).
type Ratio struct {
	Num   *big.Int
	Denom *big.Int
}

// New builds a ratio from a numerator and a non-zero denominator.
// The inputs are not copied.
func New(num, denom *big.Int) Ratio {
	if denom == nil || denom.Sign() == 0 {
		panic(fmt.Sprintf("ratio: zero denominator (num=%v)", num))
	}
	return Ratio{Num: num, Denom: denom}
}

// Bootstrap is the share price of an empty vault: exactly 1 asset unit per share.
func Bootstrap() Ratio {
	return Ratio{
		Num:   new(big.Int).Set(poly.StakeUnit),
		Denom: big.NewInt(1),
	}
}

// IsZero reports an uninitialized ratio (the tombstone form used by
// allocation records).
func (r Ratio) IsZero() bool {
	return (r.Num == nil || r.Num.Sign() == 0) && (r.Denom == nil || r.Denom.Sign() == 0)
}

// Clone returns a deep copy.
func (r Ratio) Clone() Ratio {
	return Ratio{
		Num:   new(big.Int).Set(r.Num),
		Denom: new(big.Int).Set(r.Denom),
	}
}

// Cmp compares two ratios by cross multiplication, without dividing.
func (r Ratio) Cmp(other Ratio) int {
	a := new(big.Int).Mul(r.Num, other.Denom)
	b := new(big.Int).Mul(other.Num, r.Denom)
	return a.Cmp(b)
}

// SharesFromAmount converts an asset amount to shares, rounding down.
// Used when crediting a user: they never receive more shares than the
// amount is worth.
func (r Ratio) SharesFromAmount(amount *big.Int) *big.Int {
	num := new(big.Int).Mul(amount, poly.StakeUnit)
	num.Mul(num, r.Denom)
	return num.Div(num, r.Num)
}

// SharesFromAmountCeil converts an asset amount to shares, rounding up.
// Used when charging a user or the fee-taker is owed the result.
func (r Ratio) SharesFromAmountCeil(amount *big.Int) *big.Int {
	num := new(big.Int).Mul(amount, poly.StakeUnit)
	num.Mul(num, r.Denom)
	return ceilDiv(num, r.Num)
}

// AmountFromShares converts shares to an asset amount, rounding down.
// Used when paying a user.
func (r Ratio) AmountFromShares(shares *big.Int) *big.Int {
	num := new(big.Int).Mul(shares, r.Num)
	denom := new(big.Int).Mul(r.Denom, poly.StakeUnit)
	return num.Div(num, denom)
}

// AmountFromSharesCeil converts shares to an asset amount, rounding up.
// Used when computing what the vault is owed.
func (r Ratio) AmountFromSharesCeil(shares *big.Int) *big.Int {
	num := new(big.Int).Mul(shares, r.Num)
	denom := new(big.Int).Mul(r.Denom, poly.StakeUnit)
	return ceilDiv(num, denom)
}

// Combine merges two principal amounts priced at different ratios into one
// record, returning the combined amount and the price at which the implied
// share count of the whole equals the sum of the implied share counts of
// the parts:
//
//	price = (a+b) / (a/pa + b/pb)
//
// The products are kept unreduced.
func Combine(amountA *big.Int, priceA Ratio, amountB *big.Int, priceB Ratio) (*big.Int, Ratio) {
	total := new(big.Int).Add(amountA, amountB)

	num := new(big.Int).Mul(priceA.Num, priceB.Num)
	num.Mul(num, total)

	left := new(big.Int).Mul(amountA, priceA.Denom)
	left.Mul(left, priceB.Num)
	right := new(big.Int).Mul(amountB, priceB.Denom)
	right.Mul(right, priceA.Num)
	denom := left.Add(left, right)

	return total, New(num, denom)
}

// Reprice adjusts an aggregate of total amount aggAmount priced at agg when
// a member amount moves from price `from` to price `to`, keeping the
// aggregate's implied share count consistent:
//
//	shares' = shares(aggAmount@agg) - shares(amount@from) + shares(amount@to)
//	price'  = aggAmount / shares'
func Reprice(aggAmount *big.Int, agg Ratio, amount *big.Int, from, to Ratio) Ratio {
	num := new(big.Int).Mul(agg.Num, from.Num)
	num.Mul(num, to.Num)
	num.Mul(num, aggAmount)

	keep := new(big.Int).Mul(aggAmount, agg.Denom)
	keep.Mul(keep, from.Num)
	keep.Mul(keep, to.Num)

	sub := new(big.Int).Mul(amount, from.Denom)
	sub.Mul(sub, agg.Num)
	sub.Mul(sub, to.Num)

	add := new(big.Int).Mul(amount, to.Denom)
	add.Mul(add, agg.Num)
	add.Mul(add, from.Num)

	denom := keep.Sub(keep, sub)
	denom.Add(denom, add)

	return New(num, denom)
}

func ceilDiv(num, denom *big.Int) *big.Int {
	q, m := new(big.Int).DivMod(num, denom, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
