// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ratio

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystake/vault/poly"
)

func unitsOf(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), poly.StakeUnit)
}

func TestBootstrapPriceIsOne(t *testing.T) {
	price := Bootstrap()

	amount := unitsOf(5)
	shares := price.SharesFromAmount(amount)
	assert.Equal(t, amount, shares)
	assert.Equal(t, amount, price.AmountFromShares(shares))
}

func TestRoundingDirections(t *testing.T) {
	// price of 3 asset units per share
	price := New(new(big.Int).Mul(big.NewInt(3), poly.StakeUnit), big.NewInt(1))

	amount := big.NewInt(10) // 10 wei, not divisible by 3
	down := price.SharesFromAmount(amount)
	up := price.SharesFromAmountCeil(amount)
	assert.Equal(t, int64(3), down.Int64())
	assert.Equal(t, int64(4), up.Int64())

	shares := big.NewInt(10)
	down = price.AmountFromShares(shares)
	up = price.AmountFromSharesCeil(shares)
	assert.Equal(t, int64(30), down.Int64())
	assert.Equal(t, int64(30), up.Int64())

	// a price that does not divide evenly in the share->amount direction
	odd := New(big.NewInt(7), big.NewInt(2)) // 7/(2*unit) asset per share
	down = odd.AmountFromShares(unitsOf(1))
	up = odd.AmountFromSharesCeil(unitsOf(1))
	assert.Equal(t, int64(3), down.Int64())
	assert.Equal(t, int64(4), up.Int64())
}

func TestCmp(t *testing.T) {
	one := Bootstrap()
	higher := New(new(big.Int).Mul(big.NewInt(3), poly.StakeUnit), big.NewInt(2))

	assert.Equal(t, -1, one.Cmp(higher))
	assert.Equal(t, 1, higher.Cmp(one))
	assert.Equal(t, 0, one.Cmp(Bootstrap()))

	// equal value, different representation
	scaled := New(new(big.Int).Mul(poly.StakeUnit, big.NewInt(10)), big.NewInt(10))
	assert.Equal(t, 0, one.Cmp(scaled))
}

func TestCombineIsHarmonicNotArithmetic(t *testing.T) {
	// 1000 units allocated at price 1.0, 2000 more at price 2.0.
	priceA := Bootstrap()
	priceB := New(new(big.Int).Mul(big.NewInt(2), poly.StakeUnit), big.NewInt(1))

	amountA := unitsOf(1000)
	amountB := unitsOf(2000)

	total, combined := Combine(amountA, priceA, amountB, priceB)
	assert.Equal(t, unitsOf(3000), total)

	// implied shares must be additive: 1000 + 1000 = 2000 whole shares
	shares := combined.SharesFromAmount(total)
	assert.Equal(t, unitsOf(2000), shares)

	// the harmonic price 3000/2000 = 1.5 is below the arithmetic
	// weighted mean (1000*1 + 2000*2)/3000 ≈ 1.667
	arithmetic := New(
		new(big.Int).Div(new(big.Int).Mul(big.NewInt(5000), poly.StakeUnit), big.NewInt(3)),
		big.NewInt(1000),
	)
	assert.Equal(t, -1, combined.Cmp(arithmetic))
}

func TestCombineShareAdditivityProperty(t *testing.T) {
	cases := []struct {
		amountA, amountB int64
		numA, denA       int64
		numB, denB       int64
	}{
		{1000, 2000, 1, 1, 2, 1},
		{17, 91, 13, 11, 29, 17},
		{1, 1, 3, 2, 5, 4},
		{500, 1, 7, 5, 7, 5},
	}

	for _, tc := range cases {
		priceA := New(new(big.Int).Mul(big.NewInt(tc.numA), poly.StakeUnit), big.NewInt(tc.denA))
		priceB := New(new(big.Int).Mul(big.NewInt(tc.numB), poly.StakeUnit), big.NewInt(tc.denB))
		amountA, amountB := unitsOf(tc.amountA), unitsOf(tc.amountB)

		total, combined := Combine(amountA, priceA, amountB, priceB)

		sum := new(big.Int).Add(priceA.SharesFromAmount(amountA), priceB.SharesFromAmount(amountB))
		got := combined.SharesFromAmount(total)

		// floor rounding may cost at most one share unit of drift
		diff := new(big.Int).Sub(sum, got)
		assert.True(t, diff.CmpAbs(big.NewInt(2)) < 0, "drift too large: %v", diff)
	}
}

func TestRepriceRestoresCurrentPriceWhenWholeAggregateMoves(t *testing.T) {
	from := Bootstrap()
	to := New(new(big.Int).Mul(big.NewInt(7), poly.StakeUnit), big.NewInt(4))

	aggAmount := unitsOf(123)
	got := Reprice(aggAmount, from, aggAmount, from, to)
	assert.Equal(t, 0, got.Cmp(to))
}

func TestRepriceKeepsShareCountConsistent(t *testing.T) {
	priceA := Bootstrap()
	priceB := New(new(big.Int).Mul(big.NewInt(2), poly.StakeUnit), big.NewInt(1))
	current := New(new(big.Int).Mul(big.NewInt(3), poly.StakeUnit), big.NewInt(1))

	amountA, amountB := unitsOf(300), unitsOf(600)
	total, agg := Combine(amountA, priceA, amountB, priceB)

	// settle the A-portion at the current price
	settled := Reprice(total, agg, amountA, priceA, current)

	want := new(big.Int).Add(current.SharesFromAmount(amountA), priceB.SharesFromAmount(amountB))
	got := settled.SharesFromAmount(total)
	diff := new(big.Int).Sub(want, got)
	assert.True(t, diff.CmpAbs(big.NewInt(2)) < 0, "drift too large: %v", diff)
}

func TestCloneIsDeep(t *testing.T) {
	r := Bootstrap()
	c := r.Clone()
	c.Num.Add(c.Num, big.NewInt(1))
	require.NotEqual(t, 0, r.Cmp(c))
}
