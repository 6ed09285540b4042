// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystake/vault/backend"
	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/state"
	"github.com/polystake/vault/vault/ratio"
	"github.com/polystake/vault/vault/reverts"
)

var (
	owner    = poly.BytesToAddress([]byte("owner"))
	treasury = poly.BytesToAddress([]byte("treasury"))
	alice    = poly.BytesToAddress([]byte("alice"))
	bob      = poly.BytesToAddress([]byte("bob"))
	carol    = poly.BytesToAddress([]byte("carol"))
	val1     = poly.BytesToAddress([]byte("validator-1"))
	val2     = poly.BytesToAddress([]byte("validator-2"))
)

func unitsOf(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), poly.StakeUnit)
}

type testEnv struct {
	vault  *Vault
	assets *backend.TokenLedger
	allow  *backend.Allowlist
	sim    *backend.Simulator
}

func newTestEnv(t *testing.T, cfg Config, minRestake *big.Int) *testEnv {
	assets := backend.NewTokenLedger()
	allow := backend.NewAllowlist(true)
	vaultAddr := poly.BytesToAddress([]byte("vault"))
	sim := backend.NewSimulator(assets, vaultAddr, minRestake)

	v := New(vaultAddr, state.New(kv.NewMem()), assets, allow, sim)
	require.NoError(t, v.Initialize(cfg))
	require.NoError(t, v.AddValidator(owner, val1, false))
	require.NoError(t, v.SetDefaultValidator(owner, val1))

	assets.Mint(alice, unitsOf(1_000_000))
	assets.Mint(bob, unitsOf(1_000_000))
	assets.Mint(carol, unitsOf(1_000_000))
	return &testEnv{vault: v, assets: assets, allow: allow, sim: sim}
}

func defaultConfig() Config {
	return Config{
		Owner:            owner,
		Treasury:         treasury,
		Phi:              1000, // 10%
		DistPhi:          0,
		StrictAllocation: true,
	}
}

func zeroFeeConfig() Config {
	cfg := defaultConfig()
	cfg.Phi = 0
	return cfg
}

func TestInitializeValidatesAndRunsOnce(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	err := env.vault.Initialize(defaultConfig())
	assert.EqualError(t, err, "vault already initialized")

	bad := defaultConfig()
	bad.Phi = poly.FeePrecision + 1
	v := New(poly.BytesToAddress([]byte("other")), state.New(kv.NewMem()), env.assets, env.allow, env.sim)
	assert.ErrorIs(t, v.Initialize(bad), reverts.ErrFeeTooLarge)

	bad = defaultConfig()
	bad.Treasury = poly.Address{}
	assert.ErrorIs(t, v.Initialize(bad), reverts.ErrTreasuryNotSet)
}

func TestDepositMintsAtBootstrapPrice(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	bal, err := env.vault.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, unitsOf(10_000), bal)

	staked, _ := env.vault.TotalStaked()
	assert.Equal(t, unitsOf(10_000), staked)

	val, _ := env.vault.Validator(val1)
	assert.Equal(t, unitsOf(10_000), val.StakedAmount)

	// backend agrees with the book
	backendStake, _ := env.sim.StakedAmount(val1)
	assert.Equal(t, unitsOf(10_000), backendStake)
}

func TestDepositGuards(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	err := env.vault.Deposit(alice, big.NewInt(1), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrDepositBelowMinDeposit)

	env.allow.Deny(alice)
	err = env.vault.Deposit(alice, unitsOf(10), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrNotAuthorized)
	env.allow.Allow(alice)

	require.NoError(t, env.vault.AddValidator(owner, val2, false))
	require.NoError(t, env.vault.DisableValidator(owner, val2))
	err = env.vault.Deposit(alice, unitsOf(10), val2)
	assert.ErrorIs(t, err, reverts.ErrValidatorNotEnabled)

	// a failed deposit leaves no partial state behind
	bal, _ := env.vault.BalanceOf(alice)
	assert.Zero(t, bal.Sign())
	staked, _ := env.vault.TotalStaked()
	assert.Zero(t, staked.Sign())
}

func TestWithdrawalLifecycle(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	nonce, err := env.vault.Withdraw(alice, unitsOf(3_000), poly.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	staked, _ := env.vault.TotalStaked()
	assert.Equal(t, unitsOf(7_000), staked)
	user, amount, exists, err := env.vault.Withdrawal(val1, nonce)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, alice, user)
	assert.Equal(t, unitsOf(3_000), amount)

	// not claimable before the unbonding period elapses
	_, err = env.vault.WithdrawClaim(alice, val1, nonce)
	assert.ErrorIs(t, err, reverts.ErrWithdrawalNotClaimable)

	env.sim.AdvanceEpochs(poly.UnbondingEpochs)

	// the wrong user cannot claim
	_, err = env.vault.WithdrawClaim(bob, val1, nonce)
	assert.ErrorIs(t, err, reverts.ErrSenderMustHaveInitiatedWithdrawalRequest)

	before, _ := env.assets.BalanceOf(alice)
	claimed, err := env.vault.WithdrawClaim(alice, val1, nonce)
	require.NoError(t, err)
	assert.Equal(t, unitsOf(3_000), claimed)
	after, _ := env.assets.BalanceOf(alice)
	assert.Equal(t, unitsOf(3_000), new(big.Int).Sub(after, before))

	// the record is now a tombstone: a second claim is rejected as if the
	// caller never made the request
	_, err = env.vault.WithdrawClaim(alice, val1, nonce)
	assert.ErrorIs(t, err, reverts.ErrSenderMustHaveInitiatedWithdrawalRequest)
}

func TestWithdrawGuards(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(100), poly.Address{}))

	_, err := env.vault.Withdraw(alice, new(big.Int), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrWithdrawalRequestAmountZero)

	_, err = env.vault.Withdraw(alice, unitsOf(101), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrWithdrawalAmountTooLarge)
}

func TestMaxWithdrawNeverReverts(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	// push the price off 1.0 so rounding actually matters
	env.sim.AccrueYield(val1, unitsOf(137))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	limit, err := env.vault.MaxWithdraw(alice)
	require.NoError(t, err)
	require.True(t, limit.Sign() > 0)

	_, err = env.vault.Withdraw(alice, limit, poly.Address{})
	assert.NoError(t, err)
}

func TestMintViewsMirrorDepositViews(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	// push the price off 1.0 so the rounding directions matter
	env.sim.AccrueYield(val1, unitsOf(321))

	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Equal(t, limit, env.vault.MaxDeposit(alice))
	assert.Equal(t, limit, env.vault.MaxMint(alice))

	// minting the shares a deposit would grant never costs more than the
	// deposit, and undershoots it by less than one share's worth
	shares, err := env.vault.PreviewDeposit(unitsOf(100))
	require.NoError(t, err)
	cost, err := env.vault.PreviewMint(shares)
	require.NoError(t, err)
	assert.True(t, cost.Cmp(unitsOf(100)) <= 0, "mint cost %v above deposit", cost)

	price, err := env.vault.SharePrice()
	require.NoError(t, err)
	slack := new(big.Int).Sub(unitsOf(100), cost)
	assert.True(t, slack.Cmp(price.AmountFromSharesCeil(big.NewInt(1))) <= 0, "slack %v", slack)
}

func TestDirectDonationDoesNotInflatePrice(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	// first depositor enters at the minimum deposit
	require.NoError(t, env.vault.Deposit(alice, poly.MinDepositFloor, poly.Address{}))

	// a griefer then donates a fortune straight to the vault's asset account
	require.NoError(t, env.assets.Transfer(carol, env.vault.Address(), unitsOf(900_000)))

	// the price reads the vault's own books, not its token balance
	price, err := env.vault.SharePrice()
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(ratio.Bootstrap()))

	// so the next depositor still mints full-value shares
	require.NoError(t, env.vault.Deposit(bob, unitsOf(1_000), poly.Address{}))
	bal, err := env.vault.BalanceOf(bob)
	require.NoError(t, err)
	assert.Equal(t, unitsOf(1_000), bal)
}

func TestClaimListIsAtomic(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	n1, err := env.vault.Withdraw(alice, unitsOf(1_000), poly.Address{})
	require.NoError(t, err)
	env.sim.AdvanceEpochs(poly.UnbondingEpochs)
	n2, err := env.vault.Withdraw(alice, unitsOf(2_000), poly.Address{})
	require.NoError(t, err)

	// n2 is not yet claimable: the whole batch must abort
	before, _ := env.assets.BalanceOf(alice)
	_, err = env.vault.ClaimList(alice, val1, []uint64{n1, n2})
	assert.ErrorIs(t, err, reverts.ErrWithdrawalNotClaimable)
	after, _ := env.assets.BalanceOf(alice)
	assert.Equal(t, before, after)
	_, _, exists, _ := env.vault.Withdrawal(val1, n1)
	assert.True(t, exists, "aborted batch must not consume any record")

	env.sim.AdvanceEpochs(poly.UnbondingEpochs)
	total, err := env.vault.ClaimList(alice, val1, []uint64{n1, n2})
	require.NoError(t, err)
	assert.Equal(t, unitsOf(3_000), total)
}

func TestSweepMintsTreasuryFeeOnce(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1)) // phi = 10%
	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	env.sim.AccrueYield(val1, unitsOf(100))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	// the treasury got minted the share-equivalent of 10 units at the
	// pre-sweep price; the rest of the yield was restaked
	tsyShares, _ := env.vault.BalanceOf(treasury)
	price, _ := env.vault.SharePrice()
	tsyValue := price.AmountFromShares(tsyShares)
	diff := new(big.Int).Sub(unitsOf(10), tsyValue)
	assert.True(t, diff.CmpAbs(poly.StakeUnit) < 0, "treasury cut off by %v", diff)
	// the cut rounds down: it never exceeds the phi share of the yield
	assert.True(t, tsyValue.Cmp(unitsOf(10)) <= 0, "treasury overpaid: %v", tsyValue)

	staked, _ := env.vault.TotalStaked()
	assert.Equal(t, unitsOf(10_100), staked)
	uninvested, _ := env.vault.UninvestedAssets()
	assert.Zero(t, uninvested.Sign())

	// compounding again with no new yield must not mint anything more
	require.NoError(t, env.vault.CompoundRewards(owner, val1))
	again, _ := env.vault.BalanceOf(treasury)
	assert.Equal(t, tsyShares, again)
}

func TestCompoundSoftSkipBelowMinimum(t *testing.T) {
	env := newTestEnv(t, zeroFeeConfig(), unitsOf(1_000))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	env.sim.AccrueYield(val1, unitsOf(100))
	// 100 < 1000 minimum: the call must not revert, the dust stays put
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	uninvested, _ := env.vault.UninvestedAssets()
	assert.Equal(t, unitsOf(100), uninvested)
	staked, _ := env.vault.TotalStaked()
	assert.Equal(t, unitsOf(10_000), staked)
}

func TestSharePriceMonotonicUnderAccrual(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(10_000), poly.Address{}))

	last, err := env.vault.SharePrice()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		env.sim.AccrueYield(val1, unitsOf(37))
		price, err := env.vault.SharePrice()
		require.NoError(t, err)
		assert.True(t, price.Cmp(last) >= 0, "price regressed at step %d", i)
		last = price

		require.NoError(t, env.vault.CompoundRewards(owner, val1))
		price, err = env.vault.SharePrice()
		require.NoError(t, err)
		assert.True(t, price.Cmp(last) >= 0, "price regressed after compound %d", i)
		last = price
	}
}

func TestConservationOfSupply(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(5_000), poly.Address{}))
	require.NoError(t, env.vault.Deposit(bob, unitsOf(3_000), poly.Address{}))
	env.sim.AccrueYield(val1, unitsOf(50))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))
	_, err := env.vault.Withdraw(alice, unitsOf(1_000), poly.Address{})
	require.NoError(t, err)

	supply, _ := env.vault.TotalSupply()
	sum := new(big.Int)
	for _, holder := range []poly.Address{alice, bob, treasury} {
		bal, _ := env.vault.BalanceOf(holder)
		sum.Add(sum, bal)
	}
	assert.Equal(t, supply, sum)
}

func TestNoFreeShares(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(bob, unitsOf(7_919), poly.Address{}))
	env.sim.AccrueYield(val1, unitsOf(421))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	minted, _ := env.vault.BalanceOf(alice)

	_, err := env.vault.Withdraw(alice, unitsOf(1_000), poly.Address{})
	// withdrawing the deposited amount must burn at least the minted shares
	if err == nil {
		left, _ := env.vault.BalanceOf(alice)
		assert.True(t, left.Sign() >= 0)
		burnt := new(big.Int).Sub(minted, left)
		assert.True(t, burnt.Cmp(minted) >= 0, "burnt %v < minted %v", burnt, minted)
	} else {
		// the literal deposit may exceed maxWithdraw by the epsilon buffer
		assert.ErrorIs(t, err, reverts.ErrWithdrawalAmountTooLarge)
	}
}

func TestPauseBlocksMutationNotViews(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(100), poly.Address{}))

	assert.ErrorIs(t, env.vault.Pause(alice), reverts.ErrNotOwner)
	require.NoError(t, env.vault.Pause(owner))

	err := env.vault.Deposit(alice, unitsOf(10), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrPaused)
	_, err = env.vault.Withdraw(alice, unitsOf(10), poly.Address{})
	assert.ErrorIs(t, err, reverts.ErrPaused)
	err = env.vault.Allocate(alice, bob, unitsOf(10), false)
	assert.ErrorIs(t, err, reverts.ErrPaused)

	// views stay available
	_, err = env.vault.SharePrice()
	assert.NoError(t, err)
	bal, err := env.vault.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, unitsOf(100), bal)

	require.NoError(t, env.vault.Unpause(owner))
	assert.NoError(t, env.vault.Deposit(alice, unitsOf(10), poly.Address{}))
}

// reentrantStaker calls back into the vault from inside Stake, like a
// malicious staking backend would.
type reentrantStaker struct {
	*backend.Simulator
	vault  *Vault
	err    error
	filter func() bool
}

func (r *reentrantStaker) Stake(validator poly.Address, amount *big.Int) error {
	if r.filter() {
		r.err = r.vault.Deposit(alice, unitsOf(10), poly.Address{})
	}
	return r.Simulator.Stake(validator, amount)
}

func TestReentrantCallIsRejected(t *testing.T) {
	assets := backend.NewTokenLedger()
	allow := backend.NewAllowlist(true)
	vaultAddr := poly.BytesToAddress([]byte("vault"))
	sim := backend.NewSimulator(assets, vaultAddr, unitsOf(1))

	hostile := &reentrantStaker{Simulator: sim}
	armed := false
	hostile.filter = func() bool { return armed }

	v := New(vaultAddr, state.New(kv.NewMem()), assets, allow, hostile)
	hostile.vault = v
	require.NoError(t, v.Initialize(defaultConfig()))
	require.NoError(t, v.AddValidator(owner, val1, false))
	require.NoError(t, v.SetDefaultValidator(owner, val1))
	assets.Mint(alice, unitsOf(1_000))

	armed = true
	require.NoError(t, v.Deposit(alice, unitsOf(100), poly.Address{}))
	assert.ErrorIs(t, hostile.err, reverts.ErrReentrantCall)

	// only the outer deposit took effect
	bal, _ := v.BalanceOf(alice)
	assert.Equal(t, unitsOf(100), bal)
}

func TestAllocateStrictRequiresBalanceAndSwitch(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))

	err := env.vault.Allocate(alice, bob, big.NewInt(1), false)
	assert.ErrorIs(t, err, reverts.ErrAllocationUnderOneUnit)

	err = env.vault.Allocate(alice, bob, unitsOf(1_100), true)
	assert.ErrorIs(t, err, reverts.ErrInsufficientDistributorBalance)

	// loose over-allocation is a feature, not an error
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(1_100), false))

	require.NoError(t, env.vault.SetStrictAllocation(owner, false))
	err = env.vault.Allocate(alice, bob, unitsOf(100), true)
	assert.ErrorIs(t, err, reverts.ErrStrictAllocationDisabled)
}

func TestStrictAllocationLocksTransfers(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(400), true))

	err := env.vault.TransferShares(alice, carol, unitsOf(700))
	assert.ErrorIs(t, err, reverts.ErrExceedsUnallocatedBalance)
	require.NoError(t, env.vault.TransferShares(alice, carol, unitsOf(600)))

	// the same size loose allocation does not block the same transfer
	env2 := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env2.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env2.vault.Allocate(alice, bob, unitsOf(400), false))
	require.NoError(t, env2.vault.TransferShares(alice, carol, unitsOf(700)))
}

func TestDistributeRewardsInShares(t *testing.T) {
	env := newTestEnv(t, zeroFeeConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(1_000), false))

	// double the vault's value: price 1.0 -> 2.0
	env.sim.AccrueYield(val1, unitsOf(1_000))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	require.NoError(t, env.vault.DistributeRewards(alice, bob, false, false))

	// 1000 units allocated at price 1 are 1000 shares; at price 2 they are
	// 500: the 500-share shrinkage is bob's reward
	bobShares, _ := env.vault.BalanceOf(bob)
	diff := new(big.Int).Sub(unitsOf(500), bobShares)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) < 0, "reward off by %v", diff)

	// idempotent: a second distribution with no accrual moves nothing
	require.NoError(t, env.vault.DistributeRewards(alice, bob, false, false))
	again, _ := env.vault.BalanceOf(bob)
	assert.Equal(t, bobShares, again)
}

func TestDistributeRewardsInAsset(t *testing.T) {
	env := newTestEnv(t, zeroFeeConfig(), unitsOf(10_000))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(1_000), false))

	// yield is swept into uninvested dust but stays below the restake
	// minimum, so it is available to pay asset-denominated distributions
	env.sim.AccrueYield(val1, unitsOf(100))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))
	uninvested, _ := env.vault.UninvestedAssets()
	require.Equal(t, unitsOf(100), uninvested)

	before, _ := env.assets.BalanceOf(bob)
	require.NoError(t, env.vault.DistributeRewards(alice, bob, false, true))
	after, _ := env.assets.BalanceOf(bob)

	paid := new(big.Int).Sub(after, before)
	diff := new(big.Int).Sub(unitsOf(100), paid)
	assert.True(t, diff.Sign() >= 0 && diff.Cmp(poly.StakeUnit) < 0, "paid %v", paid)
}

func TestDistributeFeeGoesToTreasury(t *testing.T) {
	cfg := zeroFeeConfig()
	cfg.DistPhi = 2_000 // 20%
	env := newTestEnv(t, cfg, unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(1_000), false))

	env.sim.AccrueYield(val1, unitsOf(1_000))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))
	require.NoError(t, env.vault.DistributeRewards(alice, bob, false, false))

	bobShares, _ := env.vault.BalanceOf(bob)
	tsyShares, _ := env.vault.BalanceOf(treasury)
	// 500 reward shares split 400/100
	diff := new(big.Int).Sub(unitsOf(400), bobShares)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) < 0, "net reward off by %v", diff)
	diff = new(big.Int).Sub(unitsOf(100), tsyShares)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) < 0, "fee off by %v", diff)
}

func TestDistributeAllMatchesSequential(t *testing.T) {
	seed := func(t *testing.T) *testEnv {
		env := newTestEnv(t, zeroFeeConfig(), unitsOf(1))
		require.NoError(t, env.vault.Deposit(alice, unitsOf(2_000), poly.Address{}))
		require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(700), false))
		require.NoError(t, env.vault.Allocate(alice, carol, unitsOf(1_100), false))
		env.sim.AccrueYield(val1, unitsOf(500))
		require.NoError(t, env.vault.CompoundRewards(owner, val1))
		return env
	}

	all := seed(t)
	require.NoError(t, all.vault.DistributeAll(alice, false, false))

	sequential := seed(t)
	// reversed per-recipient order must end in identical balances
	require.NoError(t, sequential.vault.DistributeRewards(alice, carol, false, false))
	require.NoError(t, sequential.vault.DistributeRewards(alice, bob, false, false))

	for _, holder := range []poly.Address{alice, bob, carol} {
		a, _ := all.vault.BalanceOf(holder)
		b, _ := sequential.vault.BalanceOf(holder)
		assert.Equal(t, a, b, "balance mismatch for %s", holder)
	}

	err := all.vault.DistributeAll(bob, false, false)
	assert.ErrorIs(t, err, reverts.ErrNothingToDistribute)
}

func TestAllocationConservation(t *testing.T) {
	env := newTestEnv(t, zeroFeeConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(5_000), poly.Address{}))

	check := func() {
		recipients, err := env.vault.AllocationRecipients(alice, false)
		require.NoError(t, err)
		sum := new(big.Int)
		for _, recipient := range recipients {
			amount, exists, err := env.vault.Allocation(alice, recipient, false)
			require.NoError(t, err)
			require.True(t, exists)
			sum.Add(sum, amount)
		}
		agg, err := env.vault.allocs.Aggregate(alice, false)
		require.NoError(t, err)
		if agg == nil {
			assert.Zero(t, sum.Sign())
		} else {
			assert.Equal(t, agg.Amount, sum)
		}
	}

	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(700), false))
	check()
	require.NoError(t, env.vault.Allocate(alice, carol, unitsOf(300), false))
	check()
	require.NoError(t, env.vault.Deallocate(alice, bob, unitsOf(200), false))
	check()
	// a move onto the same recipient must not disturb the books
	require.NoError(t, env.vault.Reallocate(alice, bob, bob))
	check()
	require.NoError(t, env.vault.Reallocate(alice, bob, carol))
	check()

	env.sim.AccrueYield(val1, unitsOf(250))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))
	require.NoError(t, env.vault.DistributeAll(alice, false, false))
	check()

	require.NoError(t, env.vault.Deallocate(alice, carol, unitsOf(800), false))
	check()
}

func TestStrictDeallocateSettlesFirst(t *testing.T) {
	env := newTestEnv(t, zeroFeeConfig(), unitsOf(1))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(1_000), poly.Address{}))
	require.NoError(t, env.vault.Allocate(alice, bob, unitsOf(1_000), true))

	env.sim.AccrueYield(val1, unitsOf(1_000))
	require.NoError(t, env.vault.CompoundRewards(owner, val1))

	// deallocating everything must still pay bob the accrued reward
	require.NoError(t, env.vault.Deallocate(alice, bob, unitsOf(1_000), true))

	bobShares, _ := env.vault.BalanceOf(bob)
	diff := new(big.Int).Sub(unitsOf(500), bobShares)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) < 0, "settled reward off by %v", diff)

	_, exists, err := env.vault.Allocation(alice, bob, true)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPrivateValidatorAccess(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))
	require.NoError(t, env.vault.AddValidator(owner, val2, true))

	err := env.vault.Deposit(alice, unitsOf(100), val2)
	assert.ErrorIs(t, err, reverts.ErrValidatorAccessDenied)

	require.NoError(t, env.vault.GivePrivateAccess(owner, alice, val2))
	require.NoError(t, env.vault.Deposit(alice, unitsOf(100), val2))

	require.NoError(t, env.vault.RemovePrivateAccess(owner, alice))
	err = env.vault.Deposit(alice, unitsOf(100), val2)
	assert.ErrorIs(t, err, reverts.ErrValidatorAccessDenied)
}

func TestAdminBounds(t *testing.T) {
	env := newTestEnv(t, defaultConfig(), unitsOf(1))

	assert.ErrorIs(t, env.vault.SetFee(owner, poly.FeePrecision+1), reverts.ErrFeeTooLarge)
	assert.ErrorIs(t, env.vault.SetMinDeposit(owner, big.NewInt(1)), reverts.ErrMinDepositTooSmall)
	tooBig := new(big.Int).Add(poly.MaxEpsilon, big.NewInt(1))
	assert.ErrorIs(t, env.vault.SetEpsilon(owner, tooBig), reverts.ErrEpsilonTooLarge)
	assert.ErrorIs(t, env.vault.TransferOwnership(owner, poly.Address{}), reverts.ErrZeroAddress)
	assert.ErrorIs(t, env.vault.SetFee(alice, 0), reverts.ErrNotOwner)

	require.NoError(t, env.vault.TransferOwnership(owner, alice))
	assert.NoError(t, env.vault.SetFee(alice, 500))
	assert.ErrorIs(t, env.vault.SetFee(owner, 500), reverts.ErrNotOwner)
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	store := kv.NewMem()
	assets := backend.NewTokenLedger()
	allow := backend.NewAllowlist(true)
	vaultAddr := poly.BytesToAddress([]byte("vault"))
	sim := backend.NewSimulator(assets, vaultAddr, unitsOf(1))
	assets.Mint(alice, unitsOf(1_000))

	v := New(vaultAddr, state.New(store), assets, allow, sim)
	require.NoError(t, v.Initialize(defaultConfig()))
	require.NoError(t, v.AddValidator(owner, val1, false))
	require.NoError(t, v.SetDefaultValidator(owner, val1))
	require.NoError(t, v.Deposit(alice, unitsOf(500), poly.Address{}))
	require.NoError(t, v.Commit())

	reopened := New(vaultAddr, state.New(store), assets, allow, sim)
	bal, err := reopened.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, unitsOf(500), bal)
	staked, _ := reopened.TotalStaked()
	assert.Equal(t, unitsOf(500), staked)
}
