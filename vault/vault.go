// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/log"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/state"
	"github.com/polystake/vault/storage"
	"github.com/polystake/vault/vault/allocations"
	"github.com/polystake/vault/vault/registry"
	"github.com/polystake/vault/vault/reverts"
	"github.com/polystake/vault/vault/shares"
	"github.com/polystake/vault/vault/unbonding"
)

var logger = log.WithContext("pkg", "vault")

// Staker is the external staking backend. All calls are synchronous, but
// they cross a trust boundary: every state-mutating vault entry point is
// re-entrance-guarded against callbacks from here.
type Staker interface {
	Stake(validator poly.Address, amount *big.Int) error
	RequestUnstake(validator poly.Address, amount *big.Int) (uint64, error)
	ClaimUnstaked(validator poly.Address, nonce uint64) (*big.Int, error)
	LiquidYield(validator poly.Address) (*big.Int, error)
	ClaimYield(validator poly.Address) (*big.Int, error)
	StakedAmount(validator poly.Address) (*big.Int, error)
	UnbondEpoch(validator poly.Address, nonce uint64) (uint64, error)
	CurrentEpoch() (uint64, error)
	MinRestakeAmount() *big.Int
}

// AssetLedger is the base-asset token book the vault moves funds on.
type AssetLedger interface {
	Transfer(from, to poly.Address, amount *big.Int) error
	BalanceOf(addr poly.Address) (*big.Int, error)
}

// Allowlist gates principal-moving and allocation-moving callers.
type Allowlist interface {
	IsAllowed(addr poly.Address) bool
}

var (
	slotOwner         = poly.BytesToBytes32([]byte("vault-owner"))
	slotTreasury      = poly.BytesToBytes32([]byte("vault-treasury"))
	slotPhi           = poly.BytesToBytes32([]byte("vault-phi"))
	slotDistPhi       = poly.BytesToBytes32([]byte("vault-dist-phi"))
	slotMinDeposit    = poly.BytesToBytes32([]byte("vault-min-deposit"))
	slotEpsilon       = poly.BytesToBytes32([]byte("vault-epsilon"))
	slotTotalStaked   = poly.BytesToBytes32([]byte("vault-total-staked"))
	slotUninvested    = poly.BytesToBytes32([]byte("vault-uninvested"))
	slotPaused        = poly.BytesToBytes32([]byte("vault-paused"))
	slotStrictAllowed = poly.BytesToBytes32([]byte("vault-strict-allowed"))
)

// Vault is the liquid-staking accounting engine. It owns the share ledger,
// validator registry, unbonding queue and allocation book, and coordinates
// them with the external asset ledger, allowlist and staking backend.
//
// Every mutating entry point runs under a checkpoint: any error reverts all
// state changes of the call. Calls are serialized by the host; the only
// hazard guarded here is re-entrance through the staking backend.
type Vault struct {
	addr   poly.Address
	state  *state.State
	assets AssetLedger
	allow  Allowlist
	staker Staker

	registry *registry.Registry
	shares   *shares.Ledger
	queue    *unbonding.Queue
	allocs   *allocations.Ledger

	owner         *storage.Raw[poly.Address]
	treasury      *storage.Raw[poly.Address]
	phi           *storage.Uint256
	distPhi       *storage.Uint256
	minDeposit    *storage.Uint256
	epsilon       *storage.Uint256
	totalStaked   *storage.Uint256
	uninvested    *storage.Uint256
	paused        *storage.Raw[bool]
	strictAllowed *storage.Raw[bool]

	busy bool
}

// New wires a vault over the given state and collaborators. addr is the
// vault's own account on the asset ledger.
func New(addr poly.Address, st *state.State, assets AssetLedger, allow Allowlist, staker Staker) *Vault {
	sctx := storage.NewContext(addr, st)
	return &Vault{
		addr:   addr,
		state:  st,
		assets: assets,
		allow:  allow,
		staker: staker,

		registry: registry.New(sctx),
		shares:   shares.New(sctx),
		queue:    unbonding.New(sctx),
		allocs:   allocations.New(sctx),

		owner:         storage.NewRaw[poly.Address](sctx, slotOwner),
		treasury:      storage.NewRaw[poly.Address](sctx, slotTreasury),
		phi:           storage.NewUint256(sctx, slotPhi),
		distPhi:       storage.NewUint256(sctx, slotDistPhi),
		minDeposit:    storage.NewUint256(sctx, slotMinDeposit),
		epsilon:       storage.NewUint256(sctx, slotEpsilon),
		totalStaked:   storage.NewUint256(sctx, slotTotalStaked),
		uninvested:    storage.NewUint256(sctx, slotUninvested),
		paused:        storage.NewRaw[bool](sctx, slotPaused),
		strictAllowed: storage.NewRaw[bool](sctx, slotStrictAllowed),
	}
}

// Address returns the vault's account on the asset ledger.
func (v *Vault) Address() poly.Address {
	return v.addr
}

// Initialize writes the configuration into a fresh state. It fails if the
// vault has been initialized before.
func (v *Vault) Initialize(cfg Config) error {
	return v.run(func() error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		owner, err := v.owner.Get()
		if err != nil {
			return err
		}
		if !owner.IsZero() {
			return errors.New("vault already initialized")
		}
		if err := v.owner.Set(cfg.Owner); err != nil {
			return err
		}
		if err := v.treasury.Set(cfg.Treasury); err != nil {
			return err
		}
		v.phi.Set(new(big.Int).SetUint64(cfg.Phi))
		v.distPhi.Set(new(big.Int).SetUint64(cfg.DistPhi))
		v.minDeposit.Set(cfg.minDepositOrDefault())
		v.epsilon.Set(cfg.epsilonOrDefault())
		if cfg.StrictAllocation {
			if err := v.strictAllowed.Set(true); err != nil {
				return err
			}
		}
		logger.Info("vault initialized",
			"owner", cfg.Owner, "treasury", cfg.Treasury,
			"phi", cfg.Phi, "distPhi", cfg.DistPhi)
		return nil
	})
}

// Commit persists all state changes accumulated so far.
func (v *Vault) Commit() error {
	return v.state.Stage().Commit()
}

// run executes fn under the re-entrance guard and a state checkpoint. Any
// error reverts every state change made by fn.
func (v *Vault) run(fn func() error) error {
	if v.busy {
		return reverts.ErrReentrantCall
	}
	v.busy = true
	defer func() { v.busy = false }()

	cp := v.state.NewCheckpoint()
	if err := fn(); err != nil {
		v.state.RevertTo(cp)
		return err
	}
	return nil
}

func (v *Vault) requireNotPaused() error {
	paused, err := v.paused.Get()
	if err != nil {
		return err
	}
	if paused {
		return reverts.ErrPaused
	}
	return nil
}

func (v *Vault) requireAllowed(caller poly.Address) error {
	if !v.allow.IsAllowed(caller) {
		return reverts.ErrNotAuthorized
	}
	return nil
}

func (v *Vault) requireOwner(caller poly.Address) error {
	owner, err := v.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return reverts.ErrNotOwner
	}
	return nil
}

// resolveValidator substitutes the default validator for the zero address.
func (v *Vault) resolveValidator(validator poly.Address) (poly.Address, error) {
	if !validator.IsZero() {
		return validator, nil
	}
	def, err := v.registry.Default()
	if err != nil {
		return poly.Address{}, err
	}
	if def.IsZero() {
		return poly.Address{}, reverts.ErrValidatorDoesNotExist
	}
	return def, nil
}

// sweep realizes the validator's currently-reported liquid yield: the claim
// lands in uninvestedAssets, and the treasury is minted its fee cut at the
// pre-sweep share price, so it is paid exactly once per unit of yield.
func (v *Vault) sweep(validator poly.Address) error {
	yield, err := v.staker.LiquidYield(validator)
	if err != nil {
		return errors.Wrap(err, "failed to read liquid yield")
	}
	if yield.Sign() == 0 {
		return nil
	}

	price, err := v.SharePrice()
	if err != nil {
		return err
	}
	phi, err := v.phi.Get()
	if err != nil {
		return err
	}

	claimed, err := v.staker.ClaimYield(validator)
	if err != nil {
		return errors.Wrap(err, "failed to claim yield")
	}
	if err := v.uninvested.Add(claimed); err != nil {
		return err
	}

	feeAssets := new(big.Int).Mul(claimed, phi)
	feeAssets.Div(feeAssets, new(big.Int).SetUint64(poly.FeePrecision))
	if feeAssets.Sign() > 0 {
		treasury, err := v.treasury.Get()
		if err != nil {
			return err
		}
		// the cut rounds down; the dust stays in the pool for all holders
		feeShares := price.SharesFromAmount(feeAssets)
		if err := v.shares.Mint(treasury, feeShares); err != nil {
			return err
		}
	}

	metricSweptYield().Add(weiToUnits(claimed))
	logger.Debug("swept validator yield", "validator", validator, "amount", claimed)
	return nil
}

// weiToUnits converts a wei-scale amount to whole asset units for metering.
func weiToUnits(amount *big.Int) int64 {
	units := new(big.Int).Div(amount, poly.StakeUnit)
	if !units.IsInt64() {
		return 0
	}
	return units.Int64()
}
