// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package backend

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/poly"
)

type unbondRequest struct {
	amount       *big.Int
	requestEpoch uint64
	claimed      bool
}

// Simulator is an in-memory staking backend. It mimics the epoch-delayed
// unbonding of a real staking chain: unstake requests receive sequential
// nonces per validator and become claimable by epoch arithmetic on the
// vault's side, while yield accrues only when explicitly injected via
// AccrueYield (or by a driver loop, see cmd/vaultd).
type Simulator struct {
	assets *TokenLedger
	vault  poly.Address
	pool   poly.Address

	epoch      uint64
	stakes     map[poly.Address]*big.Int
	yields     map[poly.Address]*big.Int
	nonces     map[poly.Address]uint64
	unbonds    map[poly.Address]map[uint64]*unbondRequest
	minRestake *big.Int
}

// NewSimulator wires a simulator to the given token ledger. vault is the
// account the simulator pulls stakes from and pays claims and yield to.
func NewSimulator(assets *TokenLedger, vault poly.Address, minRestake *big.Int) *Simulator {
	return &Simulator{
		assets:     assets,
		vault:      vault,
		pool:       poly.BytesToAddress([]byte("staking-pool")),
		stakes:     make(map[poly.Address]*big.Int),
		yields:     make(map[poly.Address]*big.Int),
		nonces:     make(map[poly.Address]uint64),
		unbonds:    make(map[poly.Address]map[uint64]*unbondRequest),
		minRestake: new(big.Int).Set(minRestake),
	}
}

// AdvanceEpochs moves the epoch counter forward.
func (s *Simulator) AdvanceEpochs(n uint64) {
	s.epoch += n
}

// AccrueYield makes amount of liquid yield appear on the validator.
func (s *Simulator) AccrueYield(validator poly.Address, amount *big.Int) {
	y, ok := s.yields[validator]
	if !ok {
		y = new(big.Int)
		s.yields[validator] = y
	}
	y.Add(y, amount)
}

func (s *Simulator) Stake(validator poly.Address, amount *big.Int) error {
	if err := s.assets.Transfer(s.vault, s.pool, amount); err != nil {
		return errors.Wrap(err, "failed to pull stake")
	}
	st, ok := s.stakes[validator]
	if !ok {
		st = new(big.Int)
		s.stakes[validator] = st
	}
	st.Add(st, amount)
	return nil
}

func (s *Simulator) RequestUnstake(validator poly.Address, amount *big.Int) (uint64, error) {
	st := s.stakes[validator]
	if st == nil || st.Cmp(amount) < 0 {
		return 0, errors.New("unstake exceeds staked amount")
	}
	st.Sub(st, amount)

	s.nonces[validator]++
	nonce := s.nonces[validator]
	reqs, ok := s.unbonds[validator]
	if !ok {
		reqs = make(map[uint64]*unbondRequest)
		s.unbonds[validator] = reqs
	}
	reqs[nonce] = &unbondRequest{
		amount:       new(big.Int).Set(amount),
		requestEpoch: s.epoch,
	}
	return nonce, nil
}

func (s *Simulator) ClaimUnstaked(validator poly.Address, nonce uint64) (*big.Int, error) {
	req := s.unbonds[validator][nonce]
	if req == nil || req.claimed {
		return nil, errors.Errorf("no pending unbond at nonce %d", nonce)
	}
	if err := s.assets.Transfer(s.pool, s.vault, req.amount); err != nil {
		return nil, errors.Wrap(err, "failed to release unbonded stake")
	}
	req.claimed = true
	return new(big.Int).Set(req.amount), nil
}

func (s *Simulator) LiquidYield(validator poly.Address) (*big.Int, error) {
	y, ok := s.yields[validator]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(y), nil
}

func (s *Simulator) ClaimYield(validator poly.Address) (*big.Int, error) {
	y, ok := s.yields[validator]
	if !ok || y.Sign() == 0 {
		return new(big.Int), nil
	}
	claimed := new(big.Int).Set(y)
	y.SetInt64(0)
	// yield enters circulation here
	s.assets.Mint(s.vault, claimed)
	return claimed, nil
}

func (s *Simulator) StakedAmount(validator poly.Address) (*big.Int, error) {
	st, ok := s.stakes[validator]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(st), nil
}

func (s *Simulator) UnbondEpoch(validator poly.Address, nonce uint64) (uint64, error) {
	req := s.unbonds[validator][nonce]
	if req == nil {
		return 0, errors.Errorf("no unbond request at nonce %d", nonce)
	}
	return req.requestEpoch, nil
}

func (s *Simulator) CurrentEpoch() (uint64, error) {
	return s.epoch, nil
}

func (s *Simulator) MinRestakeAmount() *big.Int {
	return new(big.Int).Set(s.minRestake)
}
