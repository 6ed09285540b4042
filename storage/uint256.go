// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/polystake/vault/poly"
)

// Uint256 is a wrapper for storage and retrieval of a single unsigned
// integer slot, like an uint256 member of a smart contract.
// Values exceeding 256 bits are truncated to fit poly.Bytes32.
type Uint256 struct {
	context *Context
	pos     poly.Bytes32
}

func NewUint256(context *Context, slot poly.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.position(u.pos))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	storage := poly.BytesToBytes32(value.Bytes())
	u.context.state.SetStorage(u.context.position(u.pos), storage)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

// Sub subtracts value from the slot, failing on underflow.
func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return errors.Errorf("storage: uint256 underflow at slot %s", u.pos)
	}
	storage.Sub(storage, value)
	u.Set(storage)
	return nil
}
