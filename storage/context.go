// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/state"
)

// Context scopes typed storage slots to a ledger address, so that several
// ledgers can share one state without slot collisions.
type Context struct {
	address poly.Address
	state   *state.State
}

func NewContext(address poly.Address, st *state.State) *Context {
	return &Context{
		address: address,
		state:   st,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

// position derives the state slot for a ledger-local slot.
func (c *Context) position(slot poly.Bytes32) poly.Bytes32 {
	return poly.Blake2b(c.address.Bytes(), slot.Bytes())
}
