// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package backend

import "github.com/polystake/vault/poly"

// Allowlist is an in-memory access list. When open, everyone is allowed and
// entries act as an explicit deny list.
type Allowlist struct {
	open    bool
	entries map[poly.Address]bool
}

func NewAllowlist(open bool) *Allowlist {
	return &Allowlist{
		open:    open,
		entries: make(map[poly.Address]bool),
	}
}

func (a *Allowlist) Allow(addr poly.Address) {
	a.entries[addr] = true
}

func (a *Allowlist) Deny(addr poly.Address) {
	a.entries[addr] = false
}

func (a *Allowlist) IsAllowed(addr poly.Address) bool {
	if allowed, ok := a.entries[addr]; ok {
		return allowed
	}
	return a.open
}
