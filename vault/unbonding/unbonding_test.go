// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unbonding

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/state"
	"github.com/polystake/vault/storage"
)

func newTestQueue() *Queue {
	st := state.New(kv.NewMem())
	return New(storage.NewContext(poly.BytesToAddress([]byte("vault")), st))
}

func TestNonceTrackingPerValidator(t *testing.T) {
	q := newTestQueue()
	val1 := poly.BytesToAddress([]byte("validator-1"))
	val2 := poly.BytesToAddress([]byte("validator-2"))
	user := poly.BytesToAddress([]byte("user"))

	require.NoError(t, q.Put(val1, 1, user, big.NewInt(100)))
	require.NoError(t, q.Put(val1, 2, user, big.NewInt(200)))

	// nonces are independent per validator
	require.NoError(t, q.Put(val2, 1, user, big.NewInt(300)))

	last, err := q.LastNonce(val1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
	last, _ = q.LastNonce(val2)
	assert.Equal(t, uint64(1), last)
}

func TestGetAndTombstone(t *testing.T) {
	q := newTestQueue()
	val := poly.BytesToAddress([]byte("validator"))
	user := poly.BytesToAddress([]byte("user"))

	const nonce = 1
	require.NoError(t, q.Put(val, nonce, user, big.NewInt(3000)))

	rec, err := q.Get(val, nonce)
	require.NoError(t, err)
	assert.True(t, rec.Exists())
	assert.Equal(t, user, rec.User)
	assert.Equal(t, int64(3000), rec.Amount.Int64())

	require.NoError(t, q.Remove(val, nonce))

	rec, err = q.Get(val, nonce)
	require.NoError(t, err)
	assert.False(t, rec.Exists())

	// a nonce that was never issued is indistinguishable from a claimed one
	rec, err = q.Get(val, 99)
	require.NoError(t, err)
	assert.False(t, rec.Exists())
}
