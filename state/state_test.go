// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystake/vault/kv"
	"github.com/polystake/vault/poly"
)

func TestStorageRoundTrip(t *testing.T) {
	st := New(kv.NewMem())

	key := poly.Blake2b([]byte("slot"))
	value := poly.BytesToBytes32([]byte{0xde, 0xad, 0xbe, 0xef})

	got, err := st.GetStorage(key)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	st.SetStorage(key, value)
	got, err = st.GetStorage(key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)

	// clearing
	st.SetStorage(key, poly.Bytes32{})
	got, err = st.GetStorage(key)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCheckpointRevert(t *testing.T) {
	st := New(kv.NewMem())

	key := poly.Blake2b([]byte("slot"))
	v1 := poly.BytesToBytes32([]byte{1})
	v2 := poly.BytesToBytes32([]byte{2})

	st.SetStorage(key, v1)

	cp := st.NewCheckpoint()
	st.SetStorage(key, v2)

	got, _ := st.GetStorage(key)
	assert.Equal(t, v2, got)

	st.RevertTo(cp)
	got, _ = st.GetStorage(key)
	assert.Equal(t, v1, got)
}

func TestStageCommitPersists(t *testing.T) {
	store := kv.NewMem()
	st := New(store)

	key := poly.Blake2b([]byte("slot"))
	value := poly.BytesToBytes32([]byte{42})
	st.SetStorage(key, value)

	require.NoError(t, st.Stage().Commit())

	// a fresh state over the same store sees the committed value
	reopened := New(store)
	got, err := reopened.GetStorage(key)
	assert.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestRevertedWritesNotStaged(t *testing.T) {
	store := kv.NewMem()
	st := New(store)

	key := poly.Blake2b([]byte("slot"))
	cp := st.NewCheckpoint()
	st.SetStorage(key, poly.BytesToBytes32([]byte{7}))
	st.RevertTo(cp)

	assert.Equal(t, 0, st.Stage().Len())
}
