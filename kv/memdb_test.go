// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemDB(t *testing.T) {
	db := NewMem()

	_, err := db.Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))

	assert.NoError(t, db.Put([]byte("k"), []byte("v")))

	has, err := db.Has([]byte("k"))
	assert.NoError(t, err)
	assert.True(t, has)

	v, err := db.Get([]byte("k"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	assert.NoError(t, db.Delete([]byte("k")))
	has, _ = db.Has([]byte("k"))
	assert.False(t, has)
}

func TestMemDBBatch(t *testing.T) {
	db := NewMem()

	batch := db.NewBatch()
	assert.NoError(t, batch.Put([]byte("a"), []byte("1")))
	assert.NoError(t, batch.Put([]byte("b"), []byte("2")))
	assert.NoError(t, batch.Delete([]byte("a")))
	assert.Equal(t, 3, batch.Len())

	// nothing visible before Write
	has, _ := db.Has([]byte("b"))
	assert.False(t, has)

	assert.NoError(t, batch.Write())

	has, _ = db.Has([]byte("a"))
	assert.False(t, has)
	v, err := db.Get([]byte("b"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}
