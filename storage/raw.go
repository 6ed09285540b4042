// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/polystake/vault/poly"
)

// Raw is a single rlp-encoded storage slot holding an arbitrary value.
type Raw[V any] struct {
	context *Context
	pos     poly.Bytes32
}

func NewRaw[V any](context *Context, slot poly.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: slot}
}

// Get returns the stored value, or the zero value if the slot is unset.
func (r *Raw[V]) Get() (value V, err error) {
	err = r.context.state.DecodeStorage(r.context.position(r.pos), func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value.
func (r *Raw[V]) Set(value V) error {
	return r.context.state.EncodeStorage(r.context.position(r.pos), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Clear empties the slot.
func (r *Raw[V]) Clear() error {
	return r.context.state.EncodeStorage(r.context.position(r.pos), func() ([]byte, error) {
		return nil, nil
	})
}
