// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "errors"

var errNotFound = errors.New("kv: not found")

// MemDB is a map backed GetPutCloser, suitable for tests and solo runs.
type MemDB struct {
	kvs map[string][]byte
}

var _ GetPutCloser = (*MemDB)(nil)

// NewMem creates an empty in-memory store.
func NewMem() *MemDB {
	return &MemDB{kvs: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	if v, ok := m.kvs[string(key)]; ok {
		cpy := make([]byte, len(v))
		copy(cpy, v)
		return cpy, nil
	}
	return nil, errNotFound
}

func (m *MemDB) Has(key []byte) (bool, error) {
	_, ok := m.kvs[string(key)]
	return ok, nil
}

func (m *MemDB) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (m *MemDB) Put(key, value []byte) error {
	cpy := make([]byte, len(value))
	copy(cpy, value)
	m.kvs[string(key)] = cpy
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	delete(m.kvs, string(key))
	return nil
}

func (m *MemDB) Close() error { return nil }

func (m *MemDB) NewBatch() Batch {
	return &memBatch{db: m}
}

type memOp struct {
	key, value []byte
	del        bool
}

type memBatch struct {
	db  *MemDB
	ops []memOp
}

func (b *memBatch) Put(key, value []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, memOp{key: k, value: v})
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	b.ops = append(b.ops, memOp{key: k, del: true})
	return nil
}

func (b *memBatch) Len() int { return len(b.ops) }

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		if op.del {
			delete(b.db.kvs, string(op.key))
		} else {
			b.db.kvs[string(op.key)] = op.value
		}
	}
	return nil
}
