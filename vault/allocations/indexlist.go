// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package allocations

import (
	"encoding/binary"

	"github.com/polystake/vault/poly"
	"github.com/polystake/vault/storage"
)

// indexList maintains an unordered address set per scope key, supporting
// O(1) membership, append and swap-and-pop removal. Positions are stored
// 1-based so that zero means absent.
type indexList struct {
	counts    *storage.Mapping[poly.Bytes32, uint64]
	items     *storage.Mapping[poly.Bytes32, poly.Address]
	positions *storage.Mapping[poly.Bytes32, uint64]
}

func newIndexList(sctx *storage.Context, base poly.Bytes32) *indexList {
	return &indexList{
		counts:    storage.NewMapping[poly.Bytes32, uint64](sctx, poly.Blake2b(base.Bytes(), []byte("len"))),
		items:     storage.NewMapping[poly.Bytes32, poly.Address](sctx, poly.Blake2b(base.Bytes(), []byte("items"))),
		positions: storage.NewMapping[poly.Bytes32, uint64](sctx, poly.Blake2b(base.Bytes(), []byte("pos"))),
	}
}

func itemKey(scope poly.Bytes32, index uint64) poly.Bytes32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return poly.Blake2b(scope.Bytes(), buf[:])
}

func memberKey(scope poly.Bytes32, member poly.Address) poly.Bytes32 {
	return poly.Blake2b(scope.Bytes(), member.Bytes())
}

func (l *indexList) contains(scope poly.Bytes32, member poly.Address) (bool, error) {
	pos, err := l.positions.Get(memberKey(scope, member))
	return pos != 0, err
}

// add appends the member if absent.
func (l *indexList) add(scope poly.Bytes32, member poly.Address) error {
	present, err := l.contains(scope, member)
	if err != nil || present {
		return err
	}
	count, err := l.counts.Get(scope)
	if err != nil {
		return err
	}
	count++
	if err := l.items.Set(itemKey(scope, count), member); err != nil {
		return err
	}
	if err := l.positions.Set(memberKey(scope, member), count); err != nil {
		return err
	}
	return l.counts.Set(scope, count)
}

// remove swaps the last member into the removed slot and pops the tail.
func (l *indexList) remove(scope poly.Bytes32, member poly.Address) error {
	pos, err := l.positions.Get(memberKey(scope, member))
	if err != nil {
		return err
	}
	if pos == 0 {
		return nil
	}
	count, err := l.counts.Get(scope)
	if err != nil {
		return err
	}
	if pos != count {
		last, err := l.items.Get(itemKey(scope, count))
		if err != nil {
			return err
		}
		if err := l.items.Set(itemKey(scope, pos), last); err != nil {
			return err
		}
		if err := l.positions.Set(memberKey(scope, last), pos); err != nil {
			return err
		}
	}
	if err := l.items.Delete(itemKey(scope, count)); err != nil {
		return err
	}
	if err := l.positions.Delete(memberKey(scope, member)); err != nil {
		return err
	}
	return l.counts.Set(scope, count-1)
}

func (l *indexList) list(scope poly.Bytes32) ([]poly.Address, error) {
	count, err := l.counts.Get(scope)
	if err != nil {
		return nil, err
	}
	members := make([]poly.Address, 0, count)
	for i := uint64(1); i <= count; i++ {
		member, err := l.items.Get(itemKey(scope, i))
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}
