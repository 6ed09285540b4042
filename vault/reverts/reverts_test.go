// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr("not an error"))
	assert.False(t, IsRevertErr(errors.New("plain error")))

	assert.True(t, IsRevertErr(ErrDepositBelowMinDeposit))
	assert.True(t, IsRevertErr(errors.Wrap(ErrValidatorNotEnabled, "deposit")))
}

func TestSentinelIdentity(t *testing.T) {
	wrapped := errors.Wrap(ErrExcessDeallocation, "deallocate")
	assert.True(t, errors.Is(wrapped, ErrExcessDeallocation))
	assert.False(t, errors.Is(wrapped, ErrAllocationNonExistent))
}
