// Copyright (c) 2026 The Polystake developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// ErrRevert is the class of errors that fully revert a vault call: on any
// ErrRevert (or wrapped ErrRevert) every state change of the call is undone.
type ErrRevert struct {
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// IsRevertErr reports whether err is (or wraps) an ErrRevert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Authorization errors.
var (
	ErrNotAuthorized                            = New("caller not authorized")
	ErrNotOwner                                 = New("caller is not the owner")
	ErrPaused                                   = New("vault is paused")
	ErrReentrantCall                            = New("reentrant call")
	ErrSenderMustHaveInitiatedWithdrawalRequest = New("sender must have initiated the withdrawal request")
)

// Validator-state errors.
var (
	ErrZeroAddress                = New("zero address not supported")
	ErrValidatorAlreadyExists     = New("validator already exists")
	ErrValidatorDoesNotExist      = New("validator does not exist")
	ErrValidatorNotEnabled        = New("validator not enabled")
	ErrValidatorNotDisabled       = New("validator not disabled")
	ErrValidatorAccessDenied      = New("validator access denied")
	ErrValidatorAlreadyPrivate    = New("validator already private")
	ErrValidatorAlreadyNonPrivate = New("validator already non-private")
	ErrValidatorNotPrivate        = New("validator not private")
	ErrValidatorHasAssets         = New("validator has assets staked")
	ErrPrivateAccessAlreadyGiven  = New("user already has private validator access")
	ErrNoPrivateAccess            = New("user has no private validator access")
)

// Allocation-state errors.
var (
	ErrAllocationNonExistent          = New("allocation non existent")
	ErrNoRewardsAllocatedToRecipient  = New("no rewards allocated to recipient")
	ErrExcessDeallocation             = New("deallocation exceeds allocated amount")
	ErrInsufficientDistributorBalance = New("insufficient distributor balance")
	ErrStrictAllocationDisabled       = New("strict allocation disabled")
	ErrExceedsUnallocatedBalance      = New("transfer exceeds unallocated balance")
	ErrNothingToDistribute            = New("nothing to distribute")
)

// Quantity-bound errors.
var (
	ErrDepositBelowMinDeposit       = New("deposit below minimum deposit")
	ErrAllocationUnderOneUnit       = New("allocation under one unit")
	ErrWithdrawalAmountTooLarge     = New("withdrawal amount too large")
	ErrWithdrawalRequestAmountZero  = New("withdrawal request amount cannot equal zero")
	ErrWithdrawalNotClaimable       = New("withdrawal is not yet claimable")
	ErrInsufficientBalance          = New("insufficient share balance")
	ErrInsufficientUninvestedAssets = New("insufficient uninvested assets")
)

// Configuration-bound errors.
var (
	ErrFeeTooLarge        = New("fee fraction too large")
	ErrEpsilonTooLarge    = New("epsilon too large")
	ErrMinDepositTooSmall = New("minimum deposit too small")
	ErrTreasuryNotSet     = New("treasury address not set")
)
