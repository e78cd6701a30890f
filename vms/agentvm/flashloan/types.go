// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package flashloan

import (
	"errors"

	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/ids"
)

var (
	_ StakeReader = StakeReaderFunc(nil)

	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidFee             = errors.New("fee exceeds 100%")
	ErrMismatchedIdentity     = errors.New("stake record does not belong to borrower")
	ErrInsufficientReputation = errors.New("insufficient reputation")
	ErrHealthCheckFailed      = errors.New("entropy or coherence health check failed")
	ErrStabilityCheckFailed   = errors.New("stability below threshold")
	ErrExceedsMaxBorrow       = errors.New("amount exceeds max borrow")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrProtocolExists         = errors.New("protocol already initialized")
	ErrProtocolNotFound       = errors.New("protocol not initialized")
	ErrVaultExists            = errors.New("vault already exists")
	ErrVaultNotFound          = errors.New("vault not found")
	ErrLoanNotRepaid          = errors.New("flash loan not repaid")
)

// StakeView is the part of a stake record admission looks at.
type StakeView struct {
	Owner           ids.ShortID
	ReputationScore uint64
}

// StakeReader looks up the stake record a borrower presents as proof of
// reputation. Only the current record is consulted.
type StakeReader interface {
	GetUserStake(chain state.Chain, poolID ids.ID, user ids.ShortID) (StakeView, error)
}

// StakeReaderFunc adapts a function to StakeReader.
type StakeReaderFunc func(chain state.Chain, poolID ids.ID, user ids.ShortID) (StakeView, error)

func (f StakeReaderFunc) GetUserStake(chain state.Chain, poolID ids.ID, user ids.ShortID) (StakeView, error) {
	return f(chain, poolID, user)
}

// Request asks for amount of AssetID. StakePoolID and StakeOwner name the
// stake record presented for the reputation check.
type Request struct {
	Borrower    ids.ShortID
	AssetID     ids.ID
	Amount      uint64
	StakePoolID ids.ID
	StakeOwner  ids.ShortID
}
