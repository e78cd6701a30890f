// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import "errors"

var (
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrInsufficientStake         = errors.New("insufficient staked amount")
	ErrLockedStake               = errors.New("cold start stake cannot be withdrawn")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrNotInColdStart            = errors.New("not in cold start")
	ErrColdStartPeriodNotExpired = errors.New("cold start period not expired")
	ErrPoolExists                = errors.New("pool already exists")
	ErrPoolNotFound              = errors.New("pool not found")
	ErrStakeExists               = errors.New("stake already exists")
	ErrStakeNotFound             = errors.New("stake not found")
	ErrInvariantViolated         = errors.New("pool invariant violated")
)
