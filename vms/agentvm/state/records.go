// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"
)

// StakingPool is the shared reward pool for one staked asset.
type StakingPool struct {
	ID                   ids.ID      `serialize:"true" json:"id"`
	Authority            ids.ShortID `serialize:"true" json:"authority"`
	StakedAssetID        ids.ID      `serialize:"true" json:"stakedAssetID"`
	RewardAssetID        ids.ID      `serialize:"true" json:"rewardAssetID"`
	RewardRate           uint64      `serialize:"true" json:"rewardRate"`
	APRBasisPoints       uint64      `serialize:"true" json:"aprBasisPoints"`
	TotalStaked          uint64      `serialize:"true" json:"totalStaked"`
	TotalEffectiveStaked uint64      `serialize:"true" json:"totalEffectiveStaked"`
	// AccRewardPerShare is a 2^40 fixed-point value.
	AccRewardPerShare uint256.Int `serialize:"true" json:"accRewardPerShare"`
	LastRewardTime    int64       `serialize:"true" json:"lastRewardTime"`
}

// UserStake is one participant's position in one pool. It is created on the
// first interaction and never removed.
type UserStake struct {
	PoolID          ids.ID      `serialize:"true" json:"poolID"`
	Owner           ids.ShortID `serialize:"true" json:"owner"`
	Amount          uint64      `serialize:"true" json:"amount"`
	EffectiveAmount uint64      `serialize:"true" json:"effectiveAmount"`
	// RewardDebt is in reward units (already shifted down).
	RewardDebt           uint256.Int `serialize:"true" json:"rewardDebt"`
	ReputationScore      uint64      `serialize:"true" json:"reputationScore"`
	PositiveAttestations uint64      `serialize:"true" json:"positiveAttestations"`
	IsColdStart          bool        `serialize:"true" json:"isColdStart"`
	ColdStartTimestamp   int64       `serialize:"true" json:"coldStartTimestamp"`
	// LockedAmount is the part of Amount granted by cold start. It can never
	// be withdrawn.
	LockedAmount uint64 `serialize:"true" json:"lockedAmount"`
}

// ProtocolState is the flash-loan protocol singleton.
type ProtocolState struct {
	Admin              ids.ShortID `serialize:"true" json:"admin"`
	FeeBasisPoints     uint64      `serialize:"true" json:"feeBasisPoints"`
	TotalFlashLoans    uint64      `serialize:"true" json:"totalFlashLoans"`
	TotalFeesCollected uint64      `serialize:"true" json:"totalFeesCollected"`
	Entropy            uint64      `serialize:"true" json:"entropy"`
	Stability          uint8       `serialize:"true" json:"stability"`
}

// TokenVault holds flash-loan liquidity for one asset.
type TokenVault struct {
	ID           ids.ID `serialize:"true" json:"id"`
	AssetID      ids.ID `serialize:"true" json:"assetID"`
	Balance      uint64 `serialize:"true" json:"balance"`
	Coherence    uint8  `serialize:"true" json:"coherence"`
	LinkStrength uint8  `serialize:"true" json:"linkStrength"`
}
