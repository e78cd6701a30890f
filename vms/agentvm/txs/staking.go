// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var (
	_ Instruction = (*InitializePool)(nil)
	_ Instruction = (*Stake)(nil)
	_ Instruction = (*StakeWithReputation)(nil)
	_ Instruction = (*Unstake)(nil)
	_ Instruction = (*ClaimRewards)(nil)
	_ Instruction = (*FundRewards)(nil)
	_ Instruction = (*ApplyReputationBoost)(nil)
	_ Instruction = (*InitializeColdStartTrust)(nil)
	_ Instruction = (*GraduateFromColdStart)(nil)
	_ Instruction = (*UpdateRewardRate)(nil)
	_ Instruction = (*UpdateReputationScore)(nil)
	_ Instruction = (*CalculateDynamicAPR)(nil)
)

// InitializePool creates the staking pool for StakedAssetID.
type InitializePool struct {
	Authority     ids.ShortID `serialize:"true" json:"authority"`
	StakedAssetID ids.ID      `serialize:"true" json:"stakedAssetID"`
	RewardAssetID ids.ID      `serialize:"true" json:"rewardAssetID"`
	RewardRate    uint64      `serialize:"true" json:"rewardRate"`
}

func (i *InitializePool) Visit(v Visitor) error {
	return v.InitializePool(i)
}

type Stake struct {
	Staker ids.ShortID `serialize:"true" json:"staker"`
	PoolID ids.ID      `serialize:"true" json:"poolID"`
	Amount uint64      `serialize:"true" json:"amount"`
}

func (i *Stake) Visit(v Visitor) error {
	return v.Stake(i)
}

type StakeWithReputation struct {
	Staker          ids.ShortID `serialize:"true" json:"staker"`
	PoolID          ids.ID      `serialize:"true" json:"poolID"`
	Amount          uint64      `serialize:"true" json:"amount"`
	ReputationScore uint64      `serialize:"true" json:"reputationScore"`
}

func (i *StakeWithReputation) Visit(v Visitor) error {
	return v.StakeWithReputation(i)
}

type Unstake struct {
	Staker ids.ShortID `serialize:"true" json:"staker"`
	PoolID ids.ID      `serialize:"true" json:"poolID"`
	Amount uint64      `serialize:"true" json:"amount"`
}

func (i *Unstake) Visit(v Visitor) error {
	return v.Unstake(i)
}

type ClaimRewards struct {
	Staker ids.ShortID `serialize:"true" json:"staker"`
	PoolID ids.ID      `serialize:"true" json:"poolID"`
}

func (i *ClaimRewards) Visit(v Visitor) error {
	return v.ClaimRewards(i)
}

// FundRewards tops up the reward reserve of a pool.
type FundRewards struct {
	Funder ids.ShortID `serialize:"true" json:"funder"`
	PoolID ids.ID      `serialize:"true" json:"poolID"`
	Amount uint64      `serialize:"true" json:"amount"`
}

func (i *FundRewards) Visit(v Visitor) error {
	return v.FundRewards(i)
}

// ApplyReputationBoost is signed by the pool authority on behalf of the
// attestation source.
type ApplyReputationBoost struct {
	Authority            ids.ShortID `serialize:"true" json:"authority"`
	PoolID               ids.ID      `serialize:"true" json:"poolID"`
	User                 ids.ShortID `serialize:"true" json:"user"`
	PositiveAttestations uint64      `serialize:"true" json:"positiveAttestations"`
}

func (i *ApplyReputationBoost) Visit(v Visitor) error {
	return v.ApplyReputationBoost(i)
}

type InitializeColdStartTrust struct {
	User              ids.ShortID `serialize:"true" json:"user"`
	PoolID            ids.ID      `serialize:"true" json:"poolID"`
	InitialTrustScore uint64      `serialize:"true" json:"initialTrustScore"`
}

func (i *InitializeColdStartTrust) Visit(v Visitor) error {
	return v.InitializeColdStartTrust(i)
}

type GraduateFromColdStart struct {
	User   ids.ShortID `serialize:"true" json:"user"`
	PoolID ids.ID      `serialize:"true" json:"poolID"`
}

func (i *GraduateFromColdStart) Visit(v Visitor) error {
	return v.GraduateFromColdStart(i)
}

type UpdateRewardRate struct {
	Authority ids.ShortID `serialize:"true" json:"authority"`
	PoolID    ids.ID      `serialize:"true" json:"poolID"`
	NewRate   uint64      `serialize:"true" json:"newRate"`
}

func (i *UpdateRewardRate) Visit(v Visitor) error {
	return v.UpdateRewardRate(i)
}

type UpdateReputationScore struct {
	Authority ids.ShortID `serialize:"true" json:"authority"`
	PoolID    ids.ID      `serialize:"true" json:"poolID"`
	User      ids.ShortID `serialize:"true" json:"user"`
	NewScore  uint64      `serialize:"true" json:"newScore"`
}

func (i *UpdateReputationScore) Visit(v Visitor) error {
	return v.UpdateReputationScore(i)
}

type CalculateDynamicAPR struct {
	Authority            ids.ShortID `serialize:"true" json:"authority"`
	PoolID               ids.ID      `serialize:"true" json:"poolID"`
	PositiveAttestations uint64      `serialize:"true" json:"positiveAttestations"`
	NegativeAttestations uint64      `serialize:"true" json:"negativeAttestations"`
}

func (i *CalculateDynamicAPR) Visit(v Visitor) error {
	return v.CalculateDynamicAPR(i)
}
