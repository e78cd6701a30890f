// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/state"
)

// advance accrues rewardRate per second since the pool's last update into
// the accumulator. Nothing accrues while the pool is empty.
func advance(pool *state.StakingPool, now int64, precisionBits uint) error {
	if now <= pool.LastRewardTime {
		return nil
	}
	if pool.TotalEffectiveStaked == 0 || pool.RewardRate == 0 {
		pool.LastRewardTime = now
		return nil
	}

	elapsed := uint64(now - pool.LastRewardTime)
	reward := new(uint256.Int).Mul(uint256.NewInt(pool.RewardRate), uint256.NewInt(elapsed))
	reward.Lsh(reward, precisionBits)
	reward.Div(reward, uint256.NewInt(pool.TotalEffectiveStaked))

	acc, err := math.AddInt256(&pool.AccRewardPerShare, reward)
	if err != nil {
		return err
	}
	pool.AccRewardPerShare = *acc
	pool.LastRewardTime = now
	return nil
}

// accrued is effective * acc in reward units.
func accrued(effective uint64, acc *uint256.Int, precisionBits uint) (*uint256.Int, error) {
	return math.MulShift(effective, acc, precisionBits)
}

// pendingReward is what stake is owed at the pool's current accumulator.
func pendingReward(stake *state.UserStake, pool *state.StakingPool, precisionBits uint) (uint64, error) {
	owed, err := accrued(stake.EffectiveAmount, &pool.AccRewardPerShare, precisionBits)
	if err != nil {
		return 0, err
	}
	pending, err := math.SubInt256(owed, &stake.RewardDebt)
	if err != nil {
		return 0, err
	}
	return math.ToUint64(pending)
}

// resync sets the reward debt so that nothing is pending.
func resync(stake *state.UserStake, pool *state.StakingPool, precisionBits uint) error {
	debt, err := accrued(stake.EffectiveAmount, &pool.AccRewardPerShare, precisionBits)
	if err != nil {
		return err
	}
	stake.RewardDebt = *debt
	return nil
}

// addDebt charges stake for delta new effective units at the current
// accumulator so that they only earn future rewards.
func addDebt(stake *state.UserStake, pool *state.StakingPool, delta uint64, precisionBits uint) error {
	charge, err := accrued(delta, &pool.AccRewardPerShare, precisionBits)
	if err != nil {
		return err
	}
	debt, err := math.AddInt256(&stake.RewardDebt, charge)
	if err != nil {
		return err
	}
	stake.RewardDebt = *debt
	return nil
}
