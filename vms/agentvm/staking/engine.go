// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package staking implements reputation-weighted staking with
// accumulator-based reward accrual.
package staking

import (
	"errors"
	"fmt"

	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Engine executes staking operations against a chain. It keeps no state of
// its own; every call re-reads the records it touches.
type Engine struct {
	config config.StakingConfig
	ledger token.Ledger
	log    log.Logger
}

// NewEngine creates a staking engine.
func NewEngine(cfg config.StakingConfig, ledger token.Ledger, logger log.Logger) *Engine {
	return &Engine{
		config: cfg,
		ledger: ledger,
		log:    logger,
	}
}

// InitializePool creates the pool for stakedAssetID. The pool address is
// derived from the staked asset, so there is at most one per asset.
func (e *Engine) InitializePool(
	chain state.Chain,
	authority ids.ShortID,
	stakedAssetID ids.ID,
	rewardAssetID ids.ID,
	rewardRate uint64,
) (*state.StakingPool, error) {
	poolID := state.PoolID(stakedAssetID)
	switch _, err := chain.GetPool(poolID); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, poolID)
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	pool := &state.StakingPool{
		ID:             poolID,
		Authority:      authority,
		StakedAssetID:  stakedAssetID,
		RewardAssetID:  rewardAssetID,
		RewardRate:     rewardRate,
		LastRewardTime: chain.GetTimestamp().Unix(),
	}
	if err := errors.Join(
		chain.PutPool(pool),
		chain.PutProgramAccount(state.StakeHolder(poolID)),
		chain.PutProgramAccount(state.RewardReserve(poolID)),
	); err != nil {
		return nil, err
	}

	e.log.Debug("staking pool initialized",
		log.Stringer("pool", poolID),
		log.Stringer("stakedAsset", stakedAssetID),
		log.Stringer("rewardAsset", rewardAssetID),
		log.Uint64("rewardRate", rewardRate),
	)
	return pool, nil
}

// Stake deposits amount with a multiplier of 1.
func (e *Engine) Stake(chain state.Chain, poolID ids.ID, staker ids.ShortID, amount uint64) error {
	return e.stake(chain, poolID, staker, amount, nil)
}

// StakeWithReputation deposits amount weighted by reputationScore and
// records the score on the stake.
func (e *Engine) StakeWithReputation(
	chain state.Chain,
	poolID ids.ID,
	staker ids.ShortID,
	amount uint64,
	reputationScore uint64,
) error {
	return e.stake(chain, poolID, staker, amount, &reputationScore)
}

func (e *Engine) stake(chain state.Chain, poolID ids.ID, staker ids.ShortID, amount uint64, reputationScore *uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return err
	}
	stake, err := e.loadOrCreateStake(chain, poolID, staker)
	if err != nil {
		return err
	}

	effective := amount
	if reputationScore != nil {
		effective, err = ReputationWeighted(amount, *reputationScore, e.config.MaxReputation)
		if err != nil {
			return err
		}
		stake.ReputationScore = *reputationScore
	}

	if err := e.updatePool(chain, pool); err != nil {
		return err
	}
	if err := addStake(pool, stake, amount, effective); err != nil {
		return err
	}
	if err := addDebt(stake, pool, effective, e.config.RewardPrecisionBits); err != nil {
		return err
	}

	if err := e.ledger.Transfer(chain, pool.StakedAssetID, staker, state.StakeHolder(poolID), amount); err != nil {
		return err
	}
	if err := e.put(chain, pool, stake); err != nil {
		return err
	}

	e.log.Debug("staked",
		log.Stringer("pool", poolID),
		log.Stringer("staker", staker),
		log.Uint64("amount", amount),
		log.Uint64("effective", effective),
	)
	return nil
}

// Unstake withdraws amount and pays out every pending reward. Effective stake
// shrinks by the same fraction as the raw stake.
func (e *Engine) Unstake(chain state.Chain, poolID ids.ID, staker ids.ShortID, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return 0, err
	}
	stake, err := chain.GetUserStake(poolID, staker)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, fmt.Errorf("%w: staked 0, requested %d", ErrInsufficientStake, amount)
	case err != nil:
		return 0, err
	case stake.Amount < amount:
		return 0, fmt.Errorf("%w: staked %d, requested %d", ErrInsufficientStake, stake.Amount, amount)
	case stake.Amount-stake.LockedAmount < amount:
		return 0, fmt.Errorf("%w: %d of %d is locked", ErrLockedStake, stake.LockedAmount, stake.Amount)
	}

	if err := e.updatePool(chain, pool); err != nil {
		return 0, err
	}
	reward, err := pendingReward(stake, pool, e.config.RewardPrecisionBits)
	if err != nil {
		return 0, err
	}

	remaining := stake.Amount - amount
	remainingEffective, err := math.MulDiv(stake.EffectiveAmount, remaining, stake.Amount)
	if err != nil {
		return 0, err
	}
	if err := removeStake(pool, stake, amount, stake.EffectiveAmount-remainingEffective); err != nil {
		return 0, err
	}
	if err := resync(stake, pool, e.config.RewardPrecisionBits); err != nil {
		return 0, err
	}

	if err := e.ledger.Transfer(chain, pool.StakedAssetID, state.StakeHolder(poolID), staker, amount); err != nil {
		return 0, err
	}
	if err := e.payReward(chain, pool, staker, reward); err != nil {
		return 0, err
	}
	if err := e.put(chain, pool, stake); err != nil {
		return 0, err
	}

	e.log.Debug("unstaked",
		log.Stringer("pool", poolID),
		log.Stringer("staker", staker),
		log.Uint64("amount", amount),
		log.Uint64("reward", reward),
	)
	return reward, nil
}

// ClaimRewards pays out every pending reward without touching the stake.
func (e *Engine) ClaimRewards(chain state.Chain, poolID ids.ID, staker ids.ShortID) (uint64, error) {
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return 0, err
	}
	stake, err := e.loadStake(chain, poolID, staker)
	if err != nil {
		return 0, err
	}

	if err := e.updatePool(chain, pool); err != nil {
		return 0, err
	}
	reward, err := pendingReward(stake, pool, e.config.RewardPrecisionBits)
	if err != nil {
		return 0, err
	}
	if err := resync(stake, pool, e.config.RewardPrecisionBits); err != nil {
		return 0, err
	}

	if err := e.payReward(chain, pool, staker, reward); err != nil {
		return 0, err
	}
	if err := e.put(chain, pool, stake); err != nil {
		return 0, err
	}

	e.log.Debug("rewards claimed",
		log.Stringer("pool", poolID),
		log.Stringer("staker", staker),
		log.Uint64("reward", reward),
	)
	return reward, nil
}

// FundRewards moves reward tokens into the pool's reward reserve.
func (e *Engine) FundRewards(chain state.Chain, poolID ids.ID, funder ids.ShortID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return err
	}
	return e.ledger.Transfer(chain, pool.RewardAssetID, funder, state.RewardReserve(poolID), amount)
}

// ApplyReputationBoost raises the user's effective stake by
// BoostBps(positiveAttestations). Only the pool authority attests. Rewards
// already earned are unaffected.
func (e *Engine) ApplyReputationBoost(
	chain state.Chain,
	poolID ids.ID,
	authority ids.ShortID,
	user ids.ShortID,
	positiveAttestations uint64,
) error {
	if positiveAttestations == 0 {
		return ErrInvalidAmount
	}
	pool, err := e.loadAuthorizedPool(chain, poolID, authority)
	if err != nil {
		return err
	}
	stake, err := e.loadStake(chain, poolID, user)
	if err != nil {
		return err
	}

	delta, err := math.BasisPoints(stake.EffectiveAmount, BoostBps(positiveAttestations, e.config))
	if err != nil {
		return err
	}
	attestations, err := math.Add(stake.PositiveAttestations, positiveAttestations)
	if err != nil {
		return err
	}

	if err := e.updatePool(chain, pool); err != nil {
		return err
	}
	if err := addStake(pool, stake, 0, delta); err != nil {
		return err
	}
	if err := addDebt(stake, pool, delta, e.config.RewardPrecisionBits); err != nil {
		return err
	}
	stake.PositiveAttestations = attestations
	if err := e.put(chain, pool, stake); err != nil {
		return err
	}

	e.log.Debug("reputation boost applied",
		log.Stringer("pool", poolID),
		log.Stringer("user", user),
		log.Uint64("attestations", positiveAttestations),
		log.Uint64("delta", delta),
	)
	return nil
}

// InitializeColdStartTrust gives a participant without a stake a locked base
// stake whose weight follows initialTrustScore.
func (e *Engine) InitializeColdStartTrust(
	chain state.Chain,
	poolID ids.ID,
	user ids.ShortID,
	initialTrustScore uint64,
) error {
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return err
	}
	switch _, err := chain.GetUserStake(poolID, user); {
	case err == nil:
		return fmt.Errorf("%w: %s in pool %s", ErrStakeExists, user, poolID)
	case !errors.Is(err, database.ErrNotFound):
		return err
	}

	effective, err := ColdStartEffective(initialTrustScore, e.config)
	if err != nil {
		return err
	}
	base := e.config.ColdStartBaseAmount
	now := chain.GetTimestamp().Unix()
	stake := &state.UserStake{
		PoolID:             poolID,
		Owner:              user,
		ReputationScore:    initialTrustScore,
		IsColdStart:        true,
		ColdStartTimestamp: now,
		LockedAmount:       base,
	}

	if err := e.updatePool(chain, pool); err != nil {
		return err
	}
	if err := addStake(pool, stake, base, effective); err != nil {
		return err
	}
	if err := resync(stake, pool, e.config.RewardPrecisionBits); err != nil {
		return err
	}
	if err := e.put(chain, pool, stake); err != nil {
		return err
	}

	e.log.Debug("cold start initialized",
		log.Stringer("pool", poolID),
		log.Stringer("user", user),
		log.Uint64("trustScore", initialTrustScore),
		log.Uint64("effective", effective),
	)
	return nil
}

// GraduateFromColdStart ends cold start once the bootstrap window passed.
// The locked base stake stays locked.
func (e *Engine) GraduateFromColdStart(chain state.Chain, poolID ids.ID, user ids.ShortID) error {
	stake, err := e.loadStake(chain, poolID, user)
	if err != nil {
		return err
	}
	if !stake.IsColdStart {
		return ErrNotInColdStart
	}

	elapsed := chain.GetTimestamp().Unix() - stake.ColdStartTimestamp
	if elapsed < int64(e.config.ColdStartPeriod.Seconds()) {
		return fmt.Errorf("%w: %ds of %s elapsed", ErrColdStartPeriodNotExpired, elapsed, e.config.ColdStartPeriod)
	}

	stake.IsColdStart = false
	if err := chain.PutUserStake(stake); err != nil {
		return err
	}

	e.log.Debug("graduated from cold start",
		log.Stringer("pool", poolID),
		log.Stringer("user", user),
	)
	return nil
}

// UpdateRewardRate settles accrual at the old rate, then switches rates.
func (e *Engine) UpdateRewardRate(chain state.Chain, poolID ids.ID, authority ids.ShortID, newRate uint64) error {
	pool, err := e.loadAuthorizedPool(chain, poolID, authority)
	if err != nil {
		return err
	}
	if err := e.updatePool(chain, pool); err != nil {
		return err
	}
	oldRate := pool.RewardRate
	pool.RewardRate = newRate
	if err := chain.PutPool(pool); err != nil {
		return err
	}

	e.log.Debug("reward rate updated",
		log.Stringer("pool", poolID),
		log.Uint64("oldRate", oldRate),
		log.Uint64("newRate", newRate),
	)
	return nil
}

// UpdateReputationScore overwrites the recorded score. Effective stake and
// reward debt are deliberately left as they are; the new score only weighs
// future deposits.
func (e *Engine) UpdateReputationScore(
	chain state.Chain,
	poolID ids.ID,
	authority ids.ShortID,
	user ids.ShortID,
	newScore uint64,
) error {
	if _, err := e.loadAuthorizedPool(chain, poolID, authority); err != nil {
		return err
	}
	stake, err := e.loadStake(chain, poolID, user)
	if err != nil {
		return err
	}
	stake.ReputationScore = newScore
	return chain.PutUserStake(stake)
}

// CalculateDynamicAPR derives the pool APR from attestation counts and sets
// the reward rate to match. It returns the APR in basis points.
func (e *Engine) CalculateDynamicAPR(
	chain state.Chain,
	poolID ids.ID,
	authority ids.ShortID,
	positiveAttestations uint64,
	negativeAttestations uint64,
) (uint64, error) {
	pool, err := e.loadAuthorizedPool(chain, poolID, authority)
	if err != nil {
		return 0, err
	}

	apr := DynamicAPR(positiveAttestations, negativeAttestations, e.config)
	rate, err := math.Mul(apr, e.config.RewardRatePerAPRBps)
	if err != nil {
		return 0, err
	}
	if err := e.updatePool(chain, pool); err != nil {
		return 0, err
	}
	pool.APRBasisPoints = apr
	pool.RewardRate = rate
	if err := chain.PutPool(pool); err != nil {
		return 0, err
	}

	e.log.Debug("dynamic APR applied",
		log.Stringer("pool", poolID),
		log.Uint64("aprBps", apr),
		log.Uint64("rewardRate", rate),
	)
	return apr, nil
}

// GetPool returns the pool record.
func (e *Engine) GetPool(chain state.Chain, poolID ids.ID) (*state.StakingPool, error) {
	return e.loadPool(chain, poolID)
}

// GetUserStake returns the user's stake record.
func (e *Engine) GetUserStake(chain state.Chain, poolID ids.ID, user ids.ShortID) (*state.UserStake, error) {
	return e.loadStake(chain, poolID, user)
}

// PendingReward reports what ClaimRewards would pay at the chain's current
// time. Nothing is written.
func (e *Engine) PendingReward(chain state.Chain, poolID ids.ID, user ids.ShortID) (uint64, error) {
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return 0, err
	}
	stake, err := e.loadStake(chain, poolID, user)
	if err != nil {
		return 0, err
	}
	if err := e.updatePool(chain, pool); err != nil {
		return 0, err
	}
	return pendingReward(stake, pool, e.config.RewardPrecisionBits)
}

// VerifyPool checks that the pool totals equal the sums over its stakes.
func (e *Engine) VerifyPool(chain state.Chain, poolID ids.ID) error {
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return err
	}
	stakes, err := chain.GetUserStakes(poolID)
	if err != nil {
		return err
	}

	var staked, effective uint64
	for _, stake := range stakes {
		if staked, err = math.Add(staked, stake.Amount); err != nil {
			return err
		}
		if effective, err = math.Add(effective, stake.EffectiveAmount); err != nil {
			return err
		}
	}
	if staked != pool.TotalStaked {
		return fmt.Errorf("%w: total staked %d, stakes sum to %d", ErrInvariantViolated, pool.TotalStaked, staked)
	}
	if effective != pool.TotalEffectiveStaked {
		return fmt.Errorf("%w: total effective %d, stakes sum to %d", ErrInvariantViolated, pool.TotalEffectiveStaked, effective)
	}
	return nil
}

func (e *Engine) updatePool(chain state.Chain, pool *state.StakingPool) error {
	return advance(pool, chain.GetTimestamp().Unix(), e.config.RewardPrecisionBits)
}

func (e *Engine) payReward(chain state.Chain, pool *state.StakingPool, to ids.ShortID, reward uint64) error {
	if reward == 0 {
		return nil
	}
	return e.ledger.Transfer(chain, pool.RewardAssetID, state.RewardReserve(pool.ID), to, reward)
}

func (*Engine) put(chain state.Chain, pool *state.StakingPool, stake *state.UserStake) error {
	if err := chain.PutPool(pool); err != nil {
		return err
	}
	return chain.PutUserStake(stake)
}

func (*Engine) loadPool(chain state.Chain, poolID ids.ID) (*state.StakingPool, error) {
	pool, err := chain.GetPool(poolID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}
	return pool, err
}

func (e *Engine) loadAuthorizedPool(chain state.Chain, poolID ids.ID, caller ids.ShortID) (*state.StakingPool, error) {
	pool, err := e.loadPool(chain, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Authority != caller {
		return nil, fmt.Errorf("%w: %s is not the authority of pool %s", ErrUnauthorized, caller, poolID)
	}
	return pool, nil
}

func (*Engine) loadStake(chain state.Chain, poolID ids.ID, owner ids.ShortID) (*state.UserStake, error) {
	stake, err := chain.GetUserStake(poolID, owner)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s in pool %s", ErrStakeNotFound, owner, poolID)
	}
	return stake, err
}

func (*Engine) loadOrCreateStake(chain state.Chain, poolID ids.ID, owner ids.ShortID) (*state.UserStake, error) {
	stake, err := chain.GetUserStake(poolID, owner)
	if errors.Is(err, database.ErrNotFound) {
		return &state.UserStake{
			PoolID: poolID,
			Owner:  owner,
		}, nil
	}
	return stake, err
}

func addStake(pool *state.StakingPool, stake *state.UserStake, amount, effective uint64) error {
	var errs [4]error
	stake.Amount, errs[0] = math.Add(stake.Amount, amount)
	stake.EffectiveAmount, errs[1] = math.Add(stake.EffectiveAmount, effective)
	pool.TotalStaked, errs[2] = math.Add(pool.TotalStaked, amount)
	pool.TotalEffectiveStaked, errs[3] = math.Add(pool.TotalEffectiveStaked, effective)
	return errors.Join(errs[:]...)
}

func removeStake(pool *state.StakingPool, stake *state.UserStake, amount, effective uint64) error {
	var errs [4]error
	stake.Amount, errs[0] = math.Sub(stake.Amount, amount)
	stake.EffectiveAmount, errs[1] = math.Sub(stake.EffectiveAmount, effective)
	pool.TotalStaked, errs[2] = math.Sub(pool.TotalStaked, amount)
	pool.TotalEffectiveStaked, errs[3] = math.Sub(pool.TotalEffectiveStaked, effective)
	return errors.Join(errs[:]...)
}
