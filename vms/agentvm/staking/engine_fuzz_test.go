// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"errors"
	"testing"
	"time"

	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
)

const (
	opStake uint8 = iota
	opStakeWithReputation
	opUnstake
	opClaim
	opBoost
	opColdStart
	opGraduate
	opAdvance
	numOps
)

// FuzzStakingTransitions applies random operation sequences to a pool and
// checks the pool accounting after every step.
func FuzzStakingTransitions(f *testing.F) {
	// Seed corpus with various operation sequences
	f.Add([]byte{opStake, opAdvance, opClaim, opUnstake}, uint64(1_000), uint64(5_000), uint32(60))
	f.Add([]byte{opColdStart, opAdvance, opGraduate, opUnstake, opStake}, uint64(10), uint64(70), uint32(86_400))
	f.Add([]byte{opStakeWithReputation, opBoost, opAdvance, opStakeWithReputation + 8, opUnstake + 16}, uint64(999_999), uint64(20_000), uint32(1))
	f.Add([]byte{opBoost, opUnstake, opClaim, opColdStart + 8, opColdStart + 8}, uint64(0), uint64(1<<63), uint32(1<<31))
	f.Add([]byte{0x17, 0x2a, 0x3f, 0x41, 0x55, 0x66, 0x7e, 0x8c, 0x9b, 0xad}, uint64(123_456_789), uint64(777), uint32(3_600))

	f.Fuzz(func(t *testing.T, ops []byte, amount uint64, score uint64, elapsed uint32) {
		// Limit values to reasonable ranges
		if len(ops) > 64 {
			ops = ops[:64]
		}

		cfg := config.DefaultConfig().Staking
		engine := newTestEngine()
		ledger := token.StateLedger{}
		db := memdb.New()
		authority := ids.GenerateTestShortID()
		stakedAsset := ids.GenerateTestID()
		rewardAsset := ids.GenerateTestID()
		poolID := state.PoolID(stakedAsset)
		users := []ids.ShortID{
			ids.GenerateTestShortID(),
			ids.GenerateTestShortID(),
			ids.GenerateTestShortID(),
		}

		// step applies op atomically, the way a tx does.
		step := func(op func(chain *state.State) error) error {
			vdb := versiondb.New(db)
			chain, err := state.New(vdb)
			if err != nil {
				return err
			}
			if err := op(chain); err != nil {
				vdb.Abort()
				return err
			}
			return vdb.Commit()
		}

		err := step(func(chain *state.State) error {
			if err := chain.SetTimestamp(time.Unix(testStartTime, 0)); err != nil {
				return err
			}
			if _, err := engine.InitializePool(chain, authority, stakedAsset, rewardAsset, 10); err != nil {
				return err
			}
			if err := ledger.Mint(chain, rewardAsset, authority, testRewardFunds); err != nil {
				return err
			}
			for _, user := range users {
				if err := ledger.Mint(chain, stakedAsset, user, testUserFunds); err != nil {
					return err
				}
			}
			return engine.FundRewards(chain, poolID, authority, testRewardFunds)
		})
		if err != nil {
			t.Fatalf("Failed to set up pool: %v", err)
		}

		deposited := make(map[ids.ShortID]uint64, len(users))
		for i, b := range ops {
			user := users[int(b/numOps)%len(users)]
			amt := (amount + uint64(i)*uint64(b)) % (testUserFunds / 4)

			switch b % numOps {
			case opStake:
				if step(func(chain *state.State) error {
					return engine.Stake(chain, poolID, user, amt)
				}) == nil {
					deposited[user] += amt
				}
			case opStakeWithReputation:
				if step(func(chain *state.State) error {
					return engine.StakeWithReputation(chain, poolID, user, amt, score%(2*cfg.MaxReputation))
				}) == nil {
					deposited[user] += amt
				}
			case opUnstake:
				if step(func(chain *state.State) error {
					_, err := engine.Unstake(chain, poolID, user, amt)
					return err
				}) == nil {
					deposited[user] -= amt
				}
			case opClaim:
				_ = step(func(chain *state.State) error {
					_, err := engine.ClaimRewards(chain, poolID, user)
					return err
				})
			case opBoost:
				_ = step(func(chain *state.State) error {
					return engine.ApplyReputationBoost(chain, poolID, authority, user, score%32)
				})
			case opColdStart:
				if step(func(chain *state.State) error {
					return engine.InitializeColdStartTrust(chain, poolID, user, score)
				}) == nil {
					deposited[user] += cfg.ColdStartBaseAmount
				}
			case opGraduate:
				_ = step(func(chain *state.State) error {
					return engine.GraduateFromColdStart(chain, poolID, user)
				})
			case opAdvance:
				_ = step(func(chain *state.State) error {
					seconds := time.Duration(elapsed%(7*24*3600)) * time.Second
					return chain.SetTimestamp(chain.GetTimestamp().Add(seconds))
				})
			}

			chain, err := state.New(db)
			if err != nil {
				t.Fatalf("Failed to load state: %v", err)
			}
			if err := engine.VerifyPool(chain, poolID); err != nil {
				t.Fatalf("Pool accounting broken after op %d: %v", b%numOps, err)
			}

			var locked, staked uint64
			for _, owner := range users {
				stake, err := chain.GetUserStake(poolID, owner)
				if errors.Is(err, database.ErrNotFound) {
					if deposited[owner] != 0 {
						t.Fatalf("Missing stake for %s with %d deposited", owner, deposited[owner])
					}
					continue
				}
				if err != nil {
					t.Fatalf("Failed to get stake: %v", err)
				}
				if stake.Amount != deposited[owner] {
					t.Fatalf("Stake amount mismatch: got %d, want %d", stake.Amount, deposited[owner])
				}
				if _, err := engine.PendingReward(chain, poolID, owner); err != nil {
					t.Fatalf("Failed to compute pending reward: %v", err)
				}
				locked += stake.LockedAmount
				staked += stake.Amount
			}

			held, err := chain.GetBalance(state.StakeHolder(poolID), stakedAsset)
			if err != nil {
				t.Fatalf("Failed to get stake holder balance: %v", err)
			}
			if held != staked-locked {
				t.Fatalf("Stake holder balance mismatch: got %d, want %d", held, staked-locked)
			}
		}
	})
}
