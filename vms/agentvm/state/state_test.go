// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
)

func newTestState(t *testing.T, db database.Database) *State {
	s, err := New(db)
	require.NoError(t, err)
	return s
}

func TestPoolAndStakeRecords(t *testing.T) {
	require := require.New(t)
	s := newTestState(t, memdb.New())

	stakedAsset := ids.GenerateTestID()
	poolID := PoolID(stakedAsset)

	_, err := s.GetPool(poolID)
	require.ErrorIs(err, database.ErrNotFound)

	pool := &StakingPool{
		ID:                   poolID,
		Authority:            ids.GenerateTestShortID(),
		StakedAssetID:        stakedAsset,
		RewardAssetID:        ids.GenerateTestID(),
		RewardRate:           100,
		TotalStaked:          5_000,
		TotalEffectiveStaked: 7_500,
		AccRewardPerShare:    *uint256.NewInt(1 << 41),
		LastRewardTime:       1_700_000_000,
	}
	require.NoError(s.PutPool(pool))

	got, err := s.GetPool(poolID)
	require.NoError(err)
	require.Equal(pool, got)

	alice := &UserStake{PoolID: poolID, Owner: ids.GenerateTestShortID(), Amount: 2_000, EffectiveAmount: 3_000}
	bob := &UserStake{PoolID: poolID, Owner: ids.GenerateTestShortID(), Amount: 3_000, EffectiveAmount: 4_500}
	other := &UserStake{PoolID: ids.GenerateTestID(), Owner: alice.Owner, Amount: 9}
	require.NoError(s.PutUserStake(alice))
	require.NoError(s.PutUserStake(bob))
	require.NoError(s.PutUserStake(other))

	gotAlice, err := s.GetUserStake(poolID, alice.Owner)
	require.NoError(err)
	require.Equal(alice, gotAlice)

	stakes, err := s.GetUserStakes(poolID)
	require.NoError(err)
	require.Len(stakes, 2)

	var total uint64
	for _, stake := range stakes {
		require.Equal(poolID, stake.PoolID)
		total += stake.Amount
	}
	require.Equal(pool.TotalStaked, total)
}

func TestBalancesAndSupply(t *testing.T) {
	require := require.New(t)
	s := newTestState(t, memdb.New())

	owner := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()

	balance, err := s.GetBalance(owner, asset)
	require.NoError(err)
	require.Zero(balance)

	require.NoError(s.PutBalance(owner, asset, 42))
	balance, err = s.GetBalance(owner, asset)
	require.NoError(err)
	require.Equal(uint64(42), balance)

	require.NoError(s.PutBalance(owner, asset, 0))
	balance, err = s.GetBalance(owner, asset)
	require.NoError(err)
	require.Zero(balance)

	require.NoError(s.PutSupply(asset, 1_000))
	supply, err := s.GetSupply(asset)
	require.NoError(err)
	require.Equal(uint64(1_000), supply)
}

func TestProtocolAndVault(t *testing.T) {
	require := require.New(t)
	s := newTestState(t, memdb.New())

	_, err := s.GetProtocol()
	require.ErrorIs(err, database.ErrNotFound)

	protocol := &ProtocolState{Admin: ids.GenerateTestShortID(), FeeBasisPoints: 9, Stability: 100}
	require.NoError(s.PutProtocol(protocol))
	gotProtocol, err := s.GetProtocol()
	require.NoError(err)
	require.Equal(protocol, gotProtocol)

	asset := ids.GenerateTestID()
	vault := &TokenVault{ID: VaultID(asset), AssetID: asset, Balance: 10, Coherence: 100, LinkStrength: 100}
	require.NoError(s.PutVault(vault))
	gotVault, err := s.GetVault(vault.ID)
	require.NoError(err)
	require.Equal(vault, gotVault)
}

func TestTimestampPersists(t *testing.T) {
	require := require.New(t)
	db := memdb.New()

	s := newTestState(t, db)
	require.Equal(time.Unix(0, 0), s.GetTimestamp())

	now := time.Unix(1_700_000_123, 0)
	require.NoError(s.SetTimestamp(now))
	require.Equal(now, s.GetTimestamp())

	reloaded := newTestState(t, db)
	require.Equal(now, reloaded.GetTimestamp())
}

func TestAbortDiscardsWrites(t *testing.T) {
	require := require.New(t)
	base := memdb.New()

	vdb := versiondb.New(base)
	s := newTestState(t, vdb)
	owner := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()
	require.NoError(s.PutBalance(owner, asset, 7))
	vdb.Abort()

	committed := newTestState(t, base)
	balance, err := committed.GetBalance(owner, asset)
	require.NoError(err)
	require.Zero(balance)
}

func TestDerivedAddressesAreDistinct(t *testing.T) {
	require := require.New(t)

	asset := ids.GenerateTestID()
	poolID := PoolID(asset)
	vaultID := VaultID(asset)
	require.NotEqual(poolID, vaultID)
	require.NotEqual(StakeHolder(poolID), RewardReserve(poolID))
	require.NotEqual(StakeHolder(poolID), VaultHolder(vaultID))
}
