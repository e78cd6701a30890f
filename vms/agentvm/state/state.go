// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state is the account store the agent programs run against. Every
// record is explicitly addressed and re-read from the database on each call.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/agentvm/utils/hashing"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
)

var (
	_ Chain = (*State)(nil)

	PoolPrefix      = []byte("pool")
	StakePrefix     = []byte("stake")
	VaultPrefix     = []byte("vault")
	BalancePrefix   = []byte("balance")
	SupplyPrefix    = []byte("supply")
	SingletonPrefix = []byte("singleton")
	ProgramPrefix   = []byte("program")

	protocolKey  = []byte("protocol")
	timestampKey = []byte("timestamp")

	poolSeed          = []byte("staking-pool")
	stakeHolderSeed   = []byte("stake-holder")
	rewardReserveSeed = []byte("reward-reserve")
	vaultSeed         = []byte("token-vault")
	vaultHolderSeed   = []byte("vault-holder")
)

// Chain is the set of records an instruction may read and write.
type Chain interface {
	GetTimestamp() time.Time
	SetTimestamp(time.Time) error

	GetPool(poolID ids.ID) (*StakingPool, error)
	PutPool(*StakingPool) error
	GetUserStake(poolID ids.ID, owner ids.ShortID) (*UserStake, error)
	GetUserStakes(poolID ids.ID) ([]*UserStake, error)
	PutUserStake(*UserStake) error

	GetProtocol() (*ProtocolState, error)
	PutProtocol(*ProtocolState) error
	GetVault(vaultID ids.ID) (*TokenVault, error)
	PutVault(*TokenVault) error

	GetBalance(owner ids.ShortID, assetID ids.ID) (uint64, error)
	PutBalance(owner ids.ShortID, assetID ids.ID, amount uint64) error
	GetSupply(assetID ids.ID) (uint64, error)
	PutSupply(assetID ids.ID, amount uint64) error

	// IsProgramAccount reports whether addr holds funds on behalf of a
	// pool or vault. Only the engines may debit such accounts.
	IsProgramAccount(addr ids.ShortID) (bool, error)
	PutProgramAccount(addr ids.ShortID) error
}

// State implements Chain over a database. Missing records are reported as
// database.ErrNotFound.
type State struct {
	poolDB      database.Database
	stakeDB     database.Database
	vaultDB     database.Database
	balanceDB   database.Database
	supplyDB    database.Database
	singletonDB database.Database
	programDB   database.Database

	timestamp time.Time
}

// New wraps db. The chain timestamp is loaded eagerly.
func New(db database.Database) (*State, error) {
	s := &State{
		poolDB:      prefixdb.New(PoolPrefix, db),
		stakeDB:     prefixdb.New(StakePrefix, db),
		vaultDB:     prefixdb.New(VaultPrefix, db),
		balanceDB:   prefixdb.New(BalancePrefix, db),
		supplyDB:    prefixdb.New(SupplyPrefix, db),
		singletonDB: prefixdb.New(SingletonPrefix, db),
		programDB:   prefixdb.New(ProgramPrefix, db),
	}

	unix, err := database.GetUInt64(s.singletonDB, timestampKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.timestamp = time.Unix(0, 0)
	case err != nil:
		return nil, fmt.Errorf("failed to load timestamp: %w", err)
	default:
		s.timestamp = time.Unix(int64(unix), 0)
	}
	return s, nil
}

// PoolID is the derived address of the pool for stakedAssetID.
func PoolID(stakedAssetID ids.ID) ids.ID {
	return hashing.DeriveID(poolSeed, stakedAssetID)
}

// StakeHolder is the account holding a pool's staked tokens.
func StakeHolder(poolID ids.ID) ids.ShortID {
	return hashing.DeriveAddress(stakeHolderSeed, poolID)
}

// RewardReserve is the account rewards of a pool are paid from.
func RewardReserve(poolID ids.ID) ids.ShortID {
	return hashing.DeriveAddress(rewardReserveSeed, poolID)
}

// VaultID is the derived address of the flash-loan vault for assetID.
func VaultID(assetID ids.ID) ids.ID {
	return hashing.DeriveID(vaultSeed, assetID)
}

// VaultHolder is the account holding a vault's liquidity.
func VaultHolder(vaultID ids.ID) ids.ShortID {
	return hashing.DeriveAddress(vaultHolderSeed, vaultID)
}

func (s *State) GetTimestamp() time.Time {
	return s.timestamp
}

func (s *State) SetTimestamp(t time.Time) error {
	unix := t.Unix()
	if unix < 0 {
		unix = 0
	}
	if err := database.PutUInt64(s.singletonDB, timestampKey, uint64(unix)); err != nil {
		return err
	}
	s.timestamp = time.Unix(unix, 0)
	return nil
}

func (s *State) GetPool(poolID ids.ID) (*StakingPool, error) {
	pool := &StakingPool{}
	if err := get(s.poolDB, poolID[:], pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *State) PutPool(pool *StakingPool) error {
	return put(s.poolDB, pool.ID[:], pool)
}

func (s *State) GetUserStake(poolID ids.ID, owner ids.ShortID) (*UserStake, error) {
	stake := &UserStake{}
	if err := get(s.stakeDB, stakeKey(poolID, owner), stake); err != nil {
		return nil, err
	}
	return stake, nil
}

// GetUserStakes returns every stake record of poolID in owner order.
func (s *State) GetUserStakes(poolID ids.ID) ([]*UserStake, error) {
	it := s.stakeDB.NewIteratorWithPrefix(poolID[:])
	defer it.Release()

	var stakes []*UserStake
	for it.Next() {
		stake := &UserStake{}
		if _, err := Codec.Unmarshal(it.Value(), stake); err != nil {
			return nil, err
		}
		stakes = append(stakes, stake)
	}
	return stakes, it.Error()
}

func (s *State) PutUserStake(stake *UserStake) error {
	return put(s.stakeDB, stakeKey(stake.PoolID, stake.Owner), stake)
}

func (s *State) GetProtocol() (*ProtocolState, error) {
	protocol := &ProtocolState{}
	if err := get(s.singletonDB, protocolKey, protocol); err != nil {
		return nil, err
	}
	return protocol, nil
}

func (s *State) PutProtocol(protocol *ProtocolState) error {
	return put(s.singletonDB, protocolKey, protocol)
}

func (s *State) GetVault(vaultID ids.ID) (*TokenVault, error) {
	vault := &TokenVault{}
	if err := get(s.vaultDB, vaultID[:], vault); err != nil {
		return nil, err
	}
	return vault, nil
}

func (s *State) PutVault(vault *TokenVault) error {
	return put(s.vaultDB, vault.ID[:], vault)
}

// GetBalance returns 0 for accounts that never held assetID.
func (s *State) GetBalance(owner ids.ShortID, assetID ids.ID) (uint64, error) {
	return getUint64(s.balanceDB, balanceKey(owner, assetID))
}

func (s *State) PutBalance(owner ids.ShortID, assetID ids.ID, amount uint64) error {
	key := balanceKey(owner, assetID)
	if amount == 0 {
		return s.balanceDB.Delete(key)
	}
	return database.PutUInt64(s.balanceDB, key, amount)
}

func (s *State) GetSupply(assetID ids.ID) (uint64, error) {
	return getUint64(s.supplyDB, assetID[:])
}

func (s *State) PutSupply(assetID ids.ID, amount uint64) error {
	return database.PutUInt64(s.supplyDB, assetID[:], amount)
}

func (s *State) IsProgramAccount(addr ids.ShortID) (bool, error) {
	return s.programDB.Has(addr[:])
}

func (s *State) PutProgramAccount(addr ids.ShortID) error {
	return s.programDB.Put(addr[:], nil)
}

func get(db database.KeyValueReader, key []byte, v any) error {
	b, err := db.Get(key)
	if err != nil {
		return err
	}
	_, err = Codec.Unmarshal(b, v)
	return err
}

func put(db database.KeyValueWriter, key []byte, v any) error {
	b, err := Codec.Marshal(CodecVersion, v)
	if err != nil {
		return err
	}
	return db.Put(key, b)
}

func getUint64(db database.KeyValueReader, key []byte) (uint64, error) {
	v, err := database.GetUInt64(db, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return v, err
}

func stakeKey(poolID ids.ID, owner ids.ShortID) []byte {
	key := make([]byte, 0, len(poolID)+len(owner))
	key = append(key, poolID[:]...)
	return append(key, owner[:]...)
}

func balanceKey(owner ids.ShortID, assetID ids.ID) []byte {
	key := make([]byte, 0, len(owner)+len(assetID))
	key = append(key, owner[:]...)
	return append(key, assetID[:]...)
}
