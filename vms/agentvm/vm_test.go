// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agentvm

import (
	"context"
	stdjson "encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/flashloan"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/agentvm/vms/agentvm/txs/executor"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

const (
	testGenesisTime = 1_700_000_000
	testFunds       = 10_000_000_000
	testVaultFunds  = 1_000_000_000
	testRewardFunds = 1_000_000
	testFeeBps      = 150
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testKeys struct {
	admin    ids.ShortID
	agent    ids.ShortID
	asset    ids.ID
	reward   ids.ID
	poolID   ids.ID
	database database.Database
}

func newTestKeys() *testKeys {
	asset := ids.GenerateTestID()
	return &testKeys{
		admin:    ids.GenerateTestShortID(),
		agent:    ids.GenerateTestShortID(),
		asset:    asset,
		reward:   ids.GenerateTestID(),
		poolID:   state.PoolID(asset),
		database: memdb.New(),
	}
}

func (k *testKeys) genesis() *Genesis {
	return &Genesis{
		Timestamp: testGenesisTime,
		Allocations: []GenesisAllocation{
			{Address: k.admin, AssetID: k.asset, Amount: testVaultFunds},
			{Address: k.admin, AssetID: k.reward, Amount: testRewardFunds},
			{Address: k.agent, AssetID: k.asset, Amount: testFunds},
		},
		Pools: []GenesisPool{{
			Authority:     k.admin,
			StakedAssetID: k.asset,
			RewardAssetID: k.reward,
			RewardRate:    10,
			RewardFunds:   testRewardFunds,
		}},
		Protocol: &GenesisProtocol{
			Admin:          k.admin,
			FeeBasisPoints: testFeeBps,
		},
		Vaults: []GenesisVault{{
			AssetID: k.asset,
			Funds:   testVaultFunds,
		}},
	}
}

func newTestVM(t *testing.T, k *testKeys) *VM {
	return newTestVMWithLogger(t, k, log.NewNoOpLogger())
}

func newTestVMWithLogger(t *testing.T, k *testKeys, logger log.Logger) *VM {
	require := require.New(t)

	genesisBytes, err := stdjson.Marshal(k.genesis())
	require.NoError(err)

	vm := New(config.DefaultConfig(), logger)
	require.NoError(vm.Initialize(context.Background(), k.database, genesisBytes, nil, metric.NewRegistry()))
	vm.clock.Set(time.Unix(testGenesisTime, 0))
	return vm
}

func newTx(t *testing.T, instructions ...txs.Instruction) *txs.Tx {
	tx, err := txs.NewTx(nil, instructions...)
	require.NoError(t, err)
	return tx
}

func (k *testKeys) balance(t *testing.T, vm *VM, owner ids.ShortID, assetID ids.ID) uint64 {
	var balance uint64
	require.NoError(t, vm.View(func(chain state.Chain, _ *executor.Backend) error {
		var err error
		balance, err = chain.GetBalance(owner, assetID)
		return err
	}))
	return balance
}

func TestGenesis(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)
	defer func() {
		require.NoError(vm.Shutdown(context.Background()))
	}()

	require.Zero(vm.Height())
	require.Zero(k.balance(t, vm, k.admin, k.asset))
	require.Equal(uint64(testFunds), k.balance(t, vm, k.agent, k.asset))
	require.Equal(uint64(testRewardFunds), k.balance(t, vm, state.RewardReserve(k.poolID), k.reward))

	require.NoError(vm.View(func(chain state.Chain, backend *executor.Backend) error {
		require.Equal(int64(testGenesisTime), chain.GetTimestamp().Unix())

		pool, err := backend.Staking.GetPool(chain, k.poolID)
		require.NoError(err)
		require.Equal(k.admin, pool.Authority)
		require.Equal(uint64(10), pool.RewardRate)

		vault, err := backend.FlashLoan.GetVault(chain, k.asset)
		require.NoError(err)
		require.Equal(uint64(testVaultFunds), vault.Balance)
		return nil
	}))

	details, err := vm.HealthCheck(context.Background())
	require.NoError(err)
	require.Equal(uint8(100), details.(map[string]interface{})["stability"])
}

func TestGenesisVaultsRequireProtocol(t *testing.T) {
	k := newTestKeys()
	genesis := k.genesis()
	genesis.Protocol = nil
	genesisBytes, err := stdjson.Marshal(genesis)
	require.NoError(t, err)

	vm := New(config.DefaultConfig(), log.NewNoOpLogger())
	err = vm.Initialize(context.Background(), k.database, genesisBytes, nil, metric.NewRegistry())
	require.ErrorIs(t, err, errVaultsWithoutProtocol)
}

func TestProcessBlock(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)
	defer func() {
		require.NoError(vm.Shutdown(context.Background()))
	}()

	stakeTx := newTx(t, &txs.StakeWithReputation{
		Staker:          k.agent,
		PoolID:          k.poolID,
		Amount:          1_000,
		ReputationScore: 5_000,
	})
	loanTx := newTx(t,
		&txs.RequestFlashLoan{
			Borrower:    k.agent,
			AssetID:     k.asset,
			Amount:      100_000,
			StakePoolID: k.poolID,
			StakeOwner:  k.agent,
		},
		&txs.RepayFlashLoan{Payer: k.agent, AssetID: k.asset, Amount: 101_500},
	)
	unrepaidTx := newTx(t, &txs.RequestFlashLoan{
		Borrower:    k.agent,
		AssetID:     k.asset,
		Amount:      1_000_000_000,
		StakePoolID: k.poolID,
		StakeOwner:  k.agent,
	})

	result, err := vm.ProcessBlock(
		context.Background(),
		time.Unix(testGenesisTime+10, 0),
		[][]byte{stakeTx.Bytes(), loanTx.Bytes(), unrepaidTx.Bytes(), {0xff}},
	)
	require.NoError(err)
	require.Equal(uint64(1), result.Height)
	require.Len(result.Txs, 4)
	require.Equal(txs.Accepted, result.Txs[0].Status)
	require.Equal(txs.Accepted, result.Txs[1].Status)
	require.Equal(txs.Rejected, result.Txs[2].Status)
	require.ErrorIs(result.Txs[2].Err, flashloan.ErrLoanNotRepaid)
	require.Equal(txs.Rejected, result.Txs[3].Status)
	require.Error(result.Txs[3].Err)

	require.Equal(uint64(1), vm.Height())
	require.Equal(uint64(testFunds-1_000-1_500), k.balance(t, vm, k.agent, k.asset))

	status, reason := vm.GetTxStatus(unrepaidTx.ID())
	require.Equal(txs.Rejected, status)
	require.Contains(reason, "not repaid")

	status, _ = vm.GetTxStatus(loanTx.ID())
	require.Equal(txs.Accepted, status)

	_, err = vm.ProcessBlock(context.Background(), time.Unix(testGenesisTime, 0), nil)
	require.ErrorIs(err, errTimestampTooEarly)
}

func TestBuildBlock(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)
	defer func() {
		require.NoError(vm.Shutdown(context.Background()))
	}()

	_, err := vm.BuildBlock(context.Background())
	require.ErrorIs(err, ErrNoPendingTxs)

	stakeTx := newTx(t, &txs.Stake{Staker: k.agent, PoolID: k.poolID, Amount: 1_000})
	txID, err := vm.IssueTx(stakeTx)
	require.NoError(err)
	require.Equal(stakeTx.ID(), txID)

	_, err = vm.IssueTx(stakeTx)
	require.ErrorIs(err, errDuplicateTx)

	status, _ := vm.GetTxStatus(txID)
	require.Equal(txs.Processing, status)

	vm.clock.Set(time.Unix(testGenesisTime+100, 0))
	result, err := vm.BuildBlock(context.Background())
	require.NoError(err)
	require.Len(result.Txs, 1)
	require.Equal(txs.Accepted, result.Txs[0].Status)
	require.Equal(int64(testGenesisTime+100), result.Timestamp.Unix())

	status, _ = vm.GetTxStatus(txID)
	require.Equal(txs.Accepted, status)

	// Rewards accrue from the block's timestamp onwards.
	vm.clock.Set(time.Unix(testGenesisTime+200, 0))
	claimTx := newTx(t, &txs.ClaimRewards{Staker: k.agent, PoolID: k.poolID})
	_, err = vm.IssueTx(claimTx)
	require.NoError(err)
	_, err = vm.BuildBlock(context.Background())
	require.NoError(err)
	require.Equal(uint64(1_000), k.balance(t, vm, k.agent, k.reward))
}

func TestRejectedTxLoggedAsWarning(t *testing.T) {
	require := require.New(t)
	core, logs := observer.New(zapcore.WarnLevel)
	k := newTestKeys()
	vm := newTestVMWithLogger(t, k, log.NewZapLogger(zap.New(core)))
	defer func() {
		require.NoError(vm.Shutdown(context.Background()))
	}()

	overdraftTx := newTx(t, &txs.Transfer{
		From:    k.agent,
		To:      k.admin,
		AssetID: k.asset,
		Amount:  testFunds + 1,
	})
	result, err := vm.ProcessBlock(context.Background(), time.Unix(testGenesisTime+1, 0), [][]byte{overdraftTx.Bytes()})
	require.NoError(err)
	require.Equal(txs.Rejected, result.Txs[0].Status)

	rejected := logs.FilterMessage("tx rejected")
	require.Equal(1, rejected.Len())
	require.Equal(zapcore.WarnLevel, rejected.All()[0].Level)
}

func TestRestart(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)

	stakeTx := newTx(t, &txs.Stake{Staker: k.agent, PoolID: k.poolID, Amount: 1_000})
	_, err := vm.ProcessBlock(context.Background(), time.Unix(testGenesisTime+1, 0), [][]byte{stakeTx.Bytes()})
	require.NoError(err)

	// Reopen the same database. Closing vm would close it.
	restarted := New(config.DefaultConfig(), log.NewNoOpLogger())
	require.NoError(restarted.Initialize(context.Background(), k.database, nil, nil, metric.NewRegistry()))
	require.Equal(uint64(1), restarted.Height())
	require.Equal(uint64(testFunds-1_000), k.balance(t, restarted, k.agent, k.asset))
	require.NoError(restarted.Shutdown(context.Background()))
}

func TestShutdown(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)

	require.NoError(vm.Shutdown(context.Background()))
	require.NoError(vm.Shutdown(context.Background()))

	_, err := vm.IssueTx(newTx(t, &txs.Stake{Staker: k.agent, PoolID: k.poolID, Amount: 1}))
	require.ErrorIs(err, errShutdown)
	_, err = vm.ProcessBlock(context.Background(), time.Unix(testGenesisTime+1, 0), nil)
	require.ErrorIs(err, errShutdown)
}

func TestHealthCheckFailsWhenHalted(t *testing.T) {
	require := require.New(t)
	k := newTestKeys()
	vm := newTestVM(t, k)
	defer func() {
		require.NoError(vm.Shutdown(context.Background()))
	}()

	shutdownTx := newTx(t, &txs.EmergencyShutdown{Admin: k.admin})
	_, err := vm.ProcessBlock(context.Background(), time.Unix(testGenesisTime+1, 0), [][]byte{shutdownTx.Bytes()})
	require.NoError(err)

	_, err = vm.HealthCheck(context.Background())
	require.ErrorIs(err, errFlashLoansHalted)
}

func TestFactory(t *testing.T) {
	require := require.New(t)

	f := &Factory{Config: config.DefaultConfig()}
	vm, err := f.New(log.NewNoOpLogger())
	require.NoError(err)
	require.Equal(config.DefaultConfig(), vm.Config)

	f.MaxTxsPerBlock = 0
	_, err = f.New(log.NewNoOpLogger())
	require.Error(err)
}
