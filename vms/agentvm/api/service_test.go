// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentvm/utils/json"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/flashloan"
	"github.com/luxfi/agentvm/vms/agentvm/staking"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/agentvm/vms/agentvm/txs/executor"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var errIssue = errors.New("issue failed")

type testVM struct {
	chain   *state.State
	backend *executor.Backend
	issued  []*txs.Tx
	status  map[ids.ID]txs.Status
}

func (vm *testVM) View(f func(state.Chain, *executor.Backend) error) error {
	return f(vm.chain, vm.backend)
}

func (vm *testVM) IssueTx(tx *txs.Tx) (ids.ID, error) {
	if len(tx.Instructions) == 0 {
		return ids.Empty, errIssue
	}
	vm.issued = append(vm.issued, tx)
	return tx.ID(), nil
}

func (vm *testVM) GetTxStatus(txID ids.ID) (txs.Status, string) {
	status, ok := vm.status[txID]
	if !ok {
		return txs.Unknown, ""
	}
	return status, "reason"
}

func (*testVM) Height() uint64 {
	return 7
}

type testEnv struct {
	vm        *testVM
	service   *Service
	authority ids.ShortID
	staker    ids.ShortID
	asset     ids.ID
	poolID    ids.ID
}

func newTestEnv(t *testing.T) *testEnv {
	require := require.New(t)

	chain, err := state.New(memdb.New())
	require.NoError(err)
	require.NoError(chain.SetTimestamp(time.Unix(1_000, 0)))

	cfg := config.DefaultConfig()
	backend := executor.NewBackend(&cfg, token.StateLedger{}, log.NewNoOpLogger())
	env := &testEnv{
		vm: &testVM{
			chain:   chain,
			backend: backend,
			status:  make(map[ids.ID]txs.Status),
		},
		authority: ids.GenerateTestShortID(),
		staker:    ids.GenerateTestShortID(),
		asset:     ids.GenerateTestID(),
	}
	env.service = NewService(env.vm, log.NewNoOpLogger())

	pool, err := backend.Staking.InitializePool(chain, env.authority, env.asset, env.asset, 10)
	require.NoError(err)
	env.poolID = pool.ID
	require.NoError(backend.Ledger.Mint(chain, env.asset, env.authority, 50_000))
	require.NoError(backend.Staking.FundRewards(chain, env.poolID, env.authority, 50_000))
	require.NoError(backend.Ledger.Mint(chain, env.asset, env.staker, 10_000))
	require.NoError(backend.Staking.Stake(chain, env.poolID, env.staker, 1_000))
	require.NoError(chain.SetTimestamp(time.Unix(1_100, 0)))
	return env
}

func TestGetPool(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	reply := GetPoolReply{}
	require.NoError(env.service.GetPool(nil, &GetPoolArgs{PoolID: env.poolID}, &reply))
	require.Equal(env.poolID, reply.ID)
	require.Equal(env.authority, reply.Authority)
	require.Equal(json.Uint64(10), reply.RewardRate)
	require.Equal(json.Uint64(1_000), reply.TotalStaked)
	require.Equal(json.Uint64(1_000), reply.TotalEffectiveStaked)
	require.Equal(json.Uint64(50_000), reply.RewardReserve)
	require.Equal("0", reply.AccRewardPerShare)

	err := env.service.GetPool(nil, &GetPoolArgs{PoolID: ids.GenerateTestID()}, &reply)
	require.ErrorIs(err, staking.ErrPoolNotFound)
}

func TestGetUserStake(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	args := &UserStakeArgs{PoolID: env.poolID, Owner: env.staker}
	reply := GetUserStakeReply{}
	require.NoError(env.service.GetUserStake(nil, args, &reply))
	require.Equal(json.Uint64(1_000), reply.Amount)
	require.Equal(json.Uint64(1_000), reply.EffectiveAmount)
	require.Equal(json.Uint64(1_000), reply.PendingReward)
	require.False(reply.IsColdStart)

	pending := GetPendingRewardReply{}
	require.NoError(env.service.GetPendingReward(nil, args, &pending))
	require.Equal(json.Uint64(1_000), pending.Reward)

	// Reads do not write the advanced accumulator back.
	pool, err := env.vm.chain.GetPool(env.poolID)
	require.NoError(err)
	require.Equal(int64(1_000), pool.LastRewardTime)

	args.Owner = ids.GenerateTestShortID()
	err = env.service.GetUserStake(nil, args, &reply)
	require.ErrorIs(err, staking.ErrStakeNotFound)
}

func TestPreviewAPR(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	reply := PreviewAPRReply{}
	require.NoError(env.service.PreviewAPR(nil, &PreviewAPRArgs{PositiveAttestations: 10, NegativeAttestations: 2}, &reply))
	require.Equal(json.Uint64(1_300), reply.APRBasisPoints)
	require.Equal(json.Uint64(130_000), reply.RewardRate)

	pool, err := env.vm.chain.GetPool(env.poolID)
	require.NoError(err)
	require.Equal(uint64(10), pool.RewardRate)
}

func TestGetProtocolAndVault(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	err := env.service.GetProtocol(nil, &EmptyArgs{}, &GetProtocolReply{})
	require.ErrorIs(err, flashloan.ErrProtocolNotFound)

	backend := env.vm.backend
	_, err = backend.FlashLoan.InitializeProtocol(env.vm.chain, env.authority, 25)
	require.NoError(err)
	_, err = backend.FlashLoan.InitializeVault(env.vm.chain, env.asset)
	require.NoError(err)

	protocol := GetProtocolReply{}
	require.NoError(env.service.GetProtocol(nil, &EmptyArgs{}, &protocol))
	require.Equal(env.authority, protocol.Admin)
	require.Equal(json.Uint64(25), protocol.FeeBasisPoints)
	require.Equal(json.Uint8(100), protocol.Stability)

	vault := GetVaultReply{}
	require.NoError(env.service.GetVault(nil, &AssetArgs{AssetID: env.asset}, &vault))
	require.Equal(state.VaultID(env.asset), vault.ID)
	require.Equal(state.VaultHolder(vault.ID), vault.Holder)
	require.Zero(vault.Balance)
	require.Equal(json.Uint8(100), vault.Coherence)
}

func TestGetBalance(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	reply := GetBalanceReply{}
	require.NoError(env.service.GetBalance(nil, &GetBalanceArgs{Address: env.staker, AssetID: env.asset}, &reply))
	require.Equal(json.Uint64(9_000), reply.Balance)
	require.Equal(json.Uint64(60_000), reply.Supply)
}

func TestGetHeight(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	reply := GetHeightReply{}
	require.NoError(env.service.GetHeight(nil, &EmptyArgs{}, &reply))
	require.Equal(json.Uint64(7), reply.Height)
	require.Equal(int64(1_100), reply.Timestamp)
}

func TestIssueTx(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	err := env.service.IssueTx(nil, &IssueTxArgs{}, &IssueTxReply{})
	require.ErrorIs(err, errNilTx)

	args := &IssueTxArgs{
		Tx: &txs.JSONTx{
			Instructions: []txs.JSONInstruction{{
				Type: "claimRewards",
				Args: []byte(`{"staker":"` + env.staker.String() + `","poolID":"` + env.poolID.String() + `"}`),
			}},
		},
	}
	reply := IssueTxReply{}
	require.NoError(env.service.IssueTx(nil, args, &reply))
	require.Len(env.vm.issued, 1)
	require.Equal(env.vm.issued[0].ID(), reply.TxID)
	require.Equal(&txs.ClaimRewards{Staker: env.staker, PoolID: env.poolID}, env.vm.issued[0].Instructions[0])

	env.vm.status[reply.TxID] = txs.Rejected
	status := GetTxStatusReply{}
	require.NoError(env.service.GetTxStatus(nil, &GetTxStatusArgs{TxID: reply.TxID}, &status))
	require.Equal(txs.Rejected, status.Status)
	require.Equal("reason", status.Reason)

	err = env.service.IssueTx(nil, &IssueTxArgs{Tx: &txs.JSONTx{}}, &reply)
	require.ErrorIs(err, errIssue)
}
