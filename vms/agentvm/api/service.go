// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the agent VM's JSON-RPC API.
package api

import (
	"errors"
	"net/http"

	"github.com/luxfi/agentvm/utils/json"
	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/staking"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/agentvm/vms/agentvm/txs/executor"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var errNilTx = errors.New("tx must be provided")

// VM is what the service needs from the agent VM.
type VM interface {
	// View runs f against the last accepted state. f must not write.
	View(f func(chain state.Chain, backend *executor.Backend) error) error
	IssueTx(tx *txs.Tx) (ids.ID, error)
	GetTxStatus(txID ids.ID) (txs.Status, string)
	Height() uint64
}

// Service is the API service for the agent VM.
type Service struct {
	vm  VM
	log log.Logger
}

func NewService(vm VM, logger log.Logger) *Service {
	return &Service{
		vm:  vm,
		log: logger,
	}
}

type EmptyArgs struct{}

type GetHeightReply struct {
	Height    json.Uint64 `json:"height"`
	Timestamp int64       `json:"timestamp"`
}

// GetHeight returns the number of processed blocks and the chain time.
func (s *Service) GetHeight(_ *http.Request, _ *EmptyArgs, reply *GetHeightReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getHeight"),
	)

	reply.Height = json.Uint64(s.vm.Height())
	return s.vm.View(func(chain state.Chain, _ *executor.Backend) error {
		reply.Timestamp = chain.GetTimestamp().Unix()
		return nil
	})
}

type GetPoolArgs struct {
	PoolID ids.ID `json:"poolID"`
}

type GetPoolReply struct {
	ID                   ids.ID      `json:"id"`
	Authority            ids.ShortID `json:"authority"`
	StakedAssetID        ids.ID      `json:"stakedAssetID"`
	RewardAssetID        ids.ID      `json:"rewardAssetID"`
	RewardRate           json.Uint64 `json:"rewardRate"`
	APRBasisPoints       json.Uint64 `json:"aprBasisPoints"`
	TotalStaked          json.Uint64 `json:"totalStaked"`
	TotalEffectiveStaked json.Uint64 `json:"totalEffectiveStaked"`
	AccRewardPerShare    string      `json:"accRewardPerShare"`
	LastRewardTime       int64       `json:"lastRewardTime"`
	RewardReserve        json.Uint64 `json:"rewardReserve"`
}

// GetPool returns a staking pool and the balance of its reward reserve.
func (s *Service) GetPool(_ *http.Request, args *GetPoolArgs, reply *GetPoolReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getPool"),
		log.Stringer("pool", args.PoolID),
	)

	return s.vm.View(func(chain state.Chain, backend *executor.Backend) error {
		pool, err := backend.Staking.GetPool(chain, args.PoolID)
		if err != nil {
			return err
		}
		reserve, err := chain.GetBalance(state.RewardReserve(pool.ID), pool.RewardAssetID)
		if err != nil {
			return err
		}

		reply.ID = pool.ID
		reply.Authority = pool.Authority
		reply.StakedAssetID = pool.StakedAssetID
		reply.RewardAssetID = pool.RewardAssetID
		reply.RewardRate = json.Uint64(pool.RewardRate)
		reply.APRBasisPoints = json.Uint64(pool.APRBasisPoints)
		reply.TotalStaked = json.Uint64(pool.TotalStaked)
		reply.TotalEffectiveStaked = json.Uint64(pool.TotalEffectiveStaked)
		reply.AccRewardPerShare = pool.AccRewardPerShare.Dec()
		reply.LastRewardTime = pool.LastRewardTime
		reply.RewardReserve = json.Uint64(reserve)
		return nil
	})
}

type UserStakeArgs struct {
	PoolID ids.ID      `json:"poolID"`
	Owner  ids.ShortID `json:"owner"`
}

type GetUserStakeReply struct {
	Amount               json.Uint64 `json:"amount"`
	EffectiveAmount      json.Uint64 `json:"effectiveAmount"`
	LockedAmount         json.Uint64 `json:"lockedAmount"`
	RewardDebt           string      `json:"rewardDebt"`
	ReputationScore      json.Uint64 `json:"reputationScore"`
	PositiveAttestations json.Uint64 `json:"positiveAttestations"`
	IsColdStart          bool        `json:"isColdStart"`
	ColdStartTimestamp   int64       `json:"coldStartTimestamp"`
	PendingReward        json.Uint64 `json:"pendingReward"`
}

// GetUserStake returns a stake record along with what claiming would pay
// right now.
func (s *Service) GetUserStake(_ *http.Request, args *UserStakeArgs, reply *GetUserStakeReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getUserStake"),
		log.Stringer("pool", args.PoolID),
		log.Stringer("owner", args.Owner),
	)

	return s.vm.View(func(chain state.Chain, backend *executor.Backend) error {
		stake, err := backend.Staking.GetUserStake(chain, args.PoolID, args.Owner)
		if err != nil {
			return err
		}
		pending, err := backend.Staking.PendingReward(chain, args.PoolID, args.Owner)
		if err != nil {
			return err
		}

		reply.Amount = json.Uint64(stake.Amount)
		reply.EffectiveAmount = json.Uint64(stake.EffectiveAmount)
		reply.LockedAmount = json.Uint64(stake.LockedAmount)
		reply.RewardDebt = stake.RewardDebt.Dec()
		reply.ReputationScore = json.Uint64(stake.ReputationScore)
		reply.PositiveAttestations = json.Uint64(stake.PositiveAttestations)
		reply.IsColdStart = stake.IsColdStart
		reply.ColdStartTimestamp = stake.ColdStartTimestamp
		reply.PendingReward = json.Uint64(pending)
		return nil
	})
}

type GetPendingRewardReply struct {
	Reward json.Uint64 `json:"reward"`
}

// GetPendingReward returns what ClaimRewards would pay at the chain's
// current time.
func (s *Service) GetPendingReward(_ *http.Request, args *UserStakeArgs, reply *GetPendingRewardReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getPendingReward"),
		log.Stringer("pool", args.PoolID),
		log.Stringer("owner", args.Owner),
	)

	return s.vm.View(func(chain state.Chain, backend *executor.Backend) error {
		reward, err := backend.Staking.PendingReward(chain, args.PoolID, args.Owner)
		reply.Reward = json.Uint64(reward)
		return err
	})
}

type PreviewAPRArgs struct {
	PositiveAttestations json.Uint64 `json:"positiveAttestations"`
	NegativeAttestations json.Uint64 `json:"negativeAttestations"`
}

type PreviewAPRReply struct {
	APRBasisPoints json.Uint64 `json:"aprBasisPoints"`
	RewardRate     json.Uint64 `json:"rewardRate"`
}

// PreviewAPR computes the APR and reward rate CalculateDynamicAPR would set
// for the given attestation counts, without changing any pool.
func (s *Service) PreviewAPR(_ *http.Request, args *PreviewAPRArgs, reply *PreviewAPRReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "previewAPR"),
	)

	return s.vm.View(func(_ state.Chain, backend *executor.Backend) error {
		cfg := backend.Config.Staking
		apr := staking.DynamicAPR(uint64(args.PositiveAttestations), uint64(args.NegativeAttestations), cfg)
		rate, err := math.Mul(apr, cfg.RewardRatePerAPRBps)
		if err != nil {
			return err
		}
		reply.APRBasisPoints = json.Uint64(apr)
		reply.RewardRate = json.Uint64(rate)
		return nil
	})
}

type GetProtocolReply struct {
	Admin              ids.ShortID `json:"admin"`
	FeeBasisPoints     json.Uint64 `json:"feeBasisPoints"`
	TotalFlashLoans    json.Uint64 `json:"totalFlashLoans"`
	TotalFeesCollected json.Uint64 `json:"totalFeesCollected"`
	Entropy            json.Uint64 `json:"entropy"`
	Stability          json.Uint8  `json:"stability"`
}

// GetProtocol returns the flash-loan protocol state.
func (s *Service) GetProtocol(_ *http.Request, _ *EmptyArgs, reply *GetProtocolReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getProtocol"),
	)

	return s.vm.View(func(chain state.Chain, backend *executor.Backend) error {
		protocol, err := backend.FlashLoan.GetProtocol(chain)
		if err != nil {
			return err
		}
		reply.Admin = protocol.Admin
		reply.FeeBasisPoints = json.Uint64(protocol.FeeBasisPoints)
		reply.TotalFlashLoans = json.Uint64(protocol.TotalFlashLoans)
		reply.TotalFeesCollected = json.Uint64(protocol.TotalFeesCollected)
		reply.Entropy = json.Uint64(protocol.Entropy)
		reply.Stability = json.Uint8(protocol.Stability)
		return nil
	})
}

type AssetArgs struct {
	AssetID ids.ID `json:"assetID"`
}

type GetVaultReply struct {
	ID           ids.ID      `json:"id"`
	AssetID      ids.ID      `json:"assetID"`
	Holder       ids.ShortID `json:"holder"`
	Balance      json.Uint64 `json:"balance"`
	Coherence    json.Uint8  `json:"coherence"`
	LinkStrength json.Uint8  `json:"linkStrength"`
}

// GetVault returns the flash-loan vault of an asset.
func (s *Service) GetVault(_ *http.Request, args *AssetArgs, reply *GetVaultReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getVault"),
		log.Stringer("asset", args.AssetID),
	)

	return s.vm.View(func(chain state.Chain, backend *executor.Backend) error {
		vault, err := backend.FlashLoan.GetVault(chain, args.AssetID)
		if err != nil {
			return err
		}
		reply.ID = vault.ID
		reply.AssetID = vault.AssetID
		reply.Holder = state.VaultHolder(vault.ID)
		reply.Balance = json.Uint64(vault.Balance)
		reply.Coherence = json.Uint8(vault.Coherence)
		reply.LinkStrength = json.Uint8(vault.LinkStrength)
		return nil
	})
}

type GetBalanceArgs struct {
	Address ids.ShortID `json:"address"`
	AssetID ids.ID      `json:"assetID"`
}

type GetBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
	Supply  json.Uint64 `json:"supply"`
}

// GetBalance returns an account's balance of an asset and the asset's total
// supply.
func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getBalance"),
		log.Stringer("address", args.Address),
		log.Stringer("asset", args.AssetID),
	)

	return s.vm.View(func(chain state.Chain, _ *executor.Backend) error {
		balance, err := chain.GetBalance(args.Address, args.AssetID)
		if err != nil {
			return err
		}
		supply, err := chain.GetSupply(args.AssetID)
		if err != nil {
			return err
		}
		reply.Balance = json.Uint64(balance)
		reply.Supply = json.Uint64(supply)
		return nil
	})
}

type IssueTxArgs struct {
	Tx *txs.JSONTx `json:"tx"`
}

type IssueTxReply struct {
	TxID ids.ID `json:"txID"`
}

// IssueTx queues a tx for the next block.
func (s *Service) IssueTx(_ *http.Request, args *IssueTxArgs, reply *IssueTxReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "issueTx"),
	)

	if args.Tx == nil {
		return errNilTx
	}
	tx, err := args.Tx.Tx()
	if err != nil {
		return err
	}
	reply.TxID, err = s.vm.IssueTx(tx)
	return err
}

type GetTxStatusArgs struct {
	TxID ids.ID `json:"txID"`
}

type GetTxStatusReply struct {
	Status txs.Status `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// GetTxStatus reports the outcome of a recently issued tx.
func (s *Service) GetTxStatus(_ *http.Request, args *GetTxStatusArgs, reply *GetTxStatusReply) error {
	s.log.Debug("API called",
		log.String("service", "agentvm"),
		log.String("method", "getTxStatus"),
		log.Stringer("txID", args.TxID),
	)

	reply.Status, reply.Reason = s.vm.GetTxStatus(args.TxID)
	return nil
}
