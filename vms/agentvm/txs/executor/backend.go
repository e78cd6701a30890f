// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/flashloan"
	"github.com/luxfi/agentvm/vms/agentvm/staking"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

type Backend struct {
	Config    *config.Config
	Ledger    token.Ledger
	Staking   *staking.Engine
	FlashLoan *flashloan.Engine
	Log       log.Logger
}

// NewBackend builds both engines over ledger. Flash-loan admission reads
// reputation from the staking engine's stake records.
func NewBackend(cfg *config.Config, ledger token.Ledger, logger log.Logger) *Backend {
	stakingEngine := staking.NewEngine(cfg.Staking, ledger, logger)
	stakes := flashloan.StakeReaderFunc(func(chain state.Chain, poolID ids.ID, user ids.ShortID) (flashloan.StakeView, error) {
		stake, err := stakingEngine.GetUserStake(chain, poolID, user)
		if err != nil {
			return flashloan.StakeView{}, err
		}
		return flashloan.StakeView{
			Owner:           stake.Owner,
			ReputationScore: stake.ReputationScore,
		}, nil
	})
	return &Backend{
		Config:    cfg,
		Ledger:    ledger,
		Staking:   stakingEngine,
		FlashLoan: flashloan.NewEngine(cfg.FlashLoan, ledger, stakes, logger),
		Log:       logger,
	}
}
