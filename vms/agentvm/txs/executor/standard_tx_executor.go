// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"fmt"

	"github.com/luxfi/agentvm/vms/agentvm/flashloan"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	_ txs.Visitor = (*StandardTxExecutor)(nil)

	// ErrProgramOwnedAccount is returned when a tx names a pool or vault
	// account as the payer of an instruction.
	ErrProgramOwnedAccount = errors.New("program owned account")
)

// StandardTxExecutor applies the instructions of one tx to Chain. Flash
// loans taken by the tx are tracked in Session.
type StandardTxExecutor struct {
	*Backend
	Chain   state.Chain
	Session *flashloan.Session
}

// Execute runs tx as a single unit of work over db. Either every
// instruction succeeds and every flash loan is repaid, or db is left
// untouched.
func Execute(backend *Backend, db database.Database, tx *txs.Tx) error {
	if err := tx.SyntacticVerify(int(backend.Config.MaxInstructionsPerTx)); err != nil {
		return err
	}

	vdb := versiondb.New(db)
	chain, err := state.New(vdb)
	if err != nil {
		return err
	}
	e := &StandardTxExecutor{
		Backend: backend,
		Chain:   chain,
		Session: flashloan.NewSession(),
	}
	if err := e.execute(tx); err != nil {
		vdb.Abort()
		return err
	}
	return vdb.Commit()
}

func (e *StandardTxExecutor) execute(tx *txs.Tx) error {
	if err := tx.Visit(e); err != nil {
		return err
	}
	return e.Session.Settle()
}

func (e *StandardTxExecutor) InitializePool(i *txs.InitializePool) error {
	_, err := e.Staking.InitializePool(e.Chain, i.Authority, i.StakedAssetID, i.RewardAssetID, i.RewardRate)
	return err
}

func (e *StandardTxExecutor) Stake(i *txs.Stake) error {
	if err := e.verifyPayer(i.Staker); err != nil {
		return err
	}
	return e.Staking.Stake(e.Chain, i.PoolID, i.Staker, i.Amount)
}

func (e *StandardTxExecutor) StakeWithReputation(i *txs.StakeWithReputation) error {
	if err := e.verifyPayer(i.Staker); err != nil {
		return err
	}
	return e.Staking.StakeWithReputation(e.Chain, i.PoolID, i.Staker, i.Amount, i.ReputationScore)
}

func (e *StandardTxExecutor) Unstake(i *txs.Unstake) error {
	reward, err := e.Staking.Unstake(e.Chain, i.PoolID, i.Staker, i.Amount)
	if err != nil {
		return err
	}
	e.Log.Debug("unstake paid rewards",
		log.Stringer("staker", i.Staker),
		log.Uint64("reward", reward),
	)
	return nil
}

func (e *StandardTxExecutor) ClaimRewards(i *txs.ClaimRewards) error {
	_, err := e.Staking.ClaimRewards(e.Chain, i.PoolID, i.Staker)
	return err
}

func (e *StandardTxExecutor) FundRewards(i *txs.FundRewards) error {
	if err := e.verifyPayer(i.Funder); err != nil {
		return err
	}
	return e.Staking.FundRewards(e.Chain, i.PoolID, i.Funder, i.Amount)
}

func (e *StandardTxExecutor) ApplyReputationBoost(i *txs.ApplyReputationBoost) error {
	return e.Staking.ApplyReputationBoost(e.Chain, i.PoolID, i.Authority, i.User, i.PositiveAttestations)
}

func (e *StandardTxExecutor) InitializeColdStartTrust(i *txs.InitializeColdStartTrust) error {
	if err := e.verifyPayer(i.User); err != nil {
		return err
	}
	return e.Staking.InitializeColdStartTrust(e.Chain, i.PoolID, i.User, i.InitialTrustScore)
}

func (e *StandardTxExecutor) GraduateFromColdStart(i *txs.GraduateFromColdStart) error {
	return e.Staking.GraduateFromColdStart(e.Chain, i.PoolID, i.User)
}

func (e *StandardTxExecutor) UpdateRewardRate(i *txs.UpdateRewardRate) error {
	return e.Staking.UpdateRewardRate(e.Chain, i.PoolID, i.Authority, i.NewRate)
}

func (e *StandardTxExecutor) UpdateReputationScore(i *txs.UpdateReputationScore) error {
	return e.Staking.UpdateReputationScore(e.Chain, i.PoolID, i.Authority, i.User, i.NewScore)
}

func (e *StandardTxExecutor) CalculateDynamicAPR(i *txs.CalculateDynamicAPR) error {
	_, err := e.Staking.CalculateDynamicAPR(e.Chain, i.PoolID, i.Authority, i.PositiveAttestations, i.NegativeAttestations)
	return err
}

func (e *StandardTxExecutor) InitializeProtocol(i *txs.InitializeProtocol) error {
	_, err := e.FlashLoan.InitializeProtocol(e.Chain, i.Admin, i.FeeBasisPoints)
	return err
}

func (e *StandardTxExecutor) InitializeVault(i *txs.InitializeVault) error {
	_, err := e.FlashLoan.InitializeVault(e.Chain, i.AssetID)
	return err
}

func (e *StandardTxExecutor) FundVault(i *txs.FundVault) error {
	if err := e.verifyPayer(i.Admin); err != nil {
		return err
	}
	return e.FlashLoan.FundVault(e.Chain, i.Admin, i.AssetID, i.Amount)
}

func (e *StandardTxExecutor) RequestFlashLoan(i *txs.RequestFlashLoan) error {
	if err := e.verifyPayer(i.Borrower); err != nil {
		return err
	}
	_, err := e.FlashLoan.RequestFlashLoan(e.Chain, e.Session, flashloan.Request{
		Borrower:    i.Borrower,
		AssetID:     i.AssetID,
		Amount:      i.Amount,
		StakePoolID: i.StakePoolID,
		StakeOwner:  i.StakeOwner,
	})
	return err
}

func (e *StandardTxExecutor) RepayFlashLoan(i *txs.RepayFlashLoan) error {
	if err := e.verifyPayer(i.Payer); err != nil {
		return err
	}
	_, _, err := e.FlashLoan.RepayFlashLoan(e.Chain, e.Session, i.Payer, i.AssetID, i.Amount)
	return err
}

func (e *StandardTxExecutor) ResetEntropy(i *txs.ResetEntropy) error {
	return e.FlashLoan.ResetEntropy(e.Chain, i.Admin, i.AssetID)
}

func (e *StandardTxExecutor) AdjustStability(i *txs.AdjustStability) error {
	return e.FlashLoan.AdjustStability(e.Chain, i.Admin, i.AssetID, i.ProtocolDelta, i.VaultDelta)
}

func (e *StandardTxExecutor) EmergencyShutdown(i *txs.EmergencyShutdown) error {
	return e.FlashLoan.EmergencyShutdown(e.Chain, i.Admin)
}

func (e *StandardTxExecutor) Transfer(i *txs.Transfer) error {
	if err := e.verifyPayer(i.From); err != nil {
		return err
	}
	return e.Ledger.Transfer(e.Chain, i.AssetID, i.From, i.To, i.Amount)
}

func (e *StandardTxExecutor) Burn(i *txs.Burn) error {
	if err := e.verifyPayer(i.From); err != nil {
		return err
	}
	return e.Ledger.Burn(e.Chain, i.AssetID, i.From, i.Amount)
}

// verifyPayer rejects debits from accounts only the engines may move funds
// out of.
func (e *StandardTxExecutor) verifyPayer(addr ids.ShortID) error {
	isProgram, err := e.Chain.IsProgramAccount(addr)
	if err != nil {
		return err
	}
	if isProgram {
		return fmt.Errorf("%w: %s", ErrProgramOwnedAccount, addr)
	}
	return nil
}
