// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package flashloan implements reputation-gated flash loans against
// per-asset liquidity vaults.
package flashloan

import (
	"errors"
	"fmt"

	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/token"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// Engine executes flash-loan operations against a chain.
type Engine struct {
	config config.FlashLoanConfig
	ledger token.Ledger
	stakes StakeReader
	log    log.Logger
}

// NewEngine creates a flash-loan engine that reads reputation through stakes.
func NewEngine(cfg config.FlashLoanConfig, ledger token.Ledger, stakes StakeReader, logger log.Logger) *Engine {
	return &Engine{
		config: cfg,
		ledger: ledger,
		stakes: stakes,
		log:    logger,
	}
}

// InitializeProtocol creates the protocol singleton with admin as its
// administrator.
func (e *Engine) InitializeProtocol(chain state.Chain, admin ids.ShortID, feeBasisPoints uint64) (*state.ProtocolState, error) {
	if feeBasisPoints > math.BasisPointsDenominator {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBasisPoints)
	}
	switch _, err := chain.GetProtocol(); {
	case err == nil:
		return nil, ErrProtocolExists
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	protocol := &state.ProtocolState{
		Admin:          admin,
		FeeBasisPoints: feeBasisPoints,
		Stability:      e.config.MaxHealth,
	}
	if err := chain.PutProtocol(protocol); err != nil {
		return nil, err
	}

	e.log.Info("flash loan protocol initialized",
		log.Stringer("admin", admin),
		log.Uint64("feeBps", feeBasisPoints),
	)
	return protocol, nil
}

// InitializeVault creates the vault for assetID at full health.
func (e *Engine) InitializeVault(chain state.Chain, assetID ids.ID) (*state.TokenVault, error) {
	vaultID := state.VaultID(assetID)
	switch _, err := chain.GetVault(vaultID); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrVaultExists, assetID)
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	vault := &state.TokenVault{
		ID:           vaultID,
		AssetID:      assetID,
		Coherence:    e.config.MaxHealth,
		LinkStrength: e.config.MaxHealth,
	}
	if err := errors.Join(
		chain.PutVault(vault),
		chain.PutProgramAccount(state.VaultHolder(vaultID)),
	); err != nil {
		return nil, err
	}

	e.log.Info("flash loan vault initialized",
		log.Stringer("vault", vaultID),
		log.Stringer("asset", assetID),
	)
	return vault, nil
}

// FundVault moves amount from the admin into the vault as lendable
// liquidity.
func (e *Engine) FundVault(chain state.Chain, admin ids.ShortID, assetID ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if _, err := e.loadAuthorizedProtocol(chain, admin); err != nil {
		return err
	}
	vault, err := e.loadVault(chain, assetID)
	if err != nil {
		return err
	}
	vault.Balance, err = math.Add(vault.Balance, amount)
	if err != nil {
		return err
	}
	if err := e.ledger.Transfer(chain, assetID, admin, state.VaultHolder(vault.ID), amount); err != nil {
		return err
	}
	return chain.PutVault(vault)
}

// RequestFlashLoan admits and disburses a loan. The principal plus fee is
// recorded as owed in session. It returns the fee.
func (e *Engine) RequestFlashLoan(chain state.Chain, session *Session, req Request) (uint64, error) {
	if req.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	protocol, err := e.loadProtocol(chain)
	if err != nil {
		return 0, err
	}
	vault, err := e.loadVault(chain, req.AssetID)
	if err != nil {
		return 0, err
	}
	if err := e.admit(chain, protocol, vault, req); err != nil {
		return 0, err
	}

	fee, err := math.BasisPoints(req.Amount, protocol.FeeBasisPoints)
	if err != nil {
		return 0, err
	}
	owed, err := math.Add(req.Amount, fee)
	if err != nil {
		return 0, err
	}
	var errs [2]error
	protocol.TotalFlashLoans, errs[0] = math.Add(protocol.TotalFlashLoans, 1)
	protocol.Entropy, errs[1] = math.Add(protocol.Entropy, req.Amount/e.config.EntropyIncrementDivisor)
	if err := errors.Join(errs[:]...); err != nil {
		return 0, err
	}
	vault.Balance -= req.Amount
	vault.Coherence = adjustHealth(vault.Coherence, -1, e.config.MaxHealth)

	if err := e.ledger.Transfer(chain, req.AssetID, state.VaultHolder(vault.ID), req.Borrower, req.Amount); err != nil {
		return 0, err
	}
	if err := session.borrow(req.AssetID, owed); err != nil {
		return 0, err
	}
	if err := e.put(chain, protocol, vault); err != nil {
		return 0, err
	}

	e.log.Debug("flash loan issued",
		log.Stringer("borrower", req.Borrower),
		log.Stringer("asset", req.AssetID),
		log.Uint64("amount", req.Amount),
		log.Uint64("fee", fee),
	)
	return fee, nil
}

// admit runs the admission checks in order and returns the first failure.
func (e *Engine) admit(chain state.Chain, protocol *state.ProtocolState, vault *state.TokenVault, req Request) error {
	stake, err := e.stakes.GetUserStake(chain, req.StakePoolID, req.StakeOwner)
	if err != nil {
		return err
	}
	if stake.Owner != req.Borrower {
		return fmt.Errorf("%w: record of %s presented by %s", ErrMismatchedIdentity, stake.Owner, req.Borrower)
	}
	if stake.ReputationScore <= e.config.MinReputation {
		return fmt.Errorf("%w: %d <= %d", ErrInsufficientReputation, stake.ReputationScore, e.config.MinReputation)
	}
	if protocol.Entropy > req.Amount/e.config.EntropyDivisor || vault.Coherence < e.config.MinCoherence {
		return fmt.Errorf("%w: entropy %d, coherence %d", ErrHealthCheckFailed, protocol.Entropy, vault.Coherence)
	}
	if protocol.Stability < e.config.MinStability || vault.LinkStrength < e.config.MinStability {
		return fmt.Errorf("%w: protocol %d, vault %d", ErrStabilityCheckFailed, protocol.Stability, vault.LinkStrength)
	}
	if req.Amount > e.config.MaxBorrowAmount {
		return fmt.Errorf("%w: %d > %d", ErrExceedsMaxBorrow, req.Amount, e.config.MaxBorrowAmount)
	}
	if req.Amount > vault.Balance {
		return fmt.Errorf("%w: %d > %d", ErrInsufficientLiquidity, req.Amount, vault.Balance)
	}
	return nil
}

// RepayFlashLoan returns repayment to the vault. The principal is recovered
// from the repayment by dividing out the fee, so it may be off by one. It
// returns the principal and fee portions.
func (e *Engine) RepayFlashLoan(
	chain state.Chain,
	session *Session,
	payer ids.ShortID,
	assetID ids.ID,
	repayment uint64,
) (uint64, uint64, error) {
	if repayment == 0 {
		return 0, 0, ErrInvalidAmount
	}
	protocol, err := e.loadProtocol(chain)
	if err != nil {
		return 0, 0, err
	}
	vault, err := e.loadVault(chain, assetID)
	if err != nil {
		return 0, 0, err
	}

	principal, err := math.MulDiv(repayment, math.BasisPointsDenominator, math.BasisPointsDenominator+protocol.FeeBasisPoints)
	if err != nil {
		return 0, 0, err
	}
	fee := repayment - principal

	var errs [2]error
	protocol.TotalFeesCollected, errs[0] = math.Add(protocol.TotalFeesCollected, fee)
	vault.Balance, errs[1] = math.Add(vault.Balance, repayment)
	if err := errors.Join(errs[:]...); err != nil {
		return 0, 0, err
	}
	vault.LinkStrength = adjustHealth(vault.LinkStrength, 1, e.config.MaxHealth)
	vault.Coherence = adjustHealth(vault.Coherence, 1, e.config.MaxHealth)

	if err := e.ledger.Transfer(chain, assetID, payer, state.VaultHolder(vault.ID), repayment); err != nil {
		return 0, 0, err
	}
	session.repay(assetID, repayment)
	if err := e.put(chain, protocol, vault); err != nil {
		return 0, 0, err
	}

	e.log.Debug("flash loan repaid",
		log.Stringer("payer", payer),
		log.Stringer("asset", assetID),
		log.Uint64("principal", principal),
		log.Uint64("fee", fee),
	)
	return principal, fee, nil
}

// Execute borrows, hands the funds to use, and collects principal plus fee
// from the borrower, all in one unit of work over db. If any step fails, or
// the loan is left outstanding, nothing is written to db.
func (e *Engine) Execute(db database.Database, req Request, use func(chain state.Chain, fee uint64) error) error {
	vdb := versiondb.New(db)
	chain, err := state.New(vdb)
	if err != nil {
		return err
	}
	if err := e.execute(chain, req, use); err != nil {
		vdb.Abort()
		return err
	}
	return vdb.Commit()
}

func (e *Engine) execute(chain state.Chain, req Request, use func(chain state.Chain, fee uint64) error) error {
	session := NewSession()
	fee, err := e.RequestFlashLoan(chain, session, req)
	if err != nil {
		return err
	}
	if err := use(chain, fee); err != nil {
		return err
	}
	if _, _, err := e.RepayFlashLoan(chain, session, req.Borrower, req.AssetID, session.Outstanding(req.AssetID)); err != nil {
		return err
	}
	return session.Settle()
}

// ResetEntropy clears protocol entropy and restores the vault's coherence.
func (e *Engine) ResetEntropy(chain state.Chain, admin ids.ShortID, assetID ids.ID) error {
	protocol, err := e.loadAuthorizedProtocol(chain, admin)
	if err != nil {
		return err
	}
	vault, err := e.loadVault(chain, assetID)
	if err != nil {
		return err
	}
	protocol.Entropy = 0
	vault.Coherence = e.config.MaxHealth
	if err := e.put(chain, protocol, vault); err != nil {
		return err
	}

	e.log.Info("entropy reset",
		log.Stringer("asset", assetID),
	)
	return nil
}

// AdjustStability shifts protocol stability and the vault's link strength by
// the given deltas, clamped to [0, MaxHealth].
func (e *Engine) AdjustStability(
	chain state.Chain,
	admin ids.ShortID,
	assetID ids.ID,
	protocolDelta int8,
	vaultDelta int8,
) error {
	protocol, err := e.loadAuthorizedProtocol(chain, admin)
	if err != nil {
		return err
	}
	vault, err := e.loadVault(chain, assetID)
	if err != nil {
		return err
	}
	protocol.Stability = adjustHealth(protocol.Stability, protocolDelta, e.config.MaxHealth)
	vault.LinkStrength = adjustHealth(vault.LinkStrength, vaultDelta, e.config.MaxHealth)
	if err := e.put(chain, protocol, vault); err != nil {
		return err
	}

	e.log.Info("stability adjusted",
		log.Stringer("asset", assetID),
		log.Uint64("protocolStability", uint64(protocol.Stability)),
		log.Uint64("vaultLinkStrength", uint64(vault.LinkStrength)),
	)
	return nil
}

// EmergencyShutdown zeroes protocol stability, which fails every later
// admission until an admin raises it again.
func (e *Engine) EmergencyShutdown(chain state.Chain, admin ids.ShortID) error {
	protocol, err := e.loadAuthorizedProtocol(chain, admin)
	if err != nil {
		return err
	}
	protocol.Stability = 0
	if err := chain.PutProtocol(protocol); err != nil {
		return err
	}

	e.log.Warn("flash loan emergency shutdown",
		log.Stringer("admin", admin),
	)
	return nil
}

// GetProtocol returns the protocol singleton.
func (e *Engine) GetProtocol(chain state.Chain) (*state.ProtocolState, error) {
	return e.loadProtocol(chain)
}

// GetVault returns the vault for assetID.
func (e *Engine) GetVault(chain state.Chain, assetID ids.ID) (*state.TokenVault, error) {
	return e.loadVault(chain, assetID)
}

func (*Engine) put(chain state.Chain, protocol *state.ProtocolState, vault *state.TokenVault) error {
	if err := chain.PutProtocol(protocol); err != nil {
		return err
	}
	return chain.PutVault(vault)
}

func (*Engine) loadProtocol(chain state.Chain) (*state.ProtocolState, error) {
	protocol, err := chain.GetProtocol()
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrProtocolNotFound
	}
	return protocol, err
}

func (e *Engine) loadAuthorizedProtocol(chain state.Chain, caller ids.ShortID) (*state.ProtocolState, error) {
	protocol, err := e.loadProtocol(chain)
	if err != nil {
		return nil, err
	}
	if protocol.Admin != caller {
		return nil, fmt.Errorf("%w: %s is not the protocol admin", ErrUnauthorized, caller)
	}
	return protocol, nil
}

func (*Engine) loadVault(chain state.Chain, assetID ids.ID) (*state.TokenVault, error) {
	vault, err := chain.GetVault(state.VaultID(assetID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, assetID)
	}
	return vault, err
}

// adjustHealth applies delta to v, clamped to [0, hi].
func adjustHealth(v uint8, delta int8, hi uint8) uint8 {
	adjusted := int16(v) + int16(delta)
	return uint8(max(0, min(int16(hi), adjusted)))
}
