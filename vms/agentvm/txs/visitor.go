// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Visitor executes custom logic against each instruction type.
type Visitor interface {
	// Staking
	InitializePool(*InitializePool) error
	Stake(*Stake) error
	StakeWithReputation(*StakeWithReputation) error
	Unstake(*Unstake) error
	ClaimRewards(*ClaimRewards) error
	FundRewards(*FundRewards) error
	ApplyReputationBoost(*ApplyReputationBoost) error
	InitializeColdStartTrust(*InitializeColdStartTrust) error
	GraduateFromColdStart(*GraduateFromColdStart) error
	UpdateRewardRate(*UpdateRewardRate) error
	UpdateReputationScore(*UpdateReputationScore) error
	CalculateDynamicAPR(*CalculateDynamicAPR) error

	// Flash loans
	InitializeProtocol(*InitializeProtocol) error
	InitializeVault(*InitializeVault) error
	FundVault(*FundVault) error
	RequestFlashLoan(*RequestFlashLoan) error
	RepayFlashLoan(*RepayFlashLoan) error
	ResetEntropy(*ResetEntropy) error
	AdjustStability(*AdjustStability) error
	EmergencyShutdown(*EmergencyShutdown) error

	// Tokens
	Transfer(*Transfer) error
	Burn(*Burn) error
}
