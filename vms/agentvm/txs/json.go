// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errUnknownInstruction = errors.New("unknown instruction type")

var instructionTypes = map[string]func() Instruction{
	"initializePool":           func() Instruction { return &InitializePool{} },
	"stake":                    func() Instruction { return &Stake{} },
	"stakeWithReputation":      func() Instruction { return &StakeWithReputation{} },
	"unstake":                  func() Instruction { return &Unstake{} },
	"claimRewards":             func() Instruction { return &ClaimRewards{} },
	"fundRewards":              func() Instruction { return &FundRewards{} },
	"applyReputationBoost":     func() Instruction { return &ApplyReputationBoost{} },
	"initializeColdStartTrust": func() Instruction { return &InitializeColdStartTrust{} },
	"graduateFromColdStart":    func() Instruction { return &GraduateFromColdStart{} },
	"updateRewardRate":         func() Instruction { return &UpdateRewardRate{} },
	"updateReputationScore":    func() Instruction { return &UpdateReputationScore{} },
	"calculateDynamicAPR":      func() Instruction { return &CalculateDynamicAPR{} },
	"initializeProtocol":       func() Instruction { return &InitializeProtocol{} },
	"initializeVault":          func() Instruction { return &InitializeVault{} },
	"fundVault":                func() Instruction { return &FundVault{} },
	"requestFlashLoan":         func() Instruction { return &RequestFlashLoan{} },
	"repayFlashLoan":           func() Instruction { return &RepayFlashLoan{} },
	"resetEntropy":             func() Instruction { return &ResetEntropy{} },
	"adjustStability":          func() Instruction { return &AdjustStability{} },
	"emergencyShutdown":        func() Instruction { return &EmergencyShutdown{} },
	"transfer":                 func() Instruction { return &Transfer{} },
	"burn":                     func() Instruction { return &Burn{} },
}

// JSONInstruction is the human-readable envelope of an instruction, as
// accepted by the API and the CLI.
type JSONInstruction struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args"`
}

// Instruction decodes the envelope into its concrete instruction.
func (j *JSONInstruction) Instruction() (Instruction, error) {
	newInstruction, ok := instructionTypes[j.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownInstruction, j.Type)
	}
	instruction := newInstruction()
	if len(j.Args) > 0 {
		if err := json.Unmarshal(j.Args, instruction); err != nil {
			return nil, fmt.Errorf("invalid %s args: %w", j.Type, err)
		}
	}
	return instruction, nil
}

// JSONTx is the human-readable form of a Tx.
type JSONTx struct {
	Instructions []JSONInstruction `json:"instructions"`
	Memo         string            `json:"memo"`
}

// Tx decodes and encodes the transaction.
func (j *JSONTx) Tx() (*Tx, error) {
	instructions := make([]Instruction, len(j.Instructions))
	for i := range j.Instructions {
		instruction, err := j.Instructions[i].Instruction()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		instructions[i] = instruction
	}
	return NewTx([]byte(j.Memo), instructions...)
}
