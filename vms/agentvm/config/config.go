// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the agent VM.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	errZeroMaxReputation     = errors.New("max reputation must be positive")
	errPrecisionTooWide      = errors.New("reward precision must be below 128 bits")
	errInvertedAPRBounds     = errors.New("min APR exceeds max APR")
	errInvertedColdStart     = errors.New("cold start min multiplier exceeds max multiplier")
	errZeroDivisor           = errors.New("divisor must be positive")
	errHealthOutOfRange      = errors.New("health thresholds exceed max health")
	errZeroMaxTxsPerBlock    = errors.New("max txs per block must be positive")
	errZeroMaxInstructionsTx = errors.New("max instructions per tx must be positive")
	errZeroTxStatusCache     = errors.New("tx status cache size must be positive")
)

// Config contains configuration parameters for the agent VM.
type Config struct {
	Staking   StakingConfig   `json:"staking"`
	FlashLoan FlashLoanConfig `json:"flashLoan"`

	// Block configuration
	MaxTxsPerBlock          uint32 `json:"maxTxsPerBlock"`
	MaxInstructionsPerTx    uint32 `json:"maxInstructionsPerTx"`
	MetricsNamespace        string `json:"metricsNamespace"`
	RejectedTxLogsPerMinute uint32 `json:"rejectedTxLogsPerMinute"`
	TxStatusCacheSize       int    `json:"txStatusCacheSize"`
}

// StakingConfig parameterizes reward accrual and reputation weighting.
type StakingConfig struct {
	// MaxReputation is the score that earns the full 2x stake multiplier.
	MaxReputation uint64 `json:"maxReputation"`
	// RewardPrecisionBits is the fixed-point shift of the accumulator.
	RewardPrecisionBits uint `json:"rewardPrecisionBits"`

	BoostBpsPerAttestation uint64 `json:"boostBpsPerAttestation"`
	MaxBoostBps            uint64 `json:"maxBoostBps"`

	ColdStartBaseAmount       uint64        `json:"coldStartBaseAmount"`
	ColdStartMinMultiplierBps uint64        `json:"coldStartMinMultiplierBps"`
	ColdStartMaxMultiplierBps uint64        `json:"coldStartMaxMultiplierBps"`
	ColdStartPeriod           time.Duration `json:"coldStartPeriod"`

	BaseAPRBps                uint64 `json:"baseAPRBps"`
	PositiveAttestationAPRBps uint64 `json:"positiveAttestationAPRBps"`
	NegativeAttestationAPRBps uint64 `json:"negativeAttestationAPRBps"`
	MinAPRBps                 uint64 `json:"minAPRBps"`
	MaxAPRBps                 uint64 `json:"maxAPRBps"`
	RewardRatePerAPRBps       uint64 `json:"rewardRatePerAPRBps"`
}

// FlashLoanConfig parameterizes flash-loan admission.
type FlashLoanConfig struct {
	// MinReputation must be strictly exceeded.
	MinReputation   uint64 `json:"minReputation"`
	MaxBorrowAmount uint64 `json:"maxBorrowAmount"`

	// EntropyDivisor bounds the protocol entropy a loan of a given size
	// tolerates: entropy <= amount / EntropyDivisor.
	EntropyDivisor uint64 `json:"entropyDivisor"`
	// EntropyIncrementDivisor scales the entropy a loan adds.
	EntropyIncrementDivisor uint64 `json:"entropyIncrementDivisor"`

	MinCoherence uint8 `json:"minCoherence"`
	MinStability uint8 `json:"minStability"`
	MaxHealth    uint8 `json:"maxHealth"`
}

// DefaultConfig returns the default configuration for the agent VM.
func DefaultConfig() Config {
	return Config{
		Staking: StakingConfig{
			MaxReputation:       10_000,
			RewardPrecisionBits: 40,

			BoostBpsPerAttestation: 10,   // 0.1%
			MaxBoostBps:            1000, // 10%

			ColdStartBaseAmount:       1_000_000,
			ColdStartMinMultiplierBps: 1_000,  // 0.1x
			ColdStartMaxMultiplierBps: 20_000, // 2.0x
			ColdStartPeriod:           7 * 24 * time.Hour,

			BaseAPRBps:                1000, // 10%
			PositiveAttestationAPRBps: 50,
			NegativeAttestationAPRBps: 100,
			MinAPRBps:                 100,  // 1%
			MaxAPRBps:                 5000, // 50%
			RewardRatePerAPRBps:       100,
		},
		FlashLoan: FlashLoanConfig{
			MinReputation:   1000,
			MaxBorrowAmount: 100_000_000_000_000, // 1e14

			EntropyDivisor:          100_000,
			EntropyIncrementDivisor: 10_000,

			MinCoherence: 50,
			MinStability: 80,
			MaxHealth:    100,
		},

		MaxTxsPerBlock:          1000,
		MaxInstructionsPerTx:    32,
		MetricsNamespace:        "agentvm",
		RejectedTxLogsPerMinute: 60,
		TxStatusCacheSize:       4096,
	}
}

// Parse overlays configBytes, a JSON document, on DefaultConfig.
func Parse(configBytes []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, cfg.Verify()
}

// Verify rejects configurations the engines cannot run with.
func (c *Config) Verify() error {
	switch {
	case c.MaxTxsPerBlock == 0:
		return errZeroMaxTxsPerBlock
	case c.MaxInstructionsPerTx == 0:
		return errZeroMaxInstructionsTx
	case c.TxStatusCacheSize <= 0:
		return errZeroTxStatusCache
	}
	if err := c.Staking.Verify(); err != nil {
		return fmt.Errorf("invalid staking config: %w", err)
	}
	if err := c.FlashLoan.Verify(); err != nil {
		return fmt.Errorf("invalid flash loan config: %w", err)
	}
	return nil
}

func (c *StakingConfig) Verify() error {
	switch {
	case c.MaxReputation == 0:
		return errZeroMaxReputation
	case c.RewardPrecisionBits >= 128:
		return errPrecisionTooWide
	case c.MinAPRBps > c.MaxAPRBps:
		return errInvertedAPRBounds
	case c.ColdStartMinMultiplierBps > c.ColdStartMaxMultiplierBps:
		return errInvertedColdStart
	default:
		return nil
	}
}

func (c *FlashLoanConfig) Verify() error {
	switch {
	case c.EntropyDivisor == 0, c.EntropyIncrementDivisor == 0:
		return errZeroDivisor
	case c.MinCoherence > c.MaxHealth, c.MinStability > c.MaxHealth:
		return errHealthOutOfRange
	default:
		return nil
	}
}
