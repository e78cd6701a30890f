// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staking

import (
	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/config"
)

// ReputationWeighted returns amount scaled by 1 + score/maxReputation. The
// score is capped at maxReputation so the multiplier stays within [1, 2].
func ReputationWeighted(amount, score, maxReputation uint64) (uint64, error) {
	score = min(score, maxReputation)
	bonus, err := math.MulDiv(amount, score, maxReputation)
	if err != nil {
		return 0, err
	}
	return math.Add(amount, bonus)
}

// BoostBps is the effective stake increase earned by attestations, in basis
// points, capped at cfg.MaxBoostBps.
func BoostBps(attestations uint64, cfg config.StakingConfig) uint64 {
	bps, err := math.Mul(attestations, cfg.BoostBpsPerAttestation)
	if err != nil {
		return cfg.MaxBoostBps
	}
	return min(bps, cfg.MaxBoostBps)
}

// ColdStartEffective is the effective stake granted to a cold start
// participant: the base amount times score/100, clamped to the configured
// multiplier range.
func ColdStartEffective(score uint64, cfg config.StakingConfig) (uint64, error) {
	multiplierBps, err := math.Mul(score, math.BasisPointsDenominator/100)
	if err != nil {
		multiplierBps = cfg.ColdStartMaxMultiplierBps
	}
	multiplierBps = max(cfg.ColdStartMinMultiplierBps, min(cfg.ColdStartMaxMultiplierBps, multiplierBps))
	return math.BasisPoints(cfg.ColdStartBaseAmount, multiplierBps)
}

// DynamicAPR adjusts the base APR up for positive attestations and down for
// negative ones, clamped to [MinAPRBps, MaxAPRBps]. Intermediate values
// saturate rather than fail, so the clamp always decides the result.
func DynamicAPR(positive, negative uint64, cfg config.StakingConfig) uint64 {
	bonus := math.SaturatingMul(positive, cfg.PositiveAttestationAPRBps)
	penalty := math.SaturatingMul(negative, cfg.NegativeAttestationAPRBps)
	apr := math.SaturatingSub(math.SaturatingAdd(cfg.BaseAPRBps, bonus), penalty)
	return max(cfg.MinAPRBps, min(cfg.MaxAPRBps, apr))
}
