// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/metric"
)

const instructionLabel = "instruction"

var (
	_ txs.Visitor = (*txMetrics)(nil)

	instructionLabels = []string{instructionLabel}
)

type txMetrics struct {
	numInstructions metric.CounterVec
	flashLoanVolume metric.Counter
	stakedVolume    metric.Counter
}

func newTxMetrics(namespace string, registerer metric.Registerer) (*txMetrics, error) {
	m := &txMetrics{
		numInstructions: metric.NewCounterVec(
			metric.CounterOpts{
				Namespace: namespace,
				Name:      "instructions_accepted",
				Help:      "number of instructions in accepted transactions",
			},
			instructionLabels,
		),
		flashLoanVolume: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "flash_loan_volume",
			Help:      "cumulative principal of accepted flash loans",
		}),
		stakedVolume: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "staked_volume",
			Help:      "cumulative amount deposited into staking pools",
		}),
	}
	err := errors.Join(
		registerer.Register(m.numInstructions),
		registerer.Register(m.flashLoanVolume),
		registerer.Register(m.stakedVolume),
	)
	return m, err
}

func (m *txMetrics) inc(name string) {
	m.numInstructions.With(metric.Labels{
		instructionLabel: name,
	}).Inc()
}

func (m *txMetrics) InitializePool(*txs.InitializePool) error {
	m.inc("initialize_pool")
	return nil
}

func (m *txMetrics) Stake(i *txs.Stake) error {
	m.inc("stake")
	m.stakedVolume.Add(float64(i.Amount))
	return nil
}

func (m *txMetrics) StakeWithReputation(i *txs.StakeWithReputation) error {
	m.inc("stake_with_reputation")
	m.stakedVolume.Add(float64(i.Amount))
	return nil
}

func (m *txMetrics) Unstake(*txs.Unstake) error {
	m.inc("unstake")
	return nil
}

func (m *txMetrics) ClaimRewards(*txs.ClaimRewards) error {
	m.inc("claim_rewards")
	return nil
}

func (m *txMetrics) FundRewards(*txs.FundRewards) error {
	m.inc("fund_rewards")
	return nil
}

func (m *txMetrics) ApplyReputationBoost(*txs.ApplyReputationBoost) error {
	m.inc("apply_reputation_boost")
	return nil
}

func (m *txMetrics) InitializeColdStartTrust(*txs.InitializeColdStartTrust) error {
	m.inc("initialize_cold_start_trust")
	return nil
}

func (m *txMetrics) GraduateFromColdStart(*txs.GraduateFromColdStart) error {
	m.inc("graduate_from_cold_start")
	return nil
}

func (m *txMetrics) UpdateRewardRate(*txs.UpdateRewardRate) error {
	m.inc("update_reward_rate")
	return nil
}

func (m *txMetrics) UpdateReputationScore(*txs.UpdateReputationScore) error {
	m.inc("update_reputation_score")
	return nil
}

func (m *txMetrics) CalculateDynamicAPR(*txs.CalculateDynamicAPR) error {
	m.inc("calculate_dynamic_apr")
	return nil
}

func (m *txMetrics) InitializeProtocol(*txs.InitializeProtocol) error {
	m.inc("initialize_protocol")
	return nil
}

func (m *txMetrics) InitializeVault(*txs.InitializeVault) error {
	m.inc("initialize_vault")
	return nil
}

func (m *txMetrics) FundVault(*txs.FundVault) error {
	m.inc("fund_vault")
	return nil
}

func (m *txMetrics) RequestFlashLoan(i *txs.RequestFlashLoan) error {
	m.inc("request_flash_loan")
	m.flashLoanVolume.Add(float64(i.Amount))
	return nil
}

func (m *txMetrics) RepayFlashLoan(*txs.RepayFlashLoan) error {
	m.inc("repay_flash_loan")
	return nil
}

func (m *txMetrics) ResetEntropy(*txs.ResetEntropy) error {
	m.inc("reset_entropy")
	return nil
}

func (m *txMetrics) AdjustStability(*txs.AdjustStability) error {
	m.inc("adjust_stability")
	return nil
}

func (m *txMetrics) EmergencyShutdown(*txs.EmergencyShutdown) error {
	m.inc("emergency_shutdown")
	return nil
}

func (m *txMetrics) Transfer(*txs.Transfer) error {
	m.inc("transfer")
	return nil
}

func (m *txMetrics) Burn(*txs.Burn) error {
	m.inc("burn")
	return nil
}
