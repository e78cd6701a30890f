// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token moves fungible assets between accounts.
package token

import (
	"errors"
	"fmt"

	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/ids"
)

var (
	_ Ledger = (*StateLedger)(nil)

	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is every token operation the programs need.
type Ledger interface {
	Transfer(chain state.Chain, assetID ids.ID, from, to ids.ShortID, amount uint64) error
	Mint(chain state.Chain, assetID ids.ID, to ids.ShortID, amount uint64) error
	Burn(chain state.Chain, assetID ids.ID, from ids.ShortID, amount uint64) error
}

// StateLedger keeps balances and supplies in the chain's account store.
type StateLedger struct{}

func (StateLedger) Transfer(chain state.Chain, assetID ids.ID, from, to ids.ShortID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := debit(chain, assetID, from, amount); err != nil {
		return err
	}
	return credit(chain, assetID, to, amount)
}

func (StateLedger) Mint(chain state.Chain, assetID ids.ID, to ids.ShortID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	supply, err := chain.GetSupply(assetID)
	if err != nil {
		return err
	}
	supply, err = math.Add(supply, amount)
	if err != nil {
		return fmt.Errorf("minting %d of %s: %w", amount, assetID, err)
	}
	if err := chain.PutSupply(assetID, supply); err != nil {
		return err
	}
	return credit(chain, assetID, to, amount)
}

func (StateLedger) Burn(chain state.Chain, assetID ids.ID, from ids.ShortID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := debit(chain, assetID, from, amount); err != nil {
		return err
	}
	supply, err := chain.GetSupply(assetID)
	if err != nil {
		return err
	}
	supply, err = math.Sub(supply, amount)
	if err != nil {
		return fmt.Errorf("burning %d of %s: %w", amount, assetID, err)
	}
	return chain.PutSupply(assetID, supply)
}

func debit(chain state.Chain, assetID ids.ID, from ids.ShortID, amount uint64) error {
	balance, err := chain.GetBalance(from, assetID)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, from, balance, assetID, amount)
	}
	return chain.PutBalance(from, assetID, balance-amount)
}

func credit(chain state.Chain, assetID ids.ID, to ids.ShortID, amount uint64) error {
	balance, err := chain.GetBalance(to, assetID)
	if err != nil {
		return err
	}
	balance, err = math.Add(balance, amount)
	if err != nil {
		return err
	}
	return chain.PutBalance(to, assetID, balance)
}
