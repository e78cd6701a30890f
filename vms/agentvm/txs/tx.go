// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txs defines the agent VM transaction format.
package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/agentvm/utils/hashing"
	"github.com/luxfi/ids"
)

var (
	ErrNilTx               = errors.New("nil tx")
	ErrNoInstructions      = errors.New("tx has no instructions")
	ErrTooManyInstructions = errors.New("tx has too many instructions")
	ErrNilInstruction      = errors.New("nil instruction")
)

// Instruction is one program call. It is dispatched to the matching
// Visitor method.
type Instruction interface {
	Visit(Visitor) error
}

// Tx is an ordered list of instructions that either all apply or none do.
type Tx struct {
	Instructions []Instruction `serialize:"true" json:"instructions"`
	// Memo distinguishes otherwise identical transactions.
	Memo []byte `serialize:"true" json:"memo"`

	id    ids.ID
	bytes []byte
}

// NewTx builds and encodes a transaction.
func NewTx(memo []byte, instructions ...Instruction) (*Tx, error) {
	tx := &Tx{
		Instructions: instructions,
		Memo:         memo,
	}
	bytes, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal tx: %w", err)
	}
	tx.SetBytes(bytes)
	return tx, nil
}

// Parse decodes a transaction.
func Parse(bytes []byte) (*Tx, error) {
	tx := &Tx{}
	if _, err := Codec.Unmarshal(bytes, tx); err != nil {
		return nil, fmt.Errorf("couldn't parse tx: %w", err)
	}
	tx.SetBytes(bytes)
	return tx, nil
}

func (tx *Tx) SetBytes(bytes []byte) {
	tx.bytes = bytes
	tx.id = hashing.ComputeHash256Array(bytes)
}

func (tx *Tx) ID() ids.ID {
	return tx.id
}

func (tx *Tx) Bytes() []byte {
	return tx.bytes
}

// SyntacticVerify checks the transaction shape without touching state.
func (tx *Tx) SyntacticVerify(maxInstructions int) error {
	switch {
	case tx == nil:
		return ErrNilTx
	case len(tx.Instructions) == 0:
		return ErrNoInstructions
	case len(tx.Instructions) > maxInstructions:
		return fmt.Errorf("%w: %d > %d", ErrTooManyInstructions, len(tx.Instructions), maxInstructions)
	}
	for i, instruction := range tx.Instructions {
		if instruction == nil {
			return fmt.Errorf("%w at index %d", ErrNilInstruction, i)
		}
	}
	return nil
}

// Visit dispatches every instruction to v in order, stopping at the first
// error.
func (tx *Tx) Visit(v Visitor) error {
	for i, instruction := range tx.Instructions {
		if err := instruction.Visit(v); err != nil {
			return fmt.Errorf("instruction %d (%T): %w", i, instruction, err)
		}
	}
	return nil
}
