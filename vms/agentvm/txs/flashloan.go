// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var (
	_ Instruction = (*InitializeProtocol)(nil)
	_ Instruction = (*InitializeVault)(nil)
	_ Instruction = (*FundVault)(nil)
	_ Instruction = (*RequestFlashLoan)(nil)
	_ Instruction = (*RepayFlashLoan)(nil)
	_ Instruction = (*ResetEntropy)(nil)
	_ Instruction = (*AdjustStability)(nil)
	_ Instruction = (*EmergencyShutdown)(nil)
)

type InitializeProtocol struct {
	Admin          ids.ShortID `serialize:"true" json:"admin"`
	FeeBasisPoints uint64      `serialize:"true" json:"feeBasisPoints"`
}

func (i *InitializeProtocol) Visit(v Visitor) error {
	return v.InitializeProtocol(i)
}

type InitializeVault struct {
	AssetID ids.ID `serialize:"true" json:"assetID"`
}

func (i *InitializeVault) Visit(v Visitor) error {
	return v.InitializeVault(i)
}

type FundVault struct {
	Admin   ids.ShortID `serialize:"true" json:"admin"`
	AssetID ids.ID      `serialize:"true" json:"assetID"`
	Amount  uint64      `serialize:"true" json:"amount"`
}

func (i *FundVault) Visit(v Visitor) error {
	return v.FundVault(i)
}

// RequestFlashLoan borrows Amount of AssetID. A RepayFlashLoan for the
// principal plus fee must follow in the same transaction.
type RequestFlashLoan struct {
	Borrower    ids.ShortID `serialize:"true" json:"borrower"`
	AssetID     ids.ID      `serialize:"true" json:"assetID"`
	Amount      uint64      `serialize:"true" json:"amount"`
	StakePoolID ids.ID      `serialize:"true" json:"stakePoolID"`
	StakeOwner  ids.ShortID `serialize:"true" json:"stakeOwner"`
}

func (i *RequestFlashLoan) Visit(v Visitor) error {
	return v.RequestFlashLoan(i)
}

type RepayFlashLoan struct {
	Payer   ids.ShortID `serialize:"true" json:"payer"`
	AssetID ids.ID      `serialize:"true" json:"assetID"`
	Amount  uint64      `serialize:"true" json:"amount"`
}

func (i *RepayFlashLoan) Visit(v Visitor) error {
	return v.RepayFlashLoan(i)
}

type ResetEntropy struct {
	Admin   ids.ShortID `serialize:"true" json:"admin"`
	AssetID ids.ID      `serialize:"true" json:"assetID"`
}

func (i *ResetEntropy) Visit(v Visitor) error {
	return v.ResetEntropy(i)
}

type AdjustStability struct {
	Admin         ids.ShortID `serialize:"true" json:"admin"`
	AssetID       ids.ID      `serialize:"true" json:"assetID"`
	ProtocolDelta int8        `serialize:"true" json:"protocolDelta"`
	VaultDelta    int8        `serialize:"true" json:"vaultDelta"`
}

func (i *AdjustStability) Visit(v Visitor) error {
	return v.AdjustStability(i)
}

type EmergencyShutdown struct {
	Admin ids.ShortID `serialize:"true" json:"admin"`
}

func (i *EmergencyShutdown) Visit(v Visitor) error {
	return v.EmergencyShutdown(i)
}
