// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var (
	_ Instruction = (*Transfer)(nil)
	_ Instruction = (*Burn)(nil)
)

type Transfer struct {
	From    ids.ShortID `serialize:"true" json:"from"`
	To      ids.ShortID `serialize:"true" json:"to"`
	AssetID ids.ID      `serialize:"true" json:"assetID"`
	Amount  uint64      `serialize:"true" json:"amount"`
}

func (i *Transfer) Visit(v Visitor) error {
	return v.Transfer(i)
}

type Burn struct {
	From    ids.ShortID `serialize:"true" json:"from"`
	AssetID ids.ID      `serialize:"true" json:"assetID"`
	Amount  uint64      `serialize:"true" json:"amount"`
}

func (i *Burn) Visit(v Visitor) error {
	return v.Burn(i)
}
