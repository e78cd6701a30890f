// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package flashloan

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/luxfi/agentvm/utils/math"
	"github.com/luxfi/ids"
)

// Session tracks what is owed to each vault within one transaction. A
// transaction that ends with anything outstanding must be discarded.
type Session struct {
	outstanding map[ids.ID]uint64
}

func NewSession() *Session {
	return &Session{outstanding: make(map[ids.ID]uint64)}
}

// Outstanding returns the principal plus fee still owed to assetID's vault.
func (s *Session) Outstanding(assetID ids.ID) uint64 {
	return s.outstanding[assetID]
}

func (s *Session) borrow(assetID ids.ID, owed uint64) error {
	total, err := math.Add(s.outstanding[assetID], owed)
	if err != nil {
		return err
	}
	s.outstanding[assetID] = total
	return nil
}

// repay credits repayment against the debt. Overpayment is not carried
// forward.
func (s *Session) repay(assetID ids.ID, repayment uint64) {
	owed := s.outstanding[assetID]
	if repayment >= owed {
		delete(s.outstanding, assetID)
		return
	}
	s.outstanding[assetID] = owed - repayment
}

// Settle fails if any loan taken in this session is not fully repaid.
func (s *Session) Settle() error {
	if len(s.outstanding) == 0 {
		return nil
	}
	assets := make([]ids.ID, 0, len(s.outstanding))
	for assetID := range s.outstanding {
		assets = append(assets, assetID)
	}
	slices.SortFunc(assets, func(a, b ids.ID) int {
		return bytes.Compare(a[:], b[:])
	})
	assetID := assets[0]
	return fmt.Errorf("%w: %d of %s outstanding", ErrLoanNotRepaid, s.outstanding[assetID], assetID)
}
