// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

// Codec encodes transactions. Instruction type IDs follow registration
// order, so new instructions may only be appended.
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&InitializePool{}),
		lc.RegisterType(&Stake{}),
		lc.RegisterType(&StakeWithReputation{}),
		lc.RegisterType(&Unstake{}),
		lc.RegisterType(&ClaimRewards{}),
		lc.RegisterType(&FundRewards{}),
		lc.RegisterType(&ApplyReputationBoost{}),
		lc.RegisterType(&InitializeColdStartTrust{}),
		lc.RegisterType(&GraduateFromColdStart{}),
		lc.RegisterType(&UpdateRewardRate{}),
		lc.RegisterType(&UpdateReputationScore{}),
		lc.RegisterType(&CalculateDynamicAPR{}),

		lc.RegisterType(&InitializeProtocol{}),
		lc.RegisterType(&InitializeVault{}),
		lc.RegisterType(&FundVault{}),
		lc.RegisterType(&RequestFlashLoan{}),
		lc.RegisterType(&RepayFlashLoan{}),
		lc.RegisterType(&ResetEntropy{}),
		lc.RegisterType(&AdjustStability{}),
		lc.RegisterType(&EmergencyShutdown{}),

		lc.RegisterType(&Transfer{}),
		lc.RegisterType(&Burn{}),

		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
