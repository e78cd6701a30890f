// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agentvm

import (
	stdjson "encoding/json"
	"fmt"
	"time"

	"github.com/luxfi/agentvm/utils/json"
	"github.com/luxfi/agentvm/vms/agentvm/state"
	"github.com/luxfi/agentvm/vms/agentvm/txs/executor"
	"github.com/luxfi/ids"
)

// Genesis is the initial state of the chain.
type Genesis struct {
	Timestamp   int64               `json:"timestamp"`
	Allocations []GenesisAllocation `json:"allocations"`
	Pools       []GenesisPool       `json:"pools"`
	Protocol    *GenesisProtocol    `json:"protocol,omitempty"`
	Vaults      []GenesisVault      `json:"vaults"`
}

// GenesisAllocation mints Amount of AssetID to Address.
type GenesisAllocation struct {
	Address ids.ShortID `json:"address"`
	AssetID ids.ID      `json:"assetID"`
	Amount  json.Uint64 `json:"amount"`
}

// GenesisPool creates a staking pool. RewardFunds are moved from the
// authority into the pool's reward reserve.
type GenesisPool struct {
	Authority     ids.ShortID `json:"authority"`
	StakedAssetID ids.ID      `json:"stakedAssetID"`
	RewardAssetID ids.ID      `json:"rewardAssetID"`
	RewardRate    json.Uint64 `json:"rewardRate"`
	RewardFunds   json.Uint64 `json:"rewardFunds"`
}

type GenesisProtocol struct {
	Admin          ids.ShortID `json:"admin"`
	FeeBasisPoints json.Uint64 `json:"feeBasisPoints"`
}

// GenesisVault creates the flash-loan vault of AssetID. Funds are moved from
// the protocol admin into the vault.
type GenesisVault struct {
	AssetID ids.ID      `json:"assetID"`
	Funds   json.Uint64 `json:"funds"`
}

func ParseGenesis(genesisBytes []byte) (*Genesis, error) {
	genesis := &Genesis{}
	if err := stdjson.Unmarshal(genesisBytes, genesis); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return genesis, nil
}

// Apply writes the genesis state to chain. Allocations are minted first so
// that pools and vaults can be funded from them.
func (g *Genesis) Apply(backend *executor.Backend, chain state.Chain) error {
	if err := chain.SetTimestamp(time.Unix(g.Timestamp, 0)); err != nil {
		return err
	}

	for i, allocation := range g.Allocations {
		if err := backend.Ledger.Mint(chain, allocation.AssetID, allocation.Address, uint64(allocation.Amount)); err != nil {
			return fmt.Errorf("allocation %d: %w", i, err)
		}
	}

	for i, p := range g.Pools {
		pool, err := backend.Staking.InitializePool(chain, p.Authority, p.StakedAssetID, p.RewardAssetID, uint64(p.RewardRate))
		if err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
		if p.RewardFunds == 0 {
			continue
		}
		if err := backend.Staking.FundRewards(chain, pool.ID, p.Authority, uint64(p.RewardFunds)); err != nil {
			return fmt.Errorf("pool %d: %w", i, err)
		}
	}

	if g.Protocol == nil {
		if len(g.Vaults) > 0 {
			return errVaultsWithoutProtocol
		}
		return nil
	}
	if _, err := backend.FlashLoan.InitializeProtocol(chain, g.Protocol.Admin, uint64(g.Protocol.FeeBasisPoints)); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	for i, v := range g.Vaults {
		if _, err := backend.FlashLoan.InitializeVault(chain, v.AssetID); err != nil {
			return fmt.Errorf("vault %d: %w", i, err)
		}
		if v.Funds == 0 {
			continue
		}
		if err := backend.FlashLoan.FundVault(chain, g.Protocol.Admin, v.AssetID, uint64(v.Funds)); err != nil {
			return fmt.Errorf("vault %d: %w", i, err)
		}
	}
	return nil
}
