// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package run executes a scripted sequence of blocks against a fresh
// in-memory chain.
package run

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/agentvm/vms/agentvm"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

// Script is a genesis followed by the blocks to execute on top of it.
type Script struct {
	Genesis json.RawMessage `json:"genesis"`
	Blocks  []ScriptBlock   `json:"blocks"`
}

type ScriptBlock struct {
	Timestamp int64        `json:"timestamp"`
	Txs       []txs.JSONTx `json:"txs"`
}

type txOutput struct {
	TxID   ids.ID     `json:"txID"`
	Status txs.Status `json:"status"`
	Error  string     `json:"error,omitempty"`
}

type blockOutput struct {
	Height    uint64     `json:"height"`
	Timestamp int64      `json:"timestamp"`
	Txs       []txOutput `json:"txs"`
}

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Executes a script of blocks against an in-memory chain",
		RunE:  runFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	cfg, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}
	return Run(c.Context(), log.NewLogger("agentvm"), cfg, c.OutOrStdout())
}

// Run executes the script in cfg and writes one JSON line per block to out.
func Run(ctx context.Context, logger log.Logger, cfg *Config, out io.Writer) error {
	script := &Script{}
	if err := json.Unmarshal(cfg.Script, script); err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	vm := agentvm.New(config.DefaultConfig(), logger)
	if err := vm.Initialize(ctx, memdb.New(), script.Genesis, cfg.ConfigBytes, metric.NewRegistry()); err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	for i, block := range script.Blocks {
		txBytes := make([][]byte, len(block.Txs))
		for j := range block.Txs {
			tx, err := block.Txs[j].Tx()
			if err != nil {
				return fmt.Errorf("block %d tx %d: %w", i, j, err)
			}
			txBytes[j] = tx.Bytes()
		}

		result, err := vm.ProcessBlock(ctx, time.Unix(block.Timestamp, 0), txBytes)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err := encoder.Encode(newBlockOutput(result)); err != nil {
			return err
		}
	}
	return vm.Shutdown(ctx)
}

func newBlockOutput(result *agentvm.BlockResult) blockOutput {
	output := blockOutput{
		Height:    result.Height,
		Timestamp: result.Timestamp.Unix(),
		Txs:       make([]txOutput, len(result.Txs)),
	}
	for i, tx := range result.Txs {
		output.Txs[i] = txOutput{
			TxID:   tx.TxID,
			Status: tx.Status,
		}
		if tx.Err != nil {
			output.Txs[i].Error = tx.Err.Error()
		}
	}
	return output
}
