// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/agentvm/vms/agentvm/cmd/run"
	"github.com/luxfi/agentvm/vms/agentvm/cmd/serve"
)

func main() {
	cmd := &cobra.Command{
		Use:   "agentvm",
		Short: "Runs an agent staking and flash-loan VM",
	}
	cmd.AddCommand(
		run.Command(),
		serve.Command(),
	)
	cmd.SilenceUsage = true

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
