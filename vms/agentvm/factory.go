// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agentvm

import (
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/log"
)

// Factory creates new agent VM instances.
type Factory struct {
	config.Config
}

// New creates a VM with the factory's configuration.
func (f *Factory) New(logger log.Logger) (*VM, error) {
	if err := f.Config.Verify(); err != nil {
		return nil, err
	}
	return New(f.Config, logger), nil
}
