// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"errors"
	"os"

	"github.com/spf13/pflag"
)

const (
	ScriptKey     = "script"
	ConfigFileKey = "config-file"
)

var errMissingScript = errors.New("--script is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ScriptKey, "", "Path to the JSON script of genesis and blocks to execute (required)")
	flags.String(ConfigFileKey, "", "Path to a JSON VM config overriding the defaults")
}

type Config struct {
	Script      []byte
	ConfigBytes []byte
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	scriptPath, err := flags.GetString(ScriptKey)
	if err != nil {
		return nil, err
	}
	if scriptPath == "" {
		return nil, errMissingScript
	}
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, err
	}

	configPath, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	var configBytes []byte
	if configPath != "" {
		configBytes, err = os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		Script:      script,
		ConfigBytes: configBytes,
	}, nil
}
