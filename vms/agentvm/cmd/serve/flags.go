// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	HTTPHostKey       = "http-host"
	HTTPPortKey       = "http-port"
	GenesisFileKey    = "genesis-file"
	ConfigFileKey     = "config-file"
	DBDirKey          = "db-dir"
	BlockIntervalKey  = "block-interval"
	AllowedOriginsKey = "http-allowed-origins"
)

var (
	errMissingGenesis   = errors.New("--genesis-file is required")
	errNonPositiveBlock = errors.New("--block-interval must be positive")
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HTTPHostKey, "127.0.0.1", "Address of the HTTP server")
	flags.Uint16(HTTPPortKey, 9650, "Port of the HTTP server")
	flags.String(GenesisFileKey, "", "Path to the genesis file (required)")
	flags.String(ConfigFileKey, "", "Path to a JSON VM config overriding the defaults")
	flags.String(DBDirKey, "", "Directory of the on-disk database. If empty, state is kept in memory")
	flags.Duration(BlockIntervalKey, time.Second, "How often a block is built from pending txs")
	flags.StringSlice(AllowedOriginsKey, []string{"*"}, "Origins allowed to make cross-origin requests")
}

type Config struct {
	HTTPAddress    string
	GenesisBytes   []byte
	ConfigBytes    []byte
	DBDir          string
	BlockInterval  time.Duration
	AllowedOrigins []string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	host, err := flags.GetString(HTTPHostKey)
	if err != nil {
		return nil, err
	}
	port, err := flags.GetUint16(HTTPPortKey)
	if err != nil {
		return nil, err
	}

	genesisPath, err := flags.GetString(GenesisFileKey)
	if err != nil {
		return nil, err
	}
	if genesisPath == "" {
		return nil, errMissingGenesis
	}
	genesisBytes, err := os.ReadFile(genesisPath)
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

	dbDir, err := flags.GetString(DBDirKey)
	if err != nil {
		return nil, err
	}

	blockInterval, err := flags.GetDuration(BlockIntervalKey)
	if err != nil {
		return nil, err
	}
	if blockInterval <= 0 {
		return nil, errNonPositiveBlock
	}

	allowedOrigins, err := flags.GetStringSlice(AllowedOriginsKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPAddress:    fmt.Sprintf("%s:%d", host, port),
		GenesisBytes:   genesisBytes,
		ConfigBytes:    configBytes,
		DBDir:          dbDir,
		BlockInterval:  blockInterval,
		AllowedOrigins: allowedOrigins,
	}, nil
}
