// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/agentvm/vms/agentvm"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

func newTestVM(t *testing.T, registry metric.Registerer) *agentvm.VM {
	require := require.New(t)

	genesisBytes, err := json.Marshal(&agentvm.Genesis{Timestamp: 1_700_000_000})
	require.NoError(err)

	vm := agentvm.New(config.DefaultConfig(), log.NewNoOpLogger())
	require.NoError(vm.Initialize(context.Background(), memdb.New(), genesisBytes, nil, registry))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})
	return vm
}

func TestHandler(t *testing.T) {
	require := require.New(t)

	registry := metric.NewRegistry()
	vm := newTestVM(t, registry)
	handler, err := newHandler(context.Background(), vm, registry, []string{"*"})
	require.NoError(err)

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + healthPath)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	var reply struct {
		Healthy bool `json:"healthy"`
	}
	require.NoError(json.NewDecoder(resp.Body).Decode(&reply))
	require.True(reply.Healthy)

	metricsResp, err := http.Get(server.URL + metricsPath)
	require.NoError(err)
	defer metricsResp.Body.Close()
	require.Equal(http.StatusOK, metricsResp.StatusCode)
}

func TestBuildBlocksStopsOnCancel(t *testing.T) {
	vm := newTestVM(t, metric.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- buildBlocks(ctx, log.NewNoOpLogger(), vm, time.Millisecond)
	}()

	// Empty mempool ticks are skipped.
	time.Sleep(10 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Zero(t, vm.Height())
}

func TestParseFlags(t *testing.T) {
	require := require.New(t)

	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(os.WriteFile(genesisPath, []byte(`{"timestamp":1}`), 0o600))

	cmd := Command()
	cfg, err := ParseFlags(cmd.Flags(), []string{
		"--" + GenesisFileKey, genesisPath,
		"--" + HTTPPortKey, "9999",
		"--" + BlockIntervalKey, "250ms",
	})
	require.NoError(err)
	require.Equal("127.0.0.1:9999", cfg.HTTPAddress)
	require.Equal(250*time.Millisecond, cfg.BlockInterval)
	require.Equal([]string{"*"}, cfg.AllowedOrigins)
	require.Empty(cfg.DBDir)
}

func TestParseFlagsErrors(t *testing.T) {
	genesisPath := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(genesisPath, []byte(`{}`), 0o600))

	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "missing genesis",
			args:        nil,
			expectedErr: errMissingGenesis,
		},
		{
			name: "zero block interval",
			args: []string{
				"--" + GenesisFileKey, genesisPath,
				"--" + BlockIntervalKey, "0s",
			},
			expectedErr: errNonPositiveBlock,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseFlags(Command().Flags(), test.args)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestOpenDB(t *testing.T) {
	require := require.New(t)

	db, err := openDB("")
	require.NoError(err)
	require.NoError(db.Put([]byte("k"), []byte("v")))
	require.NoError(db.Close())

	db, err = openDB(t.TempDir())
	require.NoError(err)
	require.NoError(db.Put([]byte("k"), []byte("v")))
	v, err := db.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), v)
	require.NoError(db.Close())
}

func TestServeClosesDBOnInitializeFailure(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	err := Serve(context.Background(), log.NewNoOpLogger(), &Config{
		HTTPAddress:   "127.0.0.1:0",
		GenesisBytes:  []byte("{"),
		DBDir:         dir,
		BlockInterval: time.Second,
	})
	require.ErrorContains(err, "failed to parse genesis")

	// The directory lock was released.
	db, err := openDB(dir)
	require.NoError(err)
	require.NoError(db.Close())
}
