// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package serve runs an agent VM behind an HTTP server and builds blocks
// from its mempool on a fixed interval.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/agentvm/vms/agentvm"
	"github.com/luxfi/agentvm/vms/agentvm/config"
	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

const (
	rpcPath           = "/ext/agentvm"
	healthPath        = "/ext/health"
	metricsPath       = "/ext/metrics"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs the agent VM behind an HTTP server",
		RunE:  serveFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	cfg, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, log.NewLogger("agentvm"), cfg)
}

// Serve blocks until ctx is cancelled or the HTTP server fails.
func Serve(ctx context.Context, logger log.Logger, cfg *Config) error {
	db, err := openDB(cfg.DBDir)
	if err != nil {
		return err
	}

	vm := agentvm.New(config.DefaultConfig(), logger)
	registry, err := newRegistry()
	if err == nil {
		err = vm.Initialize(ctx, db, cfg.GenesisBytes, cfg.ConfigBytes, registry)
	}
	if err != nil {
		return errors.Join(err, db.Close())
	}
	defer func() {
		if err := vm.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down VM", log.Err(err))
		}
	}()

	handler, err := newHandler(ctx, vm, registry, cfg.AllowedOrigins)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving agent VM", log.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return buildBlocks(ctx, logger, vm, cfg.BlockInterval)
	})
	return g.Wait()
}

func newRegistry() (metric.Registry, error) {
	registry := metric.NewRegistry()
	err := errors.Join(
		registry.Register(metric.NewProcessCollector(metric.ProcessCollectorOpts{})),
		registry.Register(metric.NewGoCollector()),
	)
	return registry, err
}

func openDB(dir string) (database.Database, error) {
	if dir == "" {
		return memdb.New(), nil
	}
	return badgerdb.New(dir, nil, "", nil)
}

func newHandler(
	ctx context.Context,
	vm *agentvm.VM,
	registry metric.Registry,
	allowedOrigins []string,
) (http.Handler, error) {
	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	for extension, handler := range handlers {
		router.Handle(rpcPath+extension, handler)
	}
	router.Handle(metricsPath, metric.HTTPHandler(registry, metric.HTTPHandlerOpts{}))
	router.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		details, err := vm.HealthCheck(r.Context())
		reply := map[string]interface{}{
			"healthy": err == nil,
			"details": details,
		}
		if err != nil {
			reply["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(router), nil
}

func buildBlocks(ctx context.Context, logger log.Logger, vm *agentvm.VM, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		result, err := vm.BuildBlock(ctx)
		switch {
		case errors.Is(err, agentvm.ErrNoPendingTxs):
			continue
		case err != nil:
			return err
		}
		logger.Debug("built block",
			log.Uint64("height", result.Height),
			log.Int("numTxs", len(result.Txs)),
		)
	}
}
