// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/database/memdb"
	luxlog "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/config"
	"github.com/luxfi/transform/gateway"
	"github.com/luxfi/transform/healthcheck"
	"github.com/luxfi/transform/ledger"
	"github.com/luxfi/transform/query"
)

var version = "v0.0.0-dev"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg := buildConfig()

	logger := luxlog.NewLogger("transformd")
	logger.Info("Initializing transformd", luxlog.String("version", version))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	verifier, err := transform.NewProofVerifier(cfg.RecoverCacheSize, cfg.GetTrustedSigners()...)
	if err != nil {
		logger.Error("Failed to create proof verifier", luxlog.Err(err))
		os.Exit(1)
	}
	if len(cfg.GetTrustedSigners()) == 0 {
		logger.Warn("No trusted signers configured, any valid signature is accepted")
	}

	l, err := ledger.New(memdb.New(), ledger.Config{
		Denom:      cfg.BackingDenom,
		Verifier:   verifier,
		Genesis:    cfg.GetGenesis(),
		Log:        logger,
		Registerer: registry,
	})
	if err != nil {
		logger.Error("Failed to create ledger", luxlog.Err(err))
		os.Exit(1)
	}

	router := mux.NewRouter()
	gateway.RegisterRoutes(router, logger, gateway.New(logger, l, cfg.GetWallets()))
	query.NewService(logger, l).RegisterRoutes(router)
	healthcheck.RegisterRoutes(router, l)

	metricsRouter := http.NewServeMux()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errGroup, ctx := errgroup.WithContext(ctx)

	logger.Info("Initialization complete",
		luxlog.Int("apiPort", int(cfg.APIPort)),
		luxlog.Int("metricsPort", int(cfg.MetricsPort)),
	)
	errGroup.Go(func() error {
		return serve(ctx, logger, "api", cfg.APIPort, router)
	})
	errGroup.Go(func() error {
		return serve(ctx, logger, "metrics", cfg.MetricsPort, metricsRouter)
	})

	if err := errGroup.Wait(); err != nil {
		logger.Error("Exited with error", luxlog.Err(err))
		os.Exit(1)
	}
	logger.Info("Shut down")
}

// serve runs an HTTP server on port until ctx is done
func serve(ctx context.Context, logger luxlog.Logger, name string, port uint16, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down server", luxlog.String("server", name), luxlog.Err(err))
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s server: %w", name, err)
	}
	return nil
}

// buildConfig parses the flags and builds the config
// Errors here should call log.Fatalf to exit the program
// since these errors are prior to building the logger struct
func buildConfig() config.Config {
	fs := config.BuildFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		config.DisplayUsageText()
		log.Fatalf("Failed to parse flags: %s", err)
	}

	displayVersion, err := fs.GetBool(config.VersionKey)
	if err != nil {
		log.Fatalf("error reading %s flag: %s", config.VersionKey, err)
	}
	if displayVersion {
		fmt.Printf("%s\n", version)
		os.Exit(0)
	}

	help, err := fs.GetBool(config.HelpKey)
	if err != nil {
		log.Fatalf("error reading %s flag value: %s", config.HelpKey, err)
	}
	if help {
		config.DisplayUsageText()
		os.Exit(0)
	}
	v, err := config.BuildViper(fs)
	if err != nil {
		log.Fatalf("couldn't configure flags: %s", err)
	}

	cfg, err := config.NewConfig(v)
	if err != nil {
		log.Fatalf("couldn't build config: %s", err)
	}
	return cfg
}
