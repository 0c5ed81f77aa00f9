package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/transcript-registry-backend/api/handlers"
	"github.com/ruteri/transcript-registry-backend/api/servers"
	"github.com/ruteri/transcript-registry-backend/cmd/flags"
	"github.com/ruteri/transcript-registry-backend/credentials"
	"github.com/ruteri/transcript-registry-backend/institutions"
	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metadata"
	"github.com/ruteri/transcript-registry-backend/registry"
	"github.com/ruteri/transcript-registry-backend/storage"
	"github.com/ruteri/transcript-registry-backend/verification"
)

func main() {
	app := &cli.App{
		Name:   "transcript-registry-server",
		Usage:  "Serve the transcript issuance and verification API",
		Flags:  slices.Concat([]cli.Flag{flags.ConfigFileFlag, flags.RpcAddrFlag}, flags.ServerFlags, flags.LogFlags),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := cCtx.Context

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		logger.Error("Failed to load configuration", "err", err)
		return err
	}

	reg, ethClient, err := flags.OpenRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open registry", "err", err)
		return err
	}
	defer ethClient.Close()

	store, err := metadata.Open(cfg.MetadataDialect, cfg.MetadataDSN, logger)
	if err != nil {
		logger.Error("Failed to open metadata store", "err", err)
		return err
	}
	defer store.Close()

	institutionAddr, err := cfg.InstitutionRegistryAddress()
	if err != nil {
		return err
	}
	scanner := registry.NewEventScanDirectory(ethClient, reg, institutionAddr, cfg.ScanStartBlock, cfg.ScanChunkSize, logger)
	var directory interfaces.InstitutionDirectory = scanner
	var cached *registry.CachedDirectory
	if cfg.DirectoryCachePath != "" {
		cached, err = registry.OpenCachedDirectory(cfg.DirectoryCachePath, scanner, logger)
		if err != nil {
			logger.Error("Failed to open directory cache", "err", err)
			return err
		}
		defer cached.Close()
		directory = cached
	}

	// Without a signer the server still verifies, but cannot issue or run admin actions.
	signer, canSign := reg.Signer()
	var issuer *credentials.Issuer
	if canSign {
		pinner, err := storage.NewPinnerFactory(logger).PinnerFor(cfg.PinningURI, cfg.PinnerOptions())
		if err != nil {
			logger.Error("Failed to create pinner", "uri", cfg.PinningURI, "err", err)
			return err
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if !pinner.Available(checkCtx) {
			logger.Warn("Pinning backend is not reachable, issuance will fail until it is", "backend", pinner.Name())
		}
		cancel()
		issuer = credentials.NewIssuer(reg, pinner, store, signer, logger)
	} else {
		logger.Warn("No signer key configured, serving verification only")
	}

	verifier := verification.NewVerifier(reg, store, verification.VerifierOpts{
		PublicBaseURL: cfg.PublicBaseURL,
		GatewayURL:    cfg.GatewayURL,
	}, logger)

	admin := cfg.Admin()
	if admin == (common.Address{}) {
		logger.Warn("No admin address configured, institution admin actions are disabled")
	}
	lifecycle := institutions.NewLifecycle(reg, store, directory, institutions.StaticAdmin(admin), logger)

	issuers, err := cfg.Issuers()
	if err != nil {
		return err
	}
	handler := handlers.NewHandler(issuer, verifier, lifecycle, handlers.HandlerOpts{
		Operator:      signer,
		Issuers:       issuers,
		MaxUploadSize: cfg.MaxUploadSize,
	}, logger)
	server, err := servers.New(flags.ConfigureServer(cCtx, logger), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	m := server.Metrics()
	reg.SetMetrics(m)
	verifier.SetMetrics(m)
	lifecycle.SetMetrics(m)
	if issuer != nil {
		issuer.SetMetrics(m)
	}
	if cached != nil {
		cached.SetMetrics(m)
	}

	server.RunInBackground()

	// Wait for termination signal
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}
