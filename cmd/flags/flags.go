package flags

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/transcript-registry-backend/api"
	"github.com/ruteri/transcript-registry-backend/common"
	"github.com/ruteri/transcript-registry-backend/config"
	"github.com/ruteri/transcript-registry-backend/registry"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadConfig reads the --config file and TRV_* environment, then applies the
// command line overrides that were set explicitly.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cCtx.String(ConfigFileFlag.Name))
	if err != nil {
		return nil, err
	}
	if cCtx.IsSet(RpcAddrFlag.Name) {
		cfg.RPCURL = cCtx.String(RpcAddrFlag.Name)
	}
	if cfg.RPCURL == "" {
		cfg.RPCURL = RpcAddrFlag.Value
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// OpenRegistry dials the RPC endpoint and binds both registry contracts. When
// a signer key is configured the client can also send transactions; the chain
// ID is queried from the node unless configured.
func OpenRegistry(ctx context.Context, cfg *config.Config, log *slog.Logger) (*registry.OnchainRegistryClient, *ethclient.Client, error) {
	log.Info("Connecting to Ethereum RPC", "address", cfg.RPCURL)
	ethClient, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	institutionAddr, err := cfg.InstitutionRegistryAddress()
	if err != nil {
		return nil, nil, err
	}
	transcriptAddr, err := cfg.TranscriptRegistryAddress()
	if err != nil {
		return nil, nil, err
	}

	client, err := registry.NewOnchainRegistryClient(ethClient, ethClient, institutionAddr, transcriptAddr, log)
	if err != nil {
		return nil, nil, err
	}

	if cfg.SignerKey != "" {
		chainID := new(big.Int).SetUint64(cfg.ChainID)
		if cfg.ChainID == 0 {
			chainID, err = ethClient.ChainID(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to query chain id: %w", err)
			}
		}
		auth, err := registry.NewTransactOpts(cfg.SignerKey, chainID)
		if err != nil {
			return nil, nil, err
		}
		client.SetTransactOpts(auth)
		log.Info("Signer configured", "address", auth.From.Hex(), "chainId", chainID)
	}
	return client, ethClient, nil
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "YAML configuration file; TRV_* environment variables override it",
	EnvVars: []string{"TRV_CONFIG"},
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Value: "http://127.0.0.1:8545",
	Usage: "address to connect to RPC (overrides rpcUrl from config)",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
