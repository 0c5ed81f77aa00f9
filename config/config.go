package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ruteri/transcript-registry-backend/interfaces"
	"github.com/ruteri/transcript-registry-backend/metadata"
	"github.com/ruteri/transcript-registry-backend/registry"
	"github.com/ruteri/transcript-registry-backend/storage"
)

// EnvPrefix prefixes every environment variable, e.g. TRV_RPC_URL.
const EnvPrefix = "trv"

var ErrMissingSetting = errors.New("missing required setting")

// Config is the backend configuration. Values are read from an optional YAML
// file first and then overridden by TRV_* environment variables.
type Config struct {
	RPCURL    string `yaml:"rpcUrl"    envconfig:"RPC_URL"`
	ChainID   uint64 `yaml:"chainId"   split_words:"true"`
	SignerKey string `yaml:"signerKey" split_words:"true"`

	AdminAddress        string `yaml:"adminAddress"        split_words:"true"`
	InstitutionRegistry string `yaml:"institutionRegistry" split_words:"true"`
	TranscriptRegistry  string `yaml:"transcriptRegistry"  split_words:"true"`

	// IssuerAddresses may sign issuance, revocation and registration requests
	// besides the signer key.
	IssuerAddresses []string `yaml:"issuerAddresses" split_words:"true"`

	ScanStartBlock     uint64 `yaml:"scanStartBlock"     split_words:"true"`
	ScanChunkSize      uint64 `yaml:"scanChunkSize"      split_words:"true"`
	DirectoryCachePath string `yaml:"directoryCachePath" split_words:"true"`

	PinningURI    string `yaml:"pinningUri"    envconfig:"PINNING_URI"`
	PinataJWT     string `yaml:"pinataJwt"     envconfig:"PINATA_JWT"`
	GatewayURL    string `yaml:"gatewayUrl"    envconfig:"GATEWAY_URL"`
	MaxUploadSize int64  `yaml:"maxUploadSize" split_words:"true"`

	MetadataDialect string `yaml:"metadataDialect" split_words:"true"`
	MetadataDSN     string `yaml:"metadataDsn"     envconfig:"METADATA_DSN"`

	PublicBaseURL string `yaml:"publicBaseUrl" envconfig:"PUBLIC_BASE_URL"`
}

// Default returns the configuration used when nothing overrides a field.
func Default() *Config {
	return &Config{
		ScanChunkSize:   registry.DefaultScanChunkSize,
		PinningURI:      "pinata://",
		GatewayURL:      storage.DefaultPinataGateway,
		MaxUploadSize:   storage.DefaultMaxUploadSize,
		MetadataDialect: metadata.DialectSQLite,
		MetadataDSN:     "metadata.sqlite",
	}
}

// Load reads configFile (if not empty) over the defaults, then applies the environment.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%w: rpc url", ErrMissingSetting)
	}
	if _, err := c.InstitutionRegistryAddress(); err != nil {
		return err
	}
	if _, err := c.TranscriptRegistryAddress(); err != nil {
		return err
	}
	if c.AdminAddress != "" {
		if _, err := interfaces.ParseAddress(c.AdminAddress); err != nil {
			return fmt.Errorf("admin address: %w", err)
		}
	}
	if _, err := c.Issuers(); err != nil {
		return err
	}
	if c.ScanChunkSize == 0 {
		return fmt.Errorf("%w: scan chunk size must be positive", interfaces.ErrInvalidInput)
	}
	return nil
}

func (c *Config) InstitutionRegistryAddress() (common.Address, error) {
	return requiredAddress("institution registry", c.InstitutionRegistry)
}

func (c *Config) TranscriptRegistryAddress() (common.Address, error) {
	return requiredAddress("transcript registry", c.TranscriptRegistry)
}

// Admin returns the configured admin address, zero when unset.
func (c *Config) Admin() common.Address {
	addr, _ := interfaces.ParseAddress(c.AdminAddress)
	return addr
}

// Issuers parses IssuerAddresses.
func (c *Config) Issuers() ([]common.Address, error) {
	issuers := make([]common.Address, 0, len(c.IssuerAddresses))
	for _, s := range c.IssuerAddresses {
		addr, err := interfaces.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("issuer address: %w", err)
		}
		issuers = append(issuers, addr)
	}
	return issuers, nil
}

func requiredAddress(name, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%w: %s address", ErrMissingSetting, name)
	}
	addr, err := interfaces.ParseAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s address: %w", name, err)
	}
	return addr, nil
}

// PinnerOptions maps the pinning settings onto storage.PinnerOptions.
func (c *Config) PinnerOptions() storage.PinnerOptions {
	return storage.PinnerOptions{
		PinataJWT:     c.PinataJWT,
		GatewayURL:    c.GatewayURL,
		MaxUploadSize: c.MaxUploadSize,
	}
}
