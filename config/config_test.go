package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint64(5000), cfg.ScanChunkSize)
	assert.Equal(t, "sqlite", cfg.MetadataDialect)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	yamlContent := `
rpcUrl: "http://127.0.0.1:8545"
chainId: 31337
adminAddress: "0x00000000000000000000000000000000000000AD"
issuerAddresses:
  - "0x00000000000000000000000000000000000000A1"
institutionRegistry: "0x0000000000000000000000000000000000001111"
transcriptRegistry: "0x0000000000000000000000000000000000002222"
scanStartBlock: 120
pinningUri: "ipfs://localhost:5001"
metadataDsn: "file:test.sqlite"
`
	tmpFile := filepath.Join(t.TempDir(), "trv.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(yamlContent), 0o644))

	t.Setenv("TRV_RPC_URL", "https://rpc.example")
	t.Setenv("TRV_SCAN_CHUNK_SIZE", "2000")
	t.Setenv("TRV_PINATA_JWT", "jwt-token")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://rpc.example", cfg.RPCURL)
	assert.Equal(t, uint64(31337), cfg.ChainID)
	assert.Equal(t, uint64(120), cfg.ScanStartBlock)
	assert.Equal(t, uint64(2000), cfg.ScanChunkSize)
	assert.Equal(t, "ipfs://localhost:5001", cfg.PinningURI)
	assert.Equal(t, "jwt-token", cfg.PinnerOptions().PinataJWT)
	assert.Equal(t, "file:test.sqlite", cfg.MetadataDSN)
	assert.Equal(t, common.HexToAddress("0xAD"), cfg.Admin())
	issuers, err := cfg.Issuers()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0xA1")}, issuers)

	addr, err := cfg.InstitutionRegistryAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1111"), addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSetting)

	cfg.RPCURL = "http://127.0.0.1:8545"
	cfg.InstitutionRegistry = "0x0000000000000000000000000000000000001111"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSetting)

	cfg.TranscriptRegistry = "not-an-address"
	assert.ErrorIs(t, cfg.Validate(), interfaces.ErrInvalidAddress)

	cfg.TranscriptRegistry = "0x0000000000000000000000000000000000002222"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, common.Address{}, cfg.Admin())

	cfg.AdminAddress = "0xAD"
	assert.ErrorIs(t, cfg.Validate(), interfaces.ErrInvalidAddress)

	cfg.AdminAddress = ""
	cfg.IssuerAddresses = []string{"0x00000000000000000000000000000000000000A1", "registrar"}
	assert.ErrorIs(t, cfg.Validate(), interfaces.ErrInvalidAddress)
}

func TestLoad_IssuersFromEnvironment(t *testing.T) {
	t.Setenv("TRV_ISSUER_ADDRESSES", "0x00000000000000000000000000000000000000A1,0x00000000000000000000000000000000000000A2")

	cfg, err := Load("")
	require.NoError(t, err)
	issuers, err := cfg.Issuers()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0xA1"), common.HexToAddress("0xA2")}, issuers)
}
