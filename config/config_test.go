package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
ChainID = 1
Weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
WethBalanceSlot = 3
ProbeAddress = "0x00000000000000000000000000000000000000aa"
ProbeWalletHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"
ProbeGasLimit = 2000000
NumBotWallets = 1
BotWalletHexKeys = ["59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"]

[RPC]
WSSProvider = "ws://localhost:8546"

[Mongo]
URI = "mongodb://localhost:27017"
Database = "sniper"
Collection = "state"
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sniper.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))
	return path
}

func TestLoadDecodesTOML(t *testing.T) {
	path := writeSampleConfig(t)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 1, cfg.ChainID)
	require.Equal(t, "ws://localhost:8546", cfg.RPC.WSSProvider)
	require.Equal(t, "sniper", cfg.Mongo.Database)
	require.Equal(t, uint64(3), cfg.WethBalanceSlot)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeSampleConfig(t)

	t.Setenv(envWSSProvider, "ws://override:8546")
	t.Setenv(envFlashbotsSigner, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ws://override:8546", cfg.RPC.WSSProvider)
	require.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", cfg.FlashbotsSignerKey)
}

func TestRelayEndpointsDefaultsWhenUnconfigured(t *testing.T) {
	var cfg Config
	endpoints := cfg.RelayEndpoints()
	require.Contains(t, endpoints, "flashbots")
	require.Greater(t, len(endpoints), 1)
}

func TestRelayEndpointsHonorsOverride(t *testing.T) {
	cfg := Config{Relays: []RelayConfig{{Name: "custom", Endpoint: "https://example.test/bundle"}}}
	endpoints := cfg.RelayEndpoints()
	require.Equal(t, map[string]string{"custom": "https://example.test/bundle"}, endpoints)
}

func TestProbeWalletDerivesFromHexKey(t *testing.T) {
	cfg := Config{ProbeWalletHex: "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"}
	wallet, err := cfg.ProbeWallet()
	require.NoError(t, err)
	require.NotEqual(t, wallet.Address.Hex(), "0x0000000000000000000000000000000000000000")
}

func TestFlashbotsKeyErrorsWhenUnset(t *testing.T) {
	var cfg Config
	_, err := cfg.FlashbotsKey()
	require.Error(t, err)
}
