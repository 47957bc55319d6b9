// Package config loads the engine's runtime configuration: the
// chain-specific constants cmd/sniper needs to build every other
// package's dependencies (Weth/ProbeAddress/ChainID, the probe and bot
// wallet keys, relay endpoints, the Mongo repository's connection
// string), decoded from a TOML file with naoina/toml the way the
// teacher's own cmd/geth config layer does, then overridden by a small
// set of secret-bearing environment variables so private keys never
// have to sit in a checked-in file.
package config

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/naoina/toml"

	"github.com/szkkteam/go-sniper/flashbotsrelay"
	"github.com/szkkteam/go-sniper/forkvm"
)

// envWSSProvider overrides RPC.WSSProvider; envFlashbotsSigner overrides
// FlashbotsSignerKey. Both carry secrets an operator should never have
// to commit to the TOML file itself.
const (
	envWSSProvider     = "ETHERS_WSS_PROVIDER"
	envFlashbotsSigner = "ETHERS_FLASHBOTS_SIGNER"
)

// tomlSettings mirrors the teacher's own cmd/geth decoder: missing
// fields are fine, unknown fields are rejected so a typo'd key in the
// config file fails loudly instead of silently being ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, field string) string { return field },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("config: field %q is not defined in %s", field, rt.String())
	},
}

// RPCConfig names the node endpoints the engine reads chain state from.
type RPCConfig struct {
	// WSSProvider is a websocket endpoint; dialed with
	// ethclient.DialContext it satisfies block.HeadSource. ethclient has
	// no method of mempool.PendingTxSource's shape, and cmd/sniper does
	// not read this field. Overridable by ETHERS_WSS_PROVIDER.
	WSSProvider string
}

// RelayConfig names one bundle relay/builder endpoint.
type RelayConfig struct {
	Name     string
	Endpoint string
}

// MongoConfig names the Repository's backing store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Config is the fully decoded, environment-overridden configuration
// cmd/sniper builds every other package's dependencies from.
type Config struct {
	ChainID int64

	Weth            common.Address
	WethBalanceSlot uint64

	ProbeAddress  common.Address
	ProbeWalletHex string
	ProbeGasLimit uint64
	NumBotWallets uint8

	BotWalletHexKeys []string

	RPC RPCConfig

	// Relays overrides flashbotsrelay.DefaultEndpoints when non-empty.
	Relays []RelayConfig
	// FlashbotsSignerKey is the reputation key every bundle submission
	// is signed with (spec §4.8). Overridable by ETHERS_FLASHBOTS_SIGNER.
	FlashbotsSignerKey string

	Mongo MongoConfig
}

// Load decodes path as TOML into a Config and applies the environment
// overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envWSSProvider); v != "" {
		c.RPC.WSSProvider = v
	}
	if v := os.Getenv(envFlashbotsSigner); v != "" {
		c.FlashbotsSignerKey = v
	}
}

// ProbeWallet derives a forkvm.ProbeWallet from the configured hex key.
func (c *Config) ProbeWallet() (forkvm.ProbeWallet, error) {
	key, err := crypto.HexToECDSA(c.ProbeWalletHex)
	if err != nil {
		return forkvm.ProbeWallet{}, fmt.Errorf("config: probe wallet key: %w", err)
	}
	return forkvm.NewProbeWallet(key), nil
}

// ChainIDBig returns ChainID as a *big.Int, the form every signer in
// the engine expects.
func (c *Config) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// RelayEndpoints returns the configured relay name/endpoint pairs, or
// flashbotsrelay.DefaultEndpoints if none were configured.
func (c *Config) RelayEndpoints() map[string]string {
	if len(c.Relays) == 0 {
		return flashbotsrelay.DefaultEndpoints
	}
	endpoints := make(map[string]string, len(c.Relays))
	for _, r := range c.Relays {
		endpoints[r.Name] = r.Endpoint
	}
	return endpoints
}

// FlashbotsKey parses the configured reputation signer key.
func (c *Config) FlashbotsKey() (*ecdsa.PrivateKey, error) {
	if c.FlashbotsSignerKey == "" {
		return nil, errors.New("config: flashbots signer key not set")
	}
	key, err := crypto.HexToECDSA(c.FlashbotsSignerKey)
	if err != nil {
		return nil, fmt.Errorf("config: flashbots signer key: %w", err)
	}
	return key, nil
}
