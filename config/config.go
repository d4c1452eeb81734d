// Package config loads the node's environment via viper: network identity,
// peer listener settings, and the DHT's bootstrap/black/persistent peer
// lists.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Env is the runtime configuration surface spec §6 describes.
type Env struct {
	PublicIp  string `mapstructure:"publicIp"`
	PeerPort  int    `mapstructure:"peerPort"`
	Magic     string `mapstructure:"magic"`
	NetVersion string `mapstructure:"netVersion"` // "mainnet" or "testnet"

	Peers struct {
		List       []string `mapstructure:"list"`
		BlackList  []string `mapstructure:"blackList"`
		Persistent []string `mapstructure:"persistent"`
	} `mapstructure:"peers"`

	DataDir   string `mapstructure:"dataDir"`
	AcquireIp bool   `mapstructure:"acquireip"`
}

// Load reads configFile (if it exists) plus SLOTBFT_-prefixed environment
// variable overrides into an Env, and validates it. A validation failure
// is ConfigInvalid — fatal, startup only.
func Load(configFile string) (*Env, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("SLOTBFT")
	v.AutomaticEnv()

	v.SetDefault("peerPort", 26700)
	v.SetDefault("netVersion", "testnet")
	v.SetDefault("dataDir", "./data")
	v.SetDefault("acquireip", false)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ConfigInvalid: reading config: %w", err)
		}
	}

	env := &Env{}
	if err := v.Unmarshal(env); err != nil {
		return nil, fmt.Errorf("ConfigInvalid: decoding config: %w", err)
	}

	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("ConfigInvalid: %w", err)
	}
	return env, nil
}

func (e *Env) Validate() error {
	if e.PeerPort <= 1 || e.PeerPort > 65535 {
		return fmt.Errorf("peerPort %d out of range", e.PeerPort)
	}
	if e.Magic == "" {
		return fmt.Errorf("magic must not be empty")
	}
	if e.NetVersion != "mainnet" && e.NetVersion != "testnet" {
		return fmt.Errorf("netVersion must be mainnet or testnet, got %q", e.NetVersion)
	}
	if e.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	return nil
}

// PeerRPCPort is the peer RPC listener's port, one below the DHT listener
// by contract.
func (e *Env) PeerRPCPort() int {
	return e.PeerPort - 1
}
