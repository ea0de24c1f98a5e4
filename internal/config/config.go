// Package config loads the gateway configuration and API credentials from
// two JSON files: settings and keys stay separate so key files can be
// permissioned independently.
package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"quantgo/pkg/logger"
)

// ErrConfig marks a fatal startup configuration problem.
var ErrConfig = errors.New("invalid configuration")

const (
	defaultHost = "https://api.binance.com"
	defaultWss  = "wss://stream.binance.com:9443"
	testnetHost = "https://testnet.binance.vision"
	testnetWss  = "wss://testnet.binance.vision"
)

type DingTalkConfig struct {
	AccessToken string `mapstructure:"access_token"`
}

type WatchConfig struct {
	// Levels are price thresholds as decimal strings.
	Levels []string `mapstructure:"levels"`
}

// Config is the full enumerated configuration; unknown keys in the file are
// a hard error rather than silently accepted.
type Config struct {
	ServerID string `mapstructure:"server_id"`
	Account  string `mapstructure:"account"`
	Strategy string `mapstructure:"strategy"`
	Platform string `mapstructure:"platform"`
	Symbol   string `mapstructure:"symbol"`
	Interval string `mapstructure:"interval"`
	Testnet  bool   `mapstructure:"testnet"`
	Host     string `mapstructure:"host"`
	Wss      string `mapstructure:"wss"`

	Log      logger.Config  `mapstructure:"log"`
	DingTalk DingTalkConfig `mapstructure:"dingtalk"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// Credentials are one exchange API key pair.
type Credentials struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// WatchLevels parses the configured threshold strings.
func (c *Config) WatchLevels() ([]decimal.Decimal, error) {
	levels := make([]decimal.Decimal, 0, len(c.Watch.Levels))
	for _, raw := range c.Watch.Levels {
		level, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: watch level %q: %v", ErrConfig, raw, err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// Load reads the config file and the key file, applies defaults, and picks
// the credentials for the configured account (the testnet pair when Testnet
// is set).
func Load(configPath, keyPath string) (*Config, Credentials, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: read %s: %v", ErrConfig, configPath, err)
	}
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, configPath, err)
	}

	if cfg.Account == "" {
		return nil, Credentials{}, fmt.Errorf("%w: account missing", ErrConfig)
	}
	if cfg.Symbol == "" {
		return nil, Credentials{}, fmt.Errorf("%w: symbol missing", ErrConfig)
	}
	if cfg.Interval == "" {
		return nil, Credentials{}, fmt.Errorf("%w: interval missing", ErrConfig)
	}
	if cfg.Platform == "" {
		cfg.Platform = "binance"
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Wss == "" {
		cfg.Wss = defaultWss
	}
	if cfg.Testnet {
		cfg.Host = testnetHost
		cfg.Wss = testnetWss
	}

	creds, err := loadCredentials(keyPath, cfg.Account, cfg.Testnet)
	if err != nil {
		return nil, Credentials{}, err
	}
	return &cfg, creds, nil
}

func loadCredentials(keyPath, account string, testnet bool) (Credentials, error) {
	kv := viper.New()
	kv.SetConfigFile(keyPath)
	if err := kv.ReadInConfig(); err != nil {
		return Credentials{}, fmt.Errorf("%w: read %s: %v", ErrConfig, keyPath, err)
	}

	// account -> platform -> key pair
	var ring map[string]map[string]Credentials
	if err := kv.Unmarshal(&ring); err != nil {
		return Credentials{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, keyPath, err)
	}

	platforms, ok := ring[account]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: no keys for account %q", ErrConfig, account)
	}
	name := "binance"
	if testnet {
		name = "testnet"
	}
	creds, ok := platforms[name]
	if !ok || creds.AccessKey == "" || creds.SecretKey == "" {
		return Credentials{}, fmt.Errorf("%w: incomplete %s keys for account %q", ErrConfig, name, account)
	}
	return creds, nil
}
