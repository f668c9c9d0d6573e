// Package config loads the todo ledger configuration from an optional YAML
// file and TODO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todo-ledger/bitcoin"
	"todo-ledger/core/token"
	"todo-ledger/keys"
	"todo-ledger/lifecycle"
)

const (
	DriverMemory = "memory"
	DriverHTTP   = "http"
)

// Config is the complete runtime configuration.
type Config struct {
	Network        string        `yaml:"network"`
	Driver         string        `yaml:"driver"`
	BridgeURL      string        `yaml:"bridge_url"`
	WalletURL      string        `yaml:"wallet_url"`
	RootKey        string        `yaml:"root_key"`
	ProtocolID     string        `yaml:"protocol_id"`
	KeyID          string        `yaml:"key_id"`
	Namespace      string        `yaml:"namespace"`
	MinAmount      int64         `yaml:"min_amount"`
	DecryptWorkers int           `yaml:"decrypt_workers"`
	ResyncInterval time.Duration `yaml:"resync_interval"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	DiagnosticsDSN string        `yaml:"diagnostics_dsn"`
	MetricsAddr    string        `yaml:"metrics_addr"`
}

// Load reads path (skipped when empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TODO_NETWORK", &c.Network)
	str("TODO_DRIVER", &c.Driver)
	str("TODO_BRIDGE_URL", &c.BridgeURL)
	str("TODO_WALLET_URL", &c.WalletURL)
	str("TODO_ROOT_KEY", &c.RootKey)
	str("TODO_PROTOCOL_ID", &c.ProtocolID)
	str("TODO_KEY_ID", &c.KeyID)
	str("TODO_NAMESPACE", &c.Namespace)
	str("TODO_DIAGNOSTICS_DSN", &c.DiagnosticsDSN)
	str("TODO_METRICS_ADDR", &c.MetricsAddr)

	if v, ok := lookup("TODO_MIN_AMOUNT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TODO_MIN_AMOUNT: %w", err)
		}
		c.MinAmount = n
	}
	if v, ok := lookup("TODO_DECRYPT_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_DECRYPT_WORKERS: %w", err)
		}
		c.DecryptWorkers = n
	}
	for key, dst := range map[string]*time.Duration{
		"TODO_RESYNC_INTERVAL": &c.ResyncInterval,
		"TODO_HTTP_TIMEOUT":    &c.HTTPTimeout,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) defaults() error {
	if c.Network == "" {
		c.Network = "mainnet"
	}
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	net, err := bitcoin.GetNetworkConfig(c.Network)
	if err != nil {
		return err
	}
	if c.BridgeURL == "" {
		c.BridgeURL = net.BridgeURL
	}
	if c.WalletURL == "" {
		c.WalletURL = net.WalletURL
	}
	if c.ProtocolID == "" {
		c.ProtocolID = token.DefaultScope.ProtocolID
	}
	if c.KeyID == "" {
		c.KeyID = token.DefaultScope.KeyID
	}
	if c.Namespace == "" {
		c.Namespace = string(token.DefaultNamespace)
	}
	if c.MinAmount == 0 {
		c.MinAmount = lifecycle.DefaultMinAmount
	}
	if c.DecryptWorkers == 0 {
		c.DecryptWorkers = 4
	}
	if c.ResyncInterval == 0 {
		c.ResyncInterval = 30 * time.Second
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverHTTP:
		if c.RootKey == "" {
			return errors.New("root_key is required for the http driver")
		}
		if c.BridgeURL == "" || c.WalletURL == "" {
			return errors.New("bridge_url and wallet_url are required for the http driver")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.RootKey != "" {
		if _, err := keys.ParseRootKey(c.RootKey); err != nil {
			return fmt.Errorf("root_key: %w", err)
		}
	}
	if c.MinAmount <= 0 {
		return fmt.Errorf("min_amount must be positive, got %d", c.MinAmount)
	}
	if c.DecryptWorkers <= 0 {
		return fmt.Errorf("decrypt_workers must be positive, got %d", c.DecryptWorkers)
	}
	if c.ResyncInterval < 0 || c.HTTPTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Scope is the key scope task payloads are sealed and locked under.
func (c *Config) Scope() token.Scope {
	return token.Scope{ProtocolID: c.ProtocolID, KeyID: c.KeyID}
}

// NamespaceMarker is the configured namespace as a script marker.
func (c *Config) NamespaceMarker() token.Namespace {
	return token.Namespace(c.Namespace)
}

// KeyProvider builds the key provider from root_key. With no root key a fresh
// one is generated, which only makes sense for the memory driver.
func (c *Config) KeyProvider() (*keys.RootKeyProvider, error) {
	if c.RootKey == "" {
		return keys.GenerateRootKeyProvider()
	}
	root, err := keys.ParseRootKey(c.RootKey)
	if err != nil {
		return nil, err
	}
	return keys.NewRootKeyProvider(root)
}
