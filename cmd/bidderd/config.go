// config.go - Configuration management for the bidder daemon
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the daemon configuration
type Config struct {
	// Network
	ListenAddr string `json:"listen_addr"`
	GatewayURL string `json:"gateway_url"` // empty means in-process ledger
	ProofAPI   string `json:"proof_api"`   // empty means in-process prover

	// Identity
	Account    string   `json:"account"`
	Privileged []string `json:"privileged"`

	// File paths
	StoreDir string `json:"store_dir"`
	KeyDir   string `json:"key_dir"`

	// Metadata
	IPFSGateway string `json:"ipfs_gateway"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Rate limiting
	RateLimitBurst  int `json:"rate_limit_burst"`
	RateLimitRefill int `json:"rate_limit_refill"`

	// Security
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8480",
		GatewayURL:      "",
		ProofAPI:        "",
		Account:         "0x1",
		Privileged:      []string{"0x1"},
		StoreDir:        "wallets",
		KeyDir:          "keys",
		IPFSGateway:     "https://ipfs.io/ipfs/",
		LogLevel:        "info",
		LogFile:         "bidderd.log",
		RateLimitBurst:  20,
		RateLimitRefill: 5,
		EnableAudit:     true,
		AuditLogPath:    "audit.log",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.Account == "" {
		return fmt.Errorf("account must be set")
	}
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir must be set")
	}
	if c.ProofAPI == "" && c.KeyDir == "" {
		return fmt.Errorf("key_dir must be set when proving in-process")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive")
	}
	if c.RateLimitRefill <= 0 {
		return fmt.Errorf("rate_limit_refill must be positive")
	}
	return nil
}
