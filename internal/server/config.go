package server

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration, decoded from an HCL file.
type Config struct {
	Server  ServerSettings   `hcl:"server,block"`
	History *HistorySettings `hcl:"history,block"`
	Tables  []TableSettings  `hcl:"table,block"`
}

// ServerSettings contains process-level configuration.
type ServerSettings struct {
	ListenAddr  string `hcl:"listen_addr,optional"`
	MetricsAddr string `hcl:"metrics_addr,optional"`
	AdminToken  string `hcl:"admin_token,optional"`
	LogLevel    string `hcl:"log_level,optional"`
}

// HistorySettings configures hand history persistence. An absent block, or
// one with no dir, PHH dir, or DSN, disables recording.
type HistorySettings struct {
	Dir           string `hcl:"dir,optional"`
	PHHDir        string `hcl:"phh_dir,optional"`
	PostgresDSN   string `hcl:"postgres_dsn,optional"`
	FlushInterval int    `hcl:"flush_interval,optional"` // seconds
	QueueSize     int    `hcl:"queue_size,optional"`
}

// FlushEvery returns the flush interval as a duration.
func (h *HistorySettings) FlushEvery() time.Duration {
	return time.Duration(h.FlushInterval) * time.Second
}

// TableSettings defines one table.
type TableSettings struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	FastFold   bool   `hcl:"fast_fold,optional"`
	BuyIn      int    `hcl:"buy_in,optional"`
}

// DefaultConfig returns the configuration used when no file is given: one
// regular 1/2 table on the default ports.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			ListenAddr:  ":8080",
			MetricsAddr: ":9091",
			LogLevel:    "info",
		},
		Tables: []TableSettings{
			{Name: "main", SmallBlind: 1, BigBlind: 2},
		},
	}
}

// LoadConfig parses and validates an HCL config file. An empty filename
// yields DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8080"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.History != nil {
		if config.History.FlushInterval <= 0 {
			config.History.FlushInterval = 10
		}
		if config.History.QueueSize <= 0 {
			config.History.QueueSize = 256
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	seen := make(map[string]bool)
	for _, table := range c.Tables {
		if table.Name == "" {
			return fmt.Errorf("table name must not be empty")
		}
		if seen[table.Name] {
			return fmt.Errorf("table %s: duplicate name", table.Name)
		}
		seen[table.Name] = true
		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if table.BuyIn < 0 {
			return fmt.Errorf("table %s: buy-in must not be negative", table.Name)
		}
	}
	return nil
}
