package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  listen_addr  = ":9000"
  metrics_addr = ":9100"
  admin_token  = "hunter2"
}

history {
  dir     = "hands"
  phh_dir = "hands/phh"
}

table "main-1" {
  small_blind = 1
  big_blind   = 2
}

table "turbo" {
  small_blind = 5
  big_blind   = 10
  fast_fold   = true
  buy_in      = 1000
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, ":9100", cfg.Server.MetricsAddr)
	assert.Equal(t, "hunter2", cfg.Server.AdminToken)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	require.NotNil(t, cfg.History)
	assert.Equal(t, "hands", cfg.History.Dir)
	assert.Equal(t, "hands/phh", cfg.History.PHHDir)
	assert.Equal(t, 10*time.Second, cfg.History.FlushEvery())
	assert.Equal(t, 256, cfg.History.QueueSize)

	require.Len(t, cfg.Tables, 2)
	assert.Equal(t, "main-1", cfg.Tables[0].Name)
	assert.False(t, cfg.Tables[0].FastFold)
	assert.Equal(t, "turbo", cfg.Tables[1].Name)
	assert.True(t, cfg.Tables[1].FastFold)
	assert.Equal(t, 1000, cfg.Tables[1].BuyIn)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	require.Len(t, cfg.Tables, 1)
	assert.Nil(t, cfg.History)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no tables", `server {}`},
		{"zero small blind", `
table "x" {
  small_blind = 0
  big_blind   = 2
}`},
		{"inverted blinds", `
table "x" {
  small_blind = 5
  big_blind   = 2
}`},
		{"duplicate names", `
table "x" {
  small_blind = 1
  big_blind   = 2
}
table "x" {
  small_blind = 1
  big_blind   = 2
}`},
		{"negative buy-in", `
table "x" {
  small_blind = 1
  big_blind   = 2
  buy_in      = -5
}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
