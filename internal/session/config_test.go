package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
server {
  address    = "0.0.0.0"
  log_level  = "debug"
  admin_port = 8090
}

game "holdem" {
  rounds         = 4
  private_cards  = [2, 0, 0, 0]
  public_cards   = [0, 3, 1, 1]
  bets           = [2, 2, 4, 4]
  bets_per_round = [3, 4, 4, 4]
  blinds         = [1, 2]
  reverse_blinds = true
  min_players    = 2
  max_players    = 2
  num_hands      = 500
}

session "main" {
  game = "holdem"
  port = 9000
}

session "alt" {
  game = "holdem"
  port = 9001
  seed = 7
  run_once = true
}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feltserver.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleHCL))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 8090, cfg.Server.AdminPort)
	// Unset settings fall back to defaults.
	assert.Equal(t, "logs", cfg.Server.LogDir)
	assert.Equal(t, 10000, cfg.Server.BotPortBase)
	assert.Equal(t, 120, cfg.Server.BotDialSecs)
	assert.Equal(t, 600, cfg.Server.ActionTimeSecs)

	require.Len(t, cfg.Games, 1)
	def, err := cfg.GameDefinition("holdem")
	require.NoError(t, err)
	assert.Equal(t, 500, def.NumHands)
	assert.True(t, def.ReverseBlinds)
	assert.False(t, def.NoLimit)

	require.Len(t, cfg.Sessions, 2)
	assert.Equal(t, int64(7), cfg.Sessions[1].Seed)
	assert.True(t, cfg.Sessions[1].RunOnce)

	_, err = cfg.GameDefinition("omaha")
	assert.Error(t, err)
}

func TestLoadConfigMissingFileUsesDefault(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "main", cfg.Sessions[0].Name)
	assert.Equal(t, "holdem", cfg.Sessions[0].Game)
}

func TestLoadConfigParseError(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server {"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, sampleHCL))
		require.NoError(t, err)
		return cfg
	}

	t.Run("no sessions", func(t *testing.T) {
		cfg := base()
		cfg.Sessions = nil
		assert.ErrorContains(t, cfg.Validate(), "no sessions")
	})
	t.Run("duplicate game", func(t *testing.T) {
		cfg := base()
		cfg.Games = append(cfg.Games, cfg.Games[0])
		assert.ErrorContains(t, cfg.Validate(), "duplicate game")
	})
	t.Run("duplicate session", func(t *testing.T) {
		cfg := base()
		cfg.Sessions[1].Name = "main"
		cfg.Sessions[1].Port = 9002
		assert.ErrorContains(t, cfg.Validate(), "duplicate session")
	})
	t.Run("unknown game", func(t *testing.T) {
		cfg := base()
		cfg.Sessions[0].Game = "omaha"
		assert.ErrorContains(t, cfg.Validate(), "unknown game")
	})
	t.Run("port conflict", func(t *testing.T) {
		cfg := base()
		cfg.Sessions[1].Port = cfg.Sessions[0].Port
		assert.ErrorContains(t, cfg.Validate(), "share port")
	})
	t.Run("admin port collision", func(t *testing.T) {
		cfg := base()
		cfg.Sessions[0].Port = cfg.Server.AdminPort
		assert.ErrorContains(t, cfg.Validate(), "admin port")
	})
	t.Run("bad game rules", func(t *testing.T) {
		cfg := base()
		cfg.Games[0].Blinds = nil
		assert.Error(t, cfg.Validate())
	})
}
