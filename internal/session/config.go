// Package session runs game sessions: it admits players over TCP, hands a
// full table to the game engine, snapshots state when a player drops, and
// resumes interrupted games.
package session

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/openfelt/feltserver/internal/game"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerSettings  `hcl:"server,block"`
	Games    []GameConfig    `hcl:"game,block"`
	Sessions []SessionConfig `hcl:"session,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	LogDir         string `hcl:"log_dir,optional"`
	SnapshotDir    string `hcl:"snapshot_dir,optional"`
	AdminPort      int    `hcl:"admin_port,optional"`
	BotPortBase    int    `hcl:"bot_port_base,optional"`
	BotDialSecs    int    `hcl:"bot_dial_timeout,optional"`
	ActionTimeSecs int    `hcl:"action_timeout,optional"`
}

// GameConfig defines the rules of one game type.
type GameConfig struct {
	Name          string `hcl:"name,label"`
	Rounds        int    `hcl:"rounds"`
	PrivateCards  []int  `hcl:"private_cards"`
	PublicCards   []int  `hcl:"public_cards"`
	Bets          []int  `hcl:"bets,optional"`
	BetsPerRound  []int  `hcl:"bets_per_round"`
	Blinds        []int  `hcl:"blinds"`
	NoLimit       bool   `hcl:"no_limit,optional"`
	ReverseBlinds bool   `hcl:"reverse_blinds,optional"`
	MinPlayers    int    `hcl:"min_players"`
	MaxPlayers    int    `hcl:"max_players"`
	NumHands      int    `hcl:"num_hands,optional"`
	StackSize     int    `hcl:"stack_size,optional"`
	SurveyURL     string `hcl:"survey_url,optional"`
}

// SessionConfig binds a game to a listening port.
type SessionConfig struct {
	Name    string `hcl:"name,label"`
	Game    string `hcl:"game"`
	Port    int    `hcl:"port"`
	Seed    int64  `hcl:"seed,optional"`
	RunOnce bool   `hcl:"run_once,optional"`
}

// Definition converts the config block into engine rules.
func (g *GameConfig) Definition() *game.GameDefinition {
	return &game.GameDefinition{
		Name:          g.Name,
		NumRounds:     g.Rounds,
		PrivateCards:  g.PrivateCards,
		PublicCards:   g.PublicCards,
		Bets:          g.Bets,
		BetsPerRound:  g.BetsPerRound,
		Blinds:        g.Blinds,
		NoLimit:       g.NoLimit,
		ReverseBlinds: g.ReverseBlinds,
		MinPlayers:    g.MinPlayers,
		MaxPlayers:    g.MaxPlayers,
		NumHands:      g.NumHands,
		StackSize:     g.StackSize,
		SurveyURL:     g.SurveyURL,
	}
}

// DefaultConfig returns a single two-player limit hold'em session.
func DefaultConfig() *Config {
	def := game.HoldemDefinition()
	return &Config{
		Server: ServerSettings{
			Address:        "localhost",
			LogLevel:       "info",
			LogDir:         "logs",
			SnapshotDir:    "snapshots",
			BotPortBase:    10000,
			BotDialSecs:    120,
			ActionTimeSecs: 600,
		},
		Games: []GameConfig{
			{
				Name:          def.Name,
				Rounds:        def.NumRounds,
				PrivateCards:  def.PrivateCards,
				PublicCards:   def.PublicCards,
				Bets:          def.Bets,
				BetsPerRound:  def.BetsPerRound,
				Blinds:        def.Blinds,
				ReverseBlinds: def.ReverseBlinds,
				MinPlayers:    def.MinPlayers,
				MaxPlayers:    def.MaxPlayers,
				NumHands:      def.NumHands,
			},
		},
		Sessions: []SessionConfig{
			{Name: "main", Game: def.Name, Port: 9000},
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to the
// default when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogDir == "" {
		c.Server.LogDir = "logs"
	}
	if c.Server.SnapshotDir == "" {
		c.Server.SnapshotDir = "snapshots"
	}
	if c.Server.BotPortBase == 0 {
		c.Server.BotPortBase = 10000
	}
	if c.Server.BotDialSecs == 0 {
		c.Server.BotDialSecs = 120
	}
	if c.Server.ActionTimeSecs == 0 {
		c.Server.ActionTimeSecs = 600
	}
}

// Validate checks that every session references a valid game.
func (c *Config) Validate() error {
	if len(c.Sessions) == 0 {
		return fmt.Errorf("no sessions configured")
	}
	games := make(map[string]*GameConfig, len(c.Games))
	for i := range c.Games {
		g := &c.Games[i]
		if _, dup := games[g.Name]; dup {
			return fmt.Errorf("duplicate game %q", g.Name)
		}
		if err := g.Definition().Validate(); err != nil {
			return err
		}
		games[g.Name] = g
	}
	ports := make(map[int]string)
	seen := make(map[string]bool)
	for _, s := range c.Sessions {
		if seen[s.Name] {
			return fmt.Errorf("duplicate session %q", s.Name)
		}
		seen[s.Name] = true
		if _, ok := games[s.Game]; !ok {
			return fmt.Errorf("session %q references unknown game %q", s.Name, s.Game)
		}
		if s.Port <= 0 {
			return fmt.Errorf("session %q: port required", s.Name)
		}
		if other, taken := ports[s.Port]; taken {
			return fmt.Errorf("sessions %q and %q share port %d", other, s.Name, s.Port)
		}
		ports[s.Port] = s.Name
		if s.Port == c.Server.AdminPort {
			return fmt.Errorf("session %q uses the admin port %d", s.Name, s.Port)
		}
	}
	return nil
}

// GameDefinition resolves a game by name.
func (c *Config) GameDefinition(name string) (*game.GameDefinition, error) {
	for i := range c.Games {
		if c.Games[i].Name == name {
			return c.Games[i].Definition(), nil
		}
	}
	return nil, fmt.Errorf("unknown game %q", name)
}
