// Package config assembles server configuration from three layers: kong CLI
// flags, an optional per-game HCL file, and a handful of environment
// variables — the same layering the teacher's cmd/server + config.go use,
// adapted to this server's knobs (§10).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/dstrand/pokerserver/internal/engine"
)

// CLI is the kong-parsed flag set (§10 "CLI flags via alecthomas/kong").
type CLI struct {
	Listen         string `kong:"default=':8080',help='Server listen address'"`
	DataDir        string `kong:"default='./data',help='Directory for persisted snapshots and hand history'"`
	LogLevel       string `kong:"default='info',enum='debug,info,warn,error,pretty',help='Log level (debug enables debug logging; every other value logs at info)'"`
	SmallBlind     int    `kong:"default='10',help='Default game small blind'"`
	BigBlind       int    `kong:"default='20',help='Default game big blind'"`
	StartChips     int    `kong:"default='1000',help='Default seat starting chip count'"`
	DecisionMillis int    `kong:"name='decision-timeout-ms',default='5000',help='AI oracle decision deadline in milliseconds'"`
	RakePercent    float64 `kong:"name='rake-percent',default='0',help='Rake percentage skimmed per pot'"`
	RakeCapBB      int    `kong:"name='rake-cap-bb',default='0',help='Rake cap, in big blinds'"`
	Seed           *int64 `kong:"help='Deterministic RNG seed (optional; random if unset)'"`
}

// Config is the resolved, ready-to-use server configuration — the product
// of CLI flags, an optional HCL games file, and environment overrides.
type Config struct {
	Listen   string
	DataDir  string
	LogLevel string

	DecisionTimeout time.Duration
	Seed            int64

	AIOracleURL string

	DefaultGame GameDefaults
	Games       map[string]GameDefaults // additional games named in an HCL file, keyed by id
}

// GameDefaults parameterizes one table's stakes, buy-in, and rake (§3, §4.1).
type GameDefaults struct {
	Type       engine.GameType
	SmallBlind int
	BigBlind   int
	StartChips int
	Structure  engine.BettingStructure
	Rake       engine.RakeConfig
}

// Load parses args with kong, then layers an optional HCL games file and
// environment variables on top (§10). args should be os.Args[1:].
func Load(args []string) (*Config, error) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("pokerserver"),
		kong.Description("Texas Hold'em orchestration server"),
		kong.UsageOnError(),
	)
	if err != nil {
		return nil, fmt.Errorf("config: building CLI parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	seed := time.Now().UnixNano()
	if cli.Seed != nil {
		seed = *cli.Seed
	}

	cfg := &Config{
		Listen:          cli.Listen,
		DataDir:         cli.DataDir,
		LogLevel:        cli.LogLevel,
		DecisionTimeout: time.Duration(cli.DecisionMillis) * time.Millisecond,
		Seed:            seed,
		DefaultGame: GameDefaults{
			Type:       engine.Cash,
			SmallBlind: cli.SmallBlind,
			BigBlind:   cli.BigBlind,
			StartChips: cli.StartChips,
			Structure:  engine.NoLimit,
			Rake: engine.RakeConfig{
				Percentage: cli.RakePercent,
				CapBB:      cli.RakeCapBB,
			},
		},
		Games: make(map[string]GameDefaults),
	}

	applyEnv(cfg)

	hclPath := cfg.DataDir + "/games.hcl"
	if _, err := os.Stat(hclPath); err == nil {
		games, err := loadGamesHCL(hclPath)
		if err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", hclPath, err)
		}
		cfg.Games = games
	}

	return cfg, nil
}

// applyEnv reads DEBUG/DATA_DIR/AI_ORACLE_URL, matching the teacher's
// POKERFORBOTS_* environment-variable convention at a smaller surface (§10).
func applyEnv(cfg *Config) {
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		cfg.LogLevel = "debug"
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("AI_ORACLE_URL"); v != "" {
		cfg.AIOracleURL = v
	}
}
