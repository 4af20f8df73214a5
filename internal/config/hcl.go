package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/dstrand/pokerserver/internal/engine"
)

// gamesFile is the HCL shape for $DATA_DIR/games.hcl: zero or more labeled
// `game` blocks describing stakes/buy-in/rake for one table (§10), in the
// same labeled-block style as the teacher's `table "main" { ... }`.
type gamesFile struct {
	Games []gameBlock `hcl:"game,block"`
}

type gameBlock struct {
	ID         string  `hcl:"id,label"`
	Type       string  `hcl:"type,optional"`
	SmallBlind int     `hcl:"small_blind"`
	BigBlind   int     `hcl:"big_blind"`
	StartChips int     `hcl:"start_chips,optional"`
	Structure  string  `hcl:"structure,optional"`
	RakePct    float64 `hcl:"rake_percent,optional"`
	RakeCapBB  int     `hcl:"rake_cap_bb,optional"`
}

// loadGamesHCL parses a games.hcl file into per-game defaults, applying the
// same CASH/NO_LIMIT fallback defaults as the CLI layer.
func loadGamesHCL(path string) (map[string]GameDefaults, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL: %s", diags.Error())
	}

	var parsed gamesFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decoding HCL: %s", diags.Error())
	}

	out := make(map[string]GameDefaults, len(parsed.Games))
	for _, g := range parsed.Games {
		gameType := engine.Cash
		if g.Type == "TOURNAMENT" {
			gameType = engine.Tournament
		}
		structure := engine.NoLimit
		switch g.Structure {
		case "POT_LIMIT":
			structure = engine.PotLimit
		case "FIXED_LIMIT":
			structure = engine.FixedLimit
		}
		startChips := g.StartChips
		if startChips == 0 {
			startChips = g.BigBlind * 100
		}
		out[g.ID] = GameDefaults{
			Type:       gameType,
			SmallBlind: g.SmallBlind,
			BigBlind:   g.BigBlind,
			StartChips: startChips,
			Structure:  structure,
			Rake:       engine.RakeConfig{Percentage: g.RakePct, CapBB: g.RakeCapBB},
		}
	}
	return out, nil
}
