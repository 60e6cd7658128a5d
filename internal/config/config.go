// Package config loads exploration settings from a TOML file.
//
// Keys present in the file overlay the defaults; command-line flags then
// overlay the file.
//
//	# arachne.toml
//	db = "arachne.db"
//	all_states = false
//
//	[limits]
//	max_depth = 4
//	max_runs = 6
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/arachne/internal/engine"
)

// Config holds the settings of an explore run.
type Config struct {
	Limits engine.Limits

	// Database is the SQLite path sessions are recorded to. Empty means
	// no recording.
	Database string

	// AllStates stores every explored semistate instead of terminals only.
	AllStates bool

	// Export is the path of the CBOR export. Empty means none.
	Export string
}

type fileConfig struct {
	DB        string `toml:"db"`
	AllStates bool   `toml:"all_states"`
	Export    string `toml:"export"`
	Limits    struct {
		MaxDepth int `toml:"max_depth"`
		MaxRuns  int `toml:"max_runs"`
	} `toml:"limits"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{Limits: engine.DefaultLimits()}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("db") {
		cfg.Database = strings.TrimSpace(raw.DB)
	}
	if meta.IsDefined("all_states") {
		cfg.AllStates = raw.AllStates
	}
	if meta.IsDefined("export") {
		cfg.Export = strings.TrimSpace(raw.Export)
	}
	if meta.IsDefined("limits", "max_depth") {
		cfg.Limits.MaxDepth = raw.Limits.MaxDepth
	}
	if meta.IsDefined("limits", "max_runs") {
		cfg.Limits.MaxRuns = raw.Limits.MaxRuns
	}

	if err := cfg.Limits.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
