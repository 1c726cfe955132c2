// Package config loads and persists the server's YAML configuration file,
// mirroring the reference implementation's Config/ServerCfg/SimulationCfg/
// WorldCfg shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full on-disk configuration document.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	World      WorldConfig      `yaml:"world"`
}

// ServerConfig controls listener identity and display fields.
type ServerConfig struct {
	IP          string `yaml:"ip"`
	Name        string `yaml:"name"`
	MOTD        string `yaml:"motd"`
	MaxPlayers  int8   `yaml:"max_players"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// SimulationConfig controls tick pacing and per-session ingress budget.
type SimulationConfig struct {
	ServerTickRateMillis int64 `yaml:"server_tick_rate"`
	SessionByteBudget    int   `yaml:"session_byte_budget"`
}

// WorldConfig selects world generation/load source and save behavior.
type WorldConfig struct {
	// Gen is either "flat_map" (use FlatMap dimensions) or "from_file" (load
	// FromFilePath). Exactly one of FlatMap/FromFilePath applies.
	Gen          string   `yaml:"gen"`
	FromFilePath string   `yaml:"from_file_path,omitempty"`
	FlatMap      *FlatMap `yaml:"flat_map,omitempty"`
	Path         string   `yaml:"path"`
	Autosave     bool     `yaml:"autosave"`
}

// FlatMap is the generated-world dimension triple.
type FlatMap struct {
	Width  int16 `yaml:"width"`
	Height int16 `yaml:"height"`
	Length int16 `yaml:"length"`
}

const (
	GenFlatMap  = "flat_map"
	GenFromFile = "from_file"
)

// Default returns the built-in configuration, matching the reference
// implementation's defaults (127.0.0.1:25565, 64x32x64 flat map, 50ms ticks).
func Default() Config {
	return Config{
		Server: ServerConfig{
			IP:          "127.0.0.1:25565",
			Name:        "A Classic Server",
			MOTD:        "Welcome to the server!",
			MaxPlayers:  10,
			MetricsAddr: "",
		},
		Simulation: SimulationConfig{
			ServerTickRateMillis: 50,
			SessionByteBudget:    64,
		},
		World: WorldConfig{
			Gen:      GenFlatMap,
			FlatMap:  &FlatMap{Width: 64, Height: 32, Length: 64},
			Path:     "maps/world.cw",
			Autosave: true,
		},
	}
}

// Load reads path. If the file does not exist, it writes Default() to path
// and returns those defaults. Any other read/parse error is fatal (returned
// to the caller, who is expected to abort startup).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		def := Default()
		if writeErr := save(path, def); writeErr != nil {
			return Config{}, fmt.Errorf("config: writing defaults to %s: %w", path, writeErr)
		}
		return def, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
