package config

import (
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := Default()
	if cfg.Server != want.Server || cfg.Simulation != want.Simulation {
		t.Errorf("Load on missing file = %+v, want Default()", cfg)
	}
	if cfg.World.Gen != want.World.Gen || *cfg.World.FlatMap != *want.World.FlatMap {
		t.Errorf("Load on missing file World = %+v, want %+v", cfg.World, want.World)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load error: %v", err)
	}
	if again.Server.IP != cfg.Server.IP || again.World.Path != cfg.World.Path {
		t.Errorf("second Load = %+v, want round trip of %+v", again, cfg)
	}
}

func TestLoadParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	custom := Default()
	custom.Server.MaxPlayers = 5
	custom.Server.Name = "Test Server"
	if err := save(path, custom); err != nil {
		t.Fatalf("save error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Server.MaxPlayers != 5 || got.Server.Name != "Test Server" {
		t.Errorf("Load = %+v, want MaxPlayers=5 Name=Test Server", got)
	}
}
