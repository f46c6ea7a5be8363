package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunConfigMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadRunConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultRunConfig() {
		t.Fatalf("got %+v, want defaults %+v", cfg, DefaultRunConfig())
	}

	cfg, err = LoadRunConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error for a nonexistent file: %v", err)
	}
	if cfg != DefaultRunConfig() {
		t.Fatalf("got %+v, want defaults for a missing file", cfg)
	}
}

func TestLoadRunConfigOverlaysOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yaml := "k: 8\nuse_graph_engine: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.K != 8 {
		t.Fatalf("k = %d, want 8", cfg.K)
	}
	if !cfg.UseGraphEngine {
		t.Fatal("use_graph_engine should have overlaid to true")
	}
	// Everything not named in the YAML should keep its default.
	if cfg.MinOccurrence != DefaultRunConfig().MinOccurrence {
		t.Fatalf("min_occurrence = %d, want the default %d", cfg.MinOccurrence, DefaultRunConfig().MinOccurrence)
	}
}

func TestLoadRunConfigRejectsMinPairOccurrenceBelowTwo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("min_pair_occurrence: 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("expected an error for min_pair_occurrence < 2")
	}
}
