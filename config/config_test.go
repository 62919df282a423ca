package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bfc.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDecodesFields(t *testing.T) {
	path := writeConfig(t, `
heap_size = 131072
optimize = 2

[cache]
path = "/tmp/bfc-cache"
name = "artifacts.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultHeapSize != 131072 {
		t.Fatalf("DefaultHeapSize = %d, want 131072", cfg.DefaultHeapSize)
	}
	if cfg.DefaultOptimize != 2 {
		t.Fatalf("DefaultOptimize = %d, want 2", cfg.DefaultOptimize)
	}
	if cfg.Cache == nil || cfg.Cache.Path != "/tmp/bfc-cache" || cfg.Cache.Name != "artifacts.db" {
		t.Fatalf("Cache = %+v, want populated Config", cfg.Cache)
	}
}

func TestLoadAppliesHeapSizeDefault(t *testing.T) {
	path := writeConfig(t, `optimize = 1`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultHeapSize != 65536 {
		t.Fatalf("DefaultHeapSize = %d, want the default of 65536", cfg.DefaultHeapSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "heap_size = not a number")
	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail for malformed TOML")
	}
}
