package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" || cfg.DataDir != "./walletd-data" || cfg.Service != "walletd" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.Assets) == 0 {
		t.Fatalf("default asset list is empty")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}

	// A second load reads the file it just wrote.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ListenAddress != cfg.ListenAddress || len(again.Assets) != len(cfg.Assets) {
		t.Fatalf("reloaded config differs: %+v", again)
	}
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "DataDir = \"/var/lib/walletd\"\nAssets = [\"btc\", \"rna\"]\n\n[import]\nDSN = \"postgres://wallet\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/walletd" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("ListenAddress default missing: %q", cfg.ListenAddress)
	}
	if len(cfg.Assets) != 2 || cfg.Assets[0] != "btc" {
		t.Fatalf("Assets = %v", cfg.Assets)
	}
	if cfg.Import.DSN != "postgres://wallet" {
		t.Fatalf("Import.DSN = %q", cfg.Import.DSN)
	}
}

func TestLoadRejectsBadAssetList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "Assets = [\"btc\", \"btc\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("duplicate asset names should fail validation")
	}

	content = "Assets = [\"a\", \"b\", \"c\", \"d\", \"e\", \"f\", \"g\", \"h\", \"i\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("more than eight assets should fail validation")
	}
}
