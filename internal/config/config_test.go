package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasSaneBudgets(t *testing.T) {
	d := Default()
	if d.MaxAttempts <= 0 || d.MaxCombinations <= 0 {
		t.Errorf("Default() = %+v, want positive budgets", d)
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load of a missing file should not error: %v", err)
	}
	want := Default()
	if cfg.MaxAttempts != want.MaxAttempts || cfg.MaxCombinations != want.MaxCombinations || len(cfg.Registries) != 0 {
		t.Errorf("Load of a missing file = %+v, want %+v", cfg, want)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wizconfig.toml")
	contents := `
registries = ["/opt/registry"]
platform = "linux"
arch = "amd64"
max_attempts = 5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Registries) != 1 || cfg.Registries[0] != "/opt/registry" {
		t.Errorf("Registries = %v, want [/opt/registry]", cfg.Registries)
	}
	if cfg.Platform != "linux" || cfg.Arch != "amd64" {
		t.Errorf("Platform/Arch = %q/%q, want linux/amd64", cfg.Platform, cfg.Arch)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
}

func TestResolveOptionsDefaultsIncludeImplicitTrue(t *testing.T) {
	cfg := Default()
	opts, err := cfg.ResolveOptions(nil)
	if err != nil {
		t.Fatalf("ResolveOptions: %v", err)
	}
	if !opts.IncludeImplicit {
		t.Error("with IncludeImplicit unset in config, ResolveOptions should default it to true")
	}
}

func TestResolveOptionsRespectsExplicitIncludeImplicitFalse(t *testing.T) {
	cfg := Default()
	f := false
	cfg.IncludeImplicit = &f
	opts, err := cfg.ResolveOptions(nil)
	if err != nil {
		t.Fatalf("ResolveOptions: %v", err)
	}
	if opts.IncludeImplicit {
		t.Error("an explicit include_implicit = false should be respected")
	}
}
