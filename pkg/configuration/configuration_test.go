package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhive/dhive/pkg/archive"
)

func TestLoadNonExistentPassesThroughNotExist(t *testing.T) {
	if _, err := Load("/this/does/not/exist.yaml"); !os.IsNotExist(err) {
		t.Fatalf("expected os.IsNotExist error, got %v", err)
	}
}

func TestLoadValidConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhive.yaml")
	contents := `
datPath: /srv/dhive
gc:
  interval: 15m
bandwidth:
  uploadLimit: 1000000
dns:
  providers: ["cloudflare", "google"]
defaults:
  networked: false
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DatPath != "/srv/dhive" {
		t.Errorf("DatPath = %q", cfg.DatPath)
	}
	if cfg.Bandwidth.UploadLimit != 1000000 {
		t.Errorf("UploadLimit = %d", cfg.Bandwidth.UploadLimit)
	}
	if len(cfg.DNS.Providers) != 2 {
		t.Errorf("Providers = %v", cfg.DNS.Providers)
	}
	if cfg.Defaults.Networked == nil || *cfg.Defaults.Networked {
		t.Errorf("expected Networked override to be false")
	}
}

func TestNewArchiveSettingsAppliesDefaults(t *testing.T) {
	falseVal := false
	cfg := &YAMLConfiguration{Defaults: ArchiveDefaults{Networked: &falseVal, Visibility: archive.VisibilityPublic}}

	settings := cfg.NewArchiveSettings()
	if settings.Networked {
		t.Error("expected Networked to be overridden to false")
	}
	// Normalize forces unlisted visibility when not saved, regardless of the
	// configured default.
	if settings.Visibility != archive.VisibilityUnlisted {
		t.Errorf("expected Normalize to force unlisted visibility, got %v", settings.Visibility)
	}
}

func TestNewArchiveSettingsNilConfigReturnsBuiltinDefaults(t *testing.T) {
	var cfg *YAMLConfiguration
	settings := cfg.NewArchiveSettings()
	if !settings.Networked {
		t.Error("expected built-in default of Networked=true")
	}
}

func TestMergeConfigurationsHigherWins(t *testing.T) {
	lower := &YAMLConfiguration{DatPath: "/lower", Bandwidth: BandwidthConfiguration{UploadLimit: 100}}
	higher := &YAMLConfiguration{Bandwidth: BandwidthConfiguration{UploadLimit: 200}}

	merged := MergeConfigurations(lower, higher)
	if merged.DatPath != "/lower" {
		t.Errorf("expected lower's DatPath to survive when higher leaves it unset, got %q", merged.DatPath)
	}
	if merged.Bandwidth.UploadLimit != 200 {
		t.Errorf("expected higher's UploadLimit to win, got %d", merged.Bandwidth.UploadLimit)
	}
}
