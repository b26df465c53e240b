package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Listen == "" || cfg.GalleryDB == "" {
		t.Fatalf("defaults incomplete: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanterne.yaml")
	data := []byte(`
listen: ":9090"
gallery_db: /var/lib/lanterne/gallery.db
delay_ms: 1200
mcp:
  transport: quic
  quic_addr: ":9447"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.DelayMS != 1200 {
		t.Errorf("delay_ms = %d", cfg.DelayMS)
	}
	if cfg.MCP.Transport != "quic" || cfg.MCP.QUICAddr != ":9447" {
		t.Errorf("mcp = %+v", cfg.MCP)
	}
	// Unset fields keep their defaults.
	if cfg.PixelBudget != 1600 {
		t.Errorf("pixel_budget = %d, want default 1600", cfg.PixelBudget)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanterne.yaml")
	if err := os.WriteFile(path, []byte("delay_ms: 99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("out-of-range delay_ms must fail validation")
	}

	if err := os.WriteFile(path, []byte("mcp:\n  transport: carrier-pigeon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("unknown mcp transport must fail validation")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}
