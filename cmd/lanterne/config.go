package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/lanterne/gallery"
)

// Config holds the full lanterne configuration.
type Config struct {
	Listen      string    `yaml:"listen"`
	GalleryDB   string    `yaml:"gallery_db"`
	JournalDB   string    `yaml:"journal_db"`
	DelayMS     int       `yaml:"delay_ms"`
	PixelBudget int       `yaml:"pixel_budget"`
	MaxUploadMB int       `yaml:"max_upload_mb"`
	MCP         MCPConfig `yaml:"mcp"`
}

// MCPConfig configures the optional MCP transport.
type MCPConfig struct {
	Transport string `yaml:"transport"` // "" (disabled) | quic
	QUICAddr  string `yaml:"quic_addr"`
	TLSCert   string `yaml:"tls_cert"`
	TLSKey    string `yaml:"tls_key"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:      ":8086",
		GalleryDB:   "db/gallery.db",
		JournalDB:   "db/journal.db",
		DelayMS:     500,
		PixelBudget: 1600,
		MaxUploadMB: 256,
		MCP: MCPConfig{
			QUICAddr: ":9446",
		},
	}
}

// LoadConfig reads and parses a YAML config file, merged over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.GalleryDB == "" {
		return fmt.Errorf("gallery_db is required")
	}
	if c.DelayMS < 0 || c.DelayMS > gallery.MaxDelayMS {
		return fmt.Errorf("delay_ms must be in [0, %d]", gallery.MaxDelayMS)
	}
	if c.PixelBudget <= 0 {
		return fmt.Errorf("pixel_budget must be > 0")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be > 0")
	}
	switch c.MCP.Transport {
	case "", "quic":
	default:
		return fmt.Errorf("unsupported mcp transport %q (use quic)", c.MCP.Transport)
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) * 1024 * 1024 }
