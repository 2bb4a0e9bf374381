package graphql

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/karlosss/describer"
)

// Default listing page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Config configures schema generation.
type Config struct {
	// DefaultPageSize is the limit applied when a listing has none.
	DefaultPageSize int `yaml:"default_page_size,omitempty"`

	// MaxPageSize caps the limit argument of listings.
	MaxPageSize int `yaml:"max_page_size,omitempty"`

	// SchemaPath is where WriteSDL stores the generated schema.
	SchemaPath string `yaml:"schema_path,omitempty"`

	// Descriptions adds generated descriptions to types and fields.
	Descriptions bool `yaml:"descriptions,omitempty"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     MaxPageSize,
	}
}

// LoadConfig loads a YAML configuration file. A missing file yields
// the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read graphql config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse graphql config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the page sizes.
func (c *Config) Validate() error {
	if c.DefaultPageSize <= 0 {
		return describer.Configf("", "default_page_size must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return describer.Configf("", "max_page_size %d is smaller than default_page_size %d", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

// WriteSDL stores the schema definition language of s at the configured
// schema path, creating its directory.
func (c *Config) WriteSDL(s *Schema) error {
	if c.SchemaPath == "" {
		return describer.Configf("", "schema_path is not set")
	}
	if dir := filepath.Dir(c.SchemaPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(c.SchemaPath, []byte(s.SDL()), 0o644)
}
