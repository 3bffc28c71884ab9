// Package config loads catalog.yaml.
//
// A file is decoded over Default with unknown fields rejected, then
// checked against the embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// FileName is the config file the CLI looks for by default.
const FileName = "catalog.yaml"

// Config is the project configuration.
type Config struct {
	Database      string    `yaml:"database" json:"database"`
	Log           Log       `yaml:"log" json:"log"`
	Redirects     Redirects `yaml:"redirects" json:"redirects"`
	DefaultEditor int64     `yaml:"default_editor" json:"default_editor"`
	AMQP          *AMQP     `yaml:"amqp,omitempty" json:"amqp,omitempty"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Redirects bounds redirect resolution.
type Redirects struct {
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// AMQP configures the committed-entity publisher. A nil block disables it.
type AMQP struct {
	URL        string `yaml:"url" json:"url"`
	Exchange   string `yaml:"exchange" json:"exchange"`
	RoutingKey string `yaml:"routing_key" json:"routing_key"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database:      "catalog.db",
		Log:           Log{Level: "info", Format: "text"},
		Redirects:     Redirects{MaxDepth: 32},
		DefaultEditor: 1,
	}
}

// Load reads and validates the config at path. A relative database path
// is taken relative to the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Database != ":memory:" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(filepath.Dir(path), cfg.Database)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate unifies c with the schema and requires a concrete result.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WriteFile writes c as YAML, refusing to overwrite an existing file.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}

// LogLevel maps Log.Level onto slog. Unknown names fall back to Info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
