// Package config loads forcegraph settings from TOML or YAML files.
//
// Every field has a default, so a file only needs the values it changes:
//
//	[layout]
//	rest_length = 120
//	step_delay  = "16ms"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// Command-line flags override file values; see internal/cli.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/layout"
)

// validate is a singleton validator instance
var validate = validator.New()

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config is the complete file configuration.
type Config struct {
	Layout   layout.Config  `toml:"layout" yaml:"layout"`
	Run      RunConfig      `toml:"run" yaml:"run"`
	Generate GenerateConfig `toml:"generate" yaml:"generate"`
	Cache    CacheConfig    `toml:"cache" yaml:"cache"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// RunConfig bounds layout runs.
type RunConfig struct {
	MaxIterations int `toml:"max_iterations" yaml:"max_iterations" validate:"gt=0"`
}

// GenerateConfig holds generator defaults.
type GenerateConfig struct {
	Nodes    int    `toml:"nodes" yaml:"nodes" validate:"gte=0"`
	MaxEdges int    `toml:"max_edges" yaml:"max_edges" validate:"gte=1"`
	Columns  int    `toml:"columns" yaml:"columns" validate:"gt=0"`
	Rows     int    `toml:"rows" yaml:"rows" validate:"gt=0"`
	Seed     uint64 `toml:"seed" yaml:"seed"`
}

// CacheConfig selects and configures the layout cache.
type CacheConfig struct {
	Backend         string        `toml:"backend" yaml:"backend" validate:"oneof=none file redis mongo"`
	Dir             string        `toml:"dir" yaml:"dir"`
	TTL             time.Duration `toml:"ttl" yaml:"ttl" validate:"gte=0"`
	RedisAddr       string        `toml:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB         int           `toml:"redis_db" yaml:"redis_db" validate:"gte=0"`
	MongoURI        string        `toml:"mongo_uri" yaml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase   string        `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection" yaml:"mongo_collection"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	MaxBodyBytes int64         `toml:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
	MaxSessions  int           `toml:"max_sessions" yaml:"max_sessions" validate:"gt=0"`
	MaxNodes     int           `toml:"max_nodes" yaml:"max_nodes" validate:"gt=0"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: layout.DefaultConfig(),
		Run:    RunConfig{MaxIterations: 10000},
		Generate: GenerateConfig{
			Nodes:    20,
			MaxEdges: 3,
			Columns:  5,
			Rows:     5,
		},
		Cache: CacheConfig{
			Backend:         BackendFile,
			TTL:             7 * 24 * time.Hour,
			MongoDatabase:   "forcegraph",
			MongoCollection: "layouts",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 8 << 20,
			MaxSessions:  64,
			MaxNodes:     5000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks every section, including the layout constants.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// =============================================================================
// Loading
// =============================================================================

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidConfig, "unsupported config extension %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Config{}, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty and returns the defaults
// otherwise. If path is empty and DefaultPath exists, that file is used.
func LoadOrDefault(path string) (Config, string, error) {
	if path == "" {
		p, ok := DefaultPath()
		if !ok {
			return Default(), "", nil
		}
		if _, err := os.Stat(p); err != nil {
			return Default(), "", nil
		}
		path = p
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Decode parses r over the defaults and validates the result. Unknown keys
// are rejected.
func Decode(r io.Reader, format Format) (Config, error) {
	cfg := Default()
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath returns the per-user config file location
// ($XDG_CONFIG_HOME/forcegraph/config.toml or the OS equivalent).
func DefaultPath() (string, bool) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "forcegraph", "config.toml"), true
}

// formatValidationError converts validator errors to an INVALID_CONFIG error
// naming the first offending key.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}

	e := validationErrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required", "required_if":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: field is required", field)
	case "oneof":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be one of [%s], got %v", field, e.Param(), e.Value())
	case "gt":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be greater than %s, got %v", field, e.Param(), e.Value())
	case "gte":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must be at least %s, got %v", field, e.Param(), e.Value())
	case "lte":
		return errors.New(errors.ErrCodeInvalidConfig, "%s: must not exceed %s, got %v", field, e.Param(), e.Value())
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "%s: validation failed (%s)", field, e.Tag())
	}
}
