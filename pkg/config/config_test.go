package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Layout.RestLength != 80 || cfg.Run.MaxIterations != 10000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "forcegraph.toml", `
[layout]
rest_length = 120.0
damping = 0.8
step_delay = "16ms"
workers = 4

[run]
max_iterations = 500

[cache]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "1h"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.RestLength != 120 || cfg.Layout.Damping != 0.8 || cfg.Layout.Workers != 4 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.StepDelay != 16*time.Millisecond {
		t.Errorf("step delay = %v", cfg.Layout.StepDelay)
	}
	// Untouched keys keep their defaults.
	if cfg.Layout.Stiffness != 30 || cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("defaults lost: stiffness %v, addr %q", cfg.Layout.Stiffness, cfg.Server.Addr)
	}
	if cfg.Run.MaxIterations != 500 || cfg.Cache.Backend != BackendRedis || cfg.Cache.TTL != time.Hour {
		t.Errorf("run/cache = %+v / %+v", cfg.Run, cfg.Cache)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "forcegraph.yml", `
layout:
  epsilon: 0.5
  step_delay: 10ms
generate:
  nodes: 50
  max_edges: 2
server:
  addr: ":9000"
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Epsilon != 0.5 || cfg.Layout.StepDelay != 10*time.Millisecond {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Generate.Nodes != 50 || cfg.Generate.MaxEdges != 2 || cfg.Generate.Columns != 5 {
		t.Errorf("generate = %+v", cfg.Generate)
	}
	if cfg.Server.Addr != ":9000" || cfg.Log.Level != "debug" {
		t.Errorf("server/log = %+v / %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty file changed defaults: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode errors.Code
		wantText string
	}{
		{"UnknownTOMLKey", "c.toml", "[layout]\nspring = 3\n", errors.ErrCodeInvalidConfig, "layout.spring"},
		{"UnknownYAMLKey", "c.yaml", "layout:\n  spring: 3\n", errors.ErrCodeInvalidConfig, "spring"},
		{"BadTOML", "c.toml", "[layout\n", errors.ErrCodeInvalidConfig, "decode toml"},
		{"DampingTooLarge", "c.toml", "[layout]\ndamping = 2.0\n", errors.ErrCodeInvalidConfig, "Layout.Damping"},
		{"ZeroIterations", "c.yaml", "run:\n  max_iterations: 0\n", errors.ErrCodeInvalidConfig, "Run.MaxIterations"},
		{"UnknownBackend", "c.toml", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidConfig, "Cache.Backend"},
		{"RedisWithoutAddr", "c.toml", "[cache]\nbackend = \"redis\"\n", errors.ErrCodeInvalidConfig, "Cache.RedisAddr"},
		{"MongoWithoutURI", "c.yaml", "cache:\n  backend: mongo\n", errors.ErrCodeInvalidConfig, "Cache.MongoURI"},
		{"BadLevel", "c.yaml", "log:\n  level: loud\n", errors.ErrCodeInvalidConfig, "Log.Level"},
		{"Extension", "c.ini", "x=1", errors.ErrCodeInvalidConfig, "unsupported config extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Load = %v, want %s", err, tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q does not mention %q", err, tt.wantText)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, used, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") = %v", err)
	}
	if used != "" || cfg != Default() {
		t.Errorf("LoadOrDefault(\"\") used %q", used)
	}

	path := writeFile(t, "x.toml", "[run]\nmax_iterations = 7\n")
	cfg, used, err = LoadOrDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path || cfg.Run.MaxIterations != 7 {
		t.Errorf("LoadOrDefault(%s) = %q, %+v", path, used, cfg.Run)
	}
}
