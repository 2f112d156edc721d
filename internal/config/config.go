// Package config loads service settings from defaults, an optional YAML
// file, AUTOFLOW_* environment variables and command-line overrides, in
// that order of precedence (last wins).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"autoflow/workshop-service/internal/store"
)

const EnvPrefix = "AUTOFLOW_"

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Log       LogConfig       `koanf:"log"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
	Auth      AuthConfig      `koanf:"auth"`
	Seed      SeedConfig      `koanf:"seed"`
	Realtime  RealtimeConfig  `koanf:"realtime"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
	// DSN is the postgres connection string.
	DSN string `koanf:"dsn"`
	// Path is the file for the file and sqlite drivers.
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type RateLimitConfig struct {
	IPPerMinute     int `koanf:"ip_per_minute"`
	IPBurst         int `koanf:"ip_burst"`
	BranchPerMinute int `koanf:"branch_per_minute"`
	BranchBurst     int `koanf:"branch_burst"`
}

type WorkflowConfig struct {
	Transitions string `koanf:"transitions"`
}

type AuthConfig struct {
	SessionTTL time.Duration `koanf:"session_ttl"`
}

type SeedConfig struct {
	Enabled bool   `koanf:"enabled"`
	File    string `koanf:"file"`
}

type RealtimeConfig struct {
	Enabled bool `koanf:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `koanf:"service_name"`
}

func Defaults() map[string]any {
	return map[string]any{
		"server.port":                 "8080",
		"server.read_timeout":         10 * time.Second,
		"server.write_timeout":        10 * time.Second,
		"server.idle_timeout":         60 * time.Second,
		"store.driver":                DriverMemory,
		"store.dsn":                   "",
		"store.path":                  "",
		"log.level":                   "info",
		"log.format":                  "text",
		"ratelimit.ip_per_minute":     120,
		"ratelimit.ip_burst":          30,
		"ratelimit.branch_per_minute": 600,
		"ratelimit.branch_burst":      120,
		"workflow.transitions":        string(store.TransitionsPermissive),
		"auth.session_ttl":            8 * time.Hour,
		"seed.enabled":                true,
		"seed.file":                   "",
		"realtime.enabled":            true,
		"telemetry.service_name":      "workshop-service",
	}
}

// Load merges every source. path may be empty. overrides are dotted keys
// such as "log.level", usually taken from flags the user actually set.
func Load(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("error loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("error loading environment: %w", err)
	}
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("error loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps AUTOFLOW_STORE__DRIVER to store.driver. A single underscore
// stays part of the key name.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if _, err := store.ParseTransitionPolicy(c.Workflow.Transitions); err != nil {
		return fmt.Errorf("workflow.transitions: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	return nil
}

// TransitionPolicy returns the parsed workflow policy. Validate has already
// rejected unknown values.
func (c Config) TransitionPolicy() store.TransitionPolicy {
	policy, err := store.ParseTransitionPolicy(c.Workflow.Transitions)
	if err != nil {
		return store.TransitionsPermissive
	}
	return policy
}

func (c Config) Addr() string {
	return ":" + c.Server.Port
}
