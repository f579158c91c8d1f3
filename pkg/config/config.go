// Package config loads the daemon configuration: built-in defaults,
// overridden by an optional YAML file, overridden by MICROCLI_
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix. The first underscore
// after the prefix separates the section from the key:
// MICROCLI_CLI_MAX_LINE_LEN -> cli.max_line_len.
const EnvPrefix = "MICROCLI_"

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "/etc/microcli/microclid.yaml"

// Config is the full daemon configuration.
type Config struct {
	Console ConsoleConfig `koanf:"console"`
	Serial  SerialConfig  `koanf:"serial"`
	API     APIConfig     `koanf:"api"`
	CLI     CLIConfig     `koanf:"cli"`
	Audit   AuditConfig   `koanf:"audit"`
}

// ConsoleConfig configures the TCP console server.
type ConsoleConfig struct {
	Addr        string  `koanf:"addr"`
	Banner      string  `koanf:"banner"`
	IdleTimeout string  `koanf:"idle_timeout"`
	MaxSessions int     `koanf:"max_sessions"`
	AcceptRate  float64 `koanf:"accept_rate"`
	AcceptBurst int     `koanf:"accept_burst"`

	idle time.Duration // parsed from IdleTimeout by Load
}

// Idle returns the parsed idle timeout.
func (c ConsoleConfig) Idle() time.Duration {
	return c.idle
}

// SerialConfig configures the local serial console. An empty device
// disables it.
type SerialConfig struct {
	Device string `koanf:"device"`
	Baud   int    `koanf:"baud"`
}

// APIConfig configures the HTTP admin API. An empty addr disables it;
// an empty token disables authentication.
type APIConfig struct {
	Addr  string `koanf:"addr"`
	Token string `koanf:"token"`
}

// CLIConfig configures each interpreter session.
type CLIConfig struct {
	Prompt     string `koanf:"prompt"`
	MaxLineLen int    `koanf:"max_line_len"`
	MaxArgs    int    `koanf:"max_args"`
}

// AuditConfig configures the audit ring and its optional file trail.
// An empty file disables persistence.
type AuditConfig struct {
	Buffer    int    `koanf:"buffer"`
	File      string `koanf:"file"`
	MaxSizeMB int    `koanf:"max_size_mb"`
	MaxFiles  int    `koanf:"max_files"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			Addr:        ":2323",
			Banner:      "microcli console",
			IdleTimeout: "5m",
			MaxSessions: 32,
			AcceptRate:  5,
			AcceptBurst: 10,
			idle:        5 * time.Minute,
		},
		Serial: SerialConfig{
			Baud: 115200,
		},
		API: APIConfig{
			Addr: ":8088",
		},
		CLI: CLIConfig{
			Prompt:     "> ",
			MaxLineLen: 64,
			MaxArgs:    8,
		},
		Audit: AuditConfig{
			Buffer:    1024,
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// knownKeys is the flattened schema; anything else in the file or the
// environment is rejected by Load.
var knownKeys = map[string]bool{
	"console.addr":         true,
	"console.banner":       true,
	"console.idle_timeout": true,
	"console.max_sessions": true,
	"console.accept_rate":  true,
	"console.accept_burst": true,
	"serial.device":        true,
	"serial.baud":          true,
	"api.addr":             true,
	"api.token":            true,
	"cli.prompt":           true,
	"cli.max_line_len":     true,
	"cli.max_args":         true,
	"audit.buffer":         true,
	"audit.file":           true,
	"audit.max_size_mb":    true,
	"audit.max_files":      true,
}

// Load reads the configuration. A non-empty path names a YAML file that
// must exist; an empty path means defaults plus environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// MICROCLI_CONSOLE_ADDR -> console.addr. Only the first underscore
	// becomes the section dot so snake_case leaf keys survive.
	transformer := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(s, "_", ".", 1)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for _, key := range k.Keys() {
		if !knownKeys[key] {
			return nil, fmt.Errorf("unknown config key %q", key)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads DefaultPath if it exists, defaults+env otherwise.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat(DefaultPath); err != nil {
		return Load("")
	}
	return Load(DefaultPath)
}

func (c *Config) validate() error {
	idle, err := time.ParseDuration(c.Console.IdleTimeout)
	if err != nil {
		return fmt.Errorf("console.idle_timeout: %w", err)
	}
	if idle <= 0 {
		return fmt.Errorf("console.idle_timeout must be positive, got %s", idle)
	}
	c.Console.idle = idle

	if c.Console.MaxSessions <= 0 {
		return fmt.Errorf("console.max_sessions must be positive, got %d", c.Console.MaxSessions)
	}
	if c.Console.AcceptRate <= 0 {
		return fmt.Errorf("console.accept_rate must be positive, got %v", c.Console.AcceptRate)
	}
	if c.Console.AcceptBurst <= 0 {
		return fmt.Errorf("console.accept_burst must be positive, got %d", c.Console.AcceptBurst)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.CLI.MaxLineLen <= 0 {
		return fmt.Errorf("cli.max_line_len must be positive, got %d", c.CLI.MaxLineLen)
	}
	if c.CLI.MaxArgs <= 0 {
		return fmt.Errorf("cli.max_args must be positive, got %d", c.CLI.MaxArgs)
	}
	if c.Audit.Buffer <= 0 {
		return fmt.Errorf("audit.buffer must be positive, got %d", c.Audit.Buffer)
	}
	if c.Audit.MaxSizeMB <= 0 {
		return fmt.Errorf("audit.max_size_mb must be positive, got %d", c.Audit.MaxSizeMB)
	}
	if c.Audit.MaxFiles <= 0 {
		return fmt.Errorf("audit.max_files must be positive, got %d", c.Audit.MaxFiles)
	}
	return nil
}
