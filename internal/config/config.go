// Package config loads guildgrid's YAML configuration.
//
// The YAML document is encoded into CUE and unified with an embedded
// schema that supplies defaults and bounds, so every field a caller reads
// is concrete and in range.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/guildgrid/internal/cellcodec"
)

//go:embed schema.cue
var schemaCUE string

// Config is the validated configuration.
type Config struct {
	Database           string `json:"database"`
	BaseURL            string `json:"base_url"`
	LogLevel           string `json:"log_level"`
	KDF                KDF    `json:"kdf"`
	ReencryptOnProtect bool   `json:"reencrypt_on_protect"`
}

// KDF holds the Argon2id cost parameters.
type KDF struct {
	Time      int `json:"time"`
	MemoryKiB int `json:"memory_kib"`
	Threads   int `json:"threads"`
}

// ConfigError reports a configuration that does not match the schema.
type ConfigError struct {
	// Source is the file path, or "<inline>" for Parse.
	Source string

	// Details is the CUE error text, one problem per line, each naming
	// the offending path.
	Details string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Source, e.Details)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := decode("<default>", nil)
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: default configuration invalid: %v", err))
	}
	return cfg
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parse(path, raw)
}

// Parse validates a YAML config held in memory.
func Parse(raw []byte) (Config, error) {
	return parse("<inline>", raw)
}

func parse(source string, raw []byte) (Config, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", source, err)
	}
	return decode(source, data)
}

func decode(source string, data map[string]any) (Config, error) {
	if data == nil {
		data = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(data))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &ConfigError{Source: source, Details: cueerrors.Details(err, nil)}
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", source, err)
	}
	return cfg, nil
}

// KDFParams converts the configured cost into codec parameters.
func (c Config) KDFParams() cellcodec.KDFParams {
	return cellcodec.KDFParams{
		Time:      uint32(c.KDF.Time),
		MemoryKiB: uint32(c.KDF.MemoryKiB),
		Threads:   uint8(c.KDF.Threads),
	}
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
