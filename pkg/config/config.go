// Package config loads otpvault settings from defaults, an optional YAML file
// and OTPVAULT_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "OTPVAULT_"

const (
	defaultStoreFile = "vault.otpv"
	defaultAppDir    = "otpvault"
)

// Config is the complete application configuration.
type Config struct {
	// StorePath is the location of the encrypted token store.
	StorePath string `yaml:"store_path" env:"STORE_PATH"`
	KDF       KDF    `yaml:"kdf" envPrefix:"KDF_"`
	Log       Log    `yaml:"log" envPrefix:"LOG_"`
}

// KDF holds the Argon2id costs applied when a store is created or re-keyed.
type KDF struct {
	Time      uint32 `yaml:"time" env:"TIME"`
	MemoryKiB uint32 `yaml:"memory_kib" env:"MEMORY_KIB"`
	Threads   uint8  `yaml:"threads" env:"THREADS"`
}

// Log configures the process logger.
type Log struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StorePath: DefaultStorePath(),
		KDF: KDF{
			Time:      3,
			MemoryKiB: 64 * 1024,
			Threads:   4,
		},
		Log: Log{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DefaultStorePath returns the store location under the user's
// configuration directory, or a file in the working directory when that
// cannot be determined.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return defaultStoreFile
	}
	return filepath.Join(dir, defaultAppDir, defaultStoreFile)
}

// Load builds a Config from Default, overlaid with the YAML file at path
// when it exists, then with OTPVAULT_ environment variables. An empty path
// skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Join(ErrParsingFile, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, errors.Join(ErrReadingFile, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingEnv, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are named, without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("%w: store path is empty", ErrInvalidConfig)
	}
	if c.KDF.Time == 0 || c.KDF.MemoryKiB == 0 || c.KDF.Threads == 0 {
		return fmt.Errorf("%w: kdf time, memory and threads must be non-zero", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
