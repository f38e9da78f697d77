// Package config holds runtime settings for protochain. Settings come from
// environment variables and may be overridden by a YAML file.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"protochain/pkg/vm"
)

// Environment variables read by FromEnv.
const (
	EnvEnablePrototypeCache = "PROTOCHAIN_ENABLE_PROTO_CACHE"
	EnvDetailedCacheStats   = "PROTOCHAIN_DETAILED_CACHE_STATS"
	EnvCacheEntries         = "PROTOCHAIN_CACHE_ENTRIES"
	EnvInspectDepth         = "PROTOCHAIN_INSPECT_DEPTH"
	EnvLogLevel             = "PROTOCHAIN_LOG_LEVEL"
	EnvConfigFile           = "PROTOCHAIN_CONFIG_FILE"
)

// DefaultFile is the config file read when no path is given.
const DefaultFile = "protochain.yaml"

// Config holds the runtime configuration.
type Config struct {
	// EnablePrototypeCache enables caching of prototype chain lookups
	EnablePrototypeCache bool `yaml:"enable_prototype_cache"`

	// DetailedCacheStats prints cache statistics after every command
	DetailedCacheStats bool `yaml:"detailed_cache_stats"`

	// CacheEntries bounds the lookup cache; 0 uses the default size
	CacheEntries int `yaml:"cache_entries"`

	// InspectDepth is how deep console output descends into nested objects
	InspectDepth int `yaml:"inspect_depth"`

	// LogLevel is a zap level name: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		CacheEntries: vm.DefaultPrototypeCacheEntries,
		InspectDepth: vm.DefaultInspectDepth,
		LogLevel:     "info",
	}
}

// FromEnv returns the defaults overridden by any PROTOCHAIN_* variables.
func FromEnv() Config {
	c := Default()
	c.EnablePrototypeCache = getEnvBool(EnvEnablePrototypeCache, c.EnablePrototypeCache)
	c.DetailedCacheStats = getEnvBool(EnvDetailedCacheStats, c.DetailedCacheStats)
	c.CacheEntries = getEnvInt(EnvCacheEntries, c.CacheEntries)
	c.InspectDepth = getEnvInt(EnvInspectDepth, c.InspectDepth)
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.LogLevel = lvl
	}
	return c
}

// Load reads settings from the environment, then applies the YAML file at
// path on top. With an empty path the file named by PROTOCHAIN_CONFIG_FILE,
// or DefaultFile, is used if it exists; a path given explicitly must exist.
func Load(path string) (Config, error) {
	c := FromEnv()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
		if env := os.Getenv(EnvConfigFile); env != "" {
			path = env
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return c, c.validate()
		}
		return c, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "config: parse %s", path)
	}
	return c, c.validate()
}

func (c Config) validate() error {
	if c.CacheEntries < 0 {
		return fmt.Errorf("config: cache_entries must not be negative, got %d", c.CacheEntries)
	}
	if c.InspectDepth < 0 {
		return fmt.Errorf("config: inspect_depth must not be negative, got %d", c.InspectDepth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, errors.Wrap(err, "config: log_level")
	}
	return lvl, nil
}

// RealmOptions translates the configuration into realm options.
func (c Config) RealmOptions() []vm.RealmOption {
	opts := []vm.RealmOption{vm.WithInspectDepth(c.InspectDepth)}
	if c.EnablePrototypeCache {
		opts = append(opts, vm.WithPrototypeCache(c.CacheEntries))
	}
	return opts
}

// getEnvBool reads a boolean environment variable with a default value
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvInt reads an integer environment variable with a default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
