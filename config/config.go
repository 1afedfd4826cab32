package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/docfs/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI style log verbosity. Higher is chattier.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "docfs"
	DefaultName   = "docfs"
	DefaultLogLvl = util.InfoLevel

	// DefaultCacheSize is the number of document bodies kept by the content cache
	DefaultCacheSize = 256

	// DefaultCacheTTL is how long a cached document body stays valid
	DefaultCacheTTL = 30 * time.Second

	// DefaultStoreTimeout bounds a single remote content store request
	DefaultStoreTimeout = 10 * time.Second

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0
)

// Config contains runtime configuration values for the tree and its
// collaborators.
type Config struct {
	MountOptions
	LogLvl       util.LogLevel `validate:"gte=0,lte=4"`
	CacheSize    int           `validate:"gte=0"` // Content cache entries; 0 disables caching (Default 256)
	CacheTTL     time.Duration `validate:"gte=0"` // Content cache entry lifetime (Default 30s)
	StoreTimeout time.Duration `validate:"gt=0"`  // Remote content store request timeout (Default 10s)
	AttrTimeout  float64       `validate:"gte=0"` // FUSE attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64       `validate:"gte=0"` // FUSE entry cache timeout in seconds (Default 1.0)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI style verbosity between 1 (error) and 5 (trace)
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	Debug        *bool    `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName       *string  `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name         *string  `yaml:"name,omitempty" json:"name,omitempty"`
	CacheSize    *int     `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
	CacheTTL     *float64 `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`         // seconds
	StoreTimeout *float64 `yaml:"store_timeout,omitempty" json:"store_timeout,omitempty"` // seconds
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
}

// NewConfig creates a Config with all default values and applies override
// on top when it is not nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		CacheSize:    DefaultCacheSize,
		CacheTTL:     DefaultCacheTTL,
		StoreTimeout: DefaultStoreTimeout,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
	}
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLogLevel(*override.LogLvl)
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.CacheSize != nil {
		c.CacheSize = *override.CacheSize
	}
	if override.CacheTTL != nil {
		c.CacheTTL = seconds(*override.CacheTTL)
	}
	if override.StoreTimeout != nil {
		c.StoreTimeout = seconds(*override.StoreTimeout)
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
}

// VerboseToLogLevel maps a CLI verbosity (clamped to 1..5) to a [util.LogLevel]
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return logLvls[verbose-1]
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with
// defaults and validates the result.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
