package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/docfs/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
	assert.NoError(t, Validate(cfg))
}

func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	cfg := NewConfig(override)

	expCfg := &Config{
		MountOptions: MountOptions{
			Debug:  true,
			FsName: "test_fs",
			Name:   "test_name",
		},
		LogLvl:       util.TraceLevel,
		CacheSize:    *override.CacheSize,
		CacheTTL:     90 * time.Second,
		StoreTimeout: 1500 * time.Millisecond,
		AttrTimeout:  *override.AttrTimeout,
		EntryTimeout: *override.EntryTimeout,
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", 1, util.ErrorLevel},
		{"verbose_2_warn", 2, util.WarnLevel},
		{"verbose_3_info", 3, util.InfoLevel},
		{"verbose_4_debug", 4, util.DebugLevel},
		{"verbose_5_trace", 5, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},
		{"verbose_100_clamped_to_5", 100, util.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &ConfigOverride{
				LogLvl: &tt.verboseValue,
			}

			cfg := NewConfig(override)

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		FsName:    util.Pointer("test_fs"),
		CacheSize: util.Pointer(DefaultCacheSize + 1),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.FsName = "test_fs"
	expCfg.CacheSize = DefaultCacheSize + 1

	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"cache disabled", func(c *Config) { c.CacheSize = 0; c.CacheTTL = 0 }, ""},
		{"negative cache size", func(c *Config) { c.CacheSize = -1 }, "CacheSize"},
		{"zero store timeout", func(c *Config) { c.StoreTimeout = 0 }, "StoreTimeout"},
		{"empty fs name", func(c *Config) { c.FsName = "" }, "FsName"},
		{"bad log level", func(c *Config) { c.LogLvl = 9 }, "LogLvl"},
		{"cache without ttl", func(c *Config) { c.CacheTTL = 0 }, "cache_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := createDefaultCfg()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, Validate(nil))
}

func TestLoadConfigOverrideFile_Valid(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext   string
		build func() (*ConfigOverride, []byte)
	}

	cases := []tc{
		{
			ext: ".yaml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".yml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".json",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := json.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
	}

	for _, c := range cases {
		name := "valid" + c.ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			override, data := c.build()
			dir := t.TempDir()
			path := filepath.Join(dir, "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadConfigOverrideFile(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, *override, *loaded)
		})
	}
}

func TestLoadConfigOverrideFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does_not_exist.yaml")

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not exist error, got %v", err)
}

// TestLoadConfigOverrideFile_UnsupportedExtension tests error handling
// for file extensions that aren't supported (.txt, .xml, etc).
func TestLoadConfigOverrideFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("cache_size: 1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func TestNewConfigFromFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache_size: -5\n"), 0o600))

		_, err := NewConfigFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CacheSize")
	})

	t.Run("partial yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "ok.yaml")
		require.NoError(t, os.WriteFile(path, []byte("verbose: 4\ncache_ttl: 2.5\n"), 0o600))

		cfg, err := NewConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, util.DebugLevel, cfg.LogLvl)
		assert.Equal(t, 2500*time.Millisecond, cfg.CacheTTL)
		assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	})
}

func createDefaultCfg() *Config {
	return &Config{
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
}

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	return &ConfigOverride{
		LogLvl:       util.Pointer(TraceVerbose),
		Debug:        util.Pointer(true),
		FsName:       util.Pointer("test_fs"),
		Name:         util.Pointer("test_name"),
		CacheSize:    util.Pointer(DefaultCacheSize + 1),
		CacheTTL:     util.Pointer(90.0),
		StoreTimeout: util.Pointer(1.5),
		AttrTimeout:  util.Pointer(float64(DefaultAttrTimeout + 1)),
		EntryTimeout: util.Pointer(float64(DefaultEntryTimeout + 1)),
	}
}
