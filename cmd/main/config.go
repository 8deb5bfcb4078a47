package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/texmml/pkg/cachestore"
	"github.com/CTAG07/texmml/pkg/checker"
	"github.com/CTAG07/texmml/pkg/tex"
)

// Backend names accepted in cache_config.backend.
const (
	backendMemory    = "memory"
	backendSQLite    = "sqlite"
	backendMemcached = "memcached"
)

// ServerConfig holds process-wide settings.
type ServerConfig struct {
	LogLevel string `json:"log_level"`
	DataDir  string `json:"data_dir"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend          string   `json:"backend"`
	Namespace        string   `json:"namespace"`
	TTLSeconds       int      `json:"ttl_seconds"`
	ErrorTTLSeconds  int      `json:"error_ttl_seconds"`
	TimeoutMs        int      `json:"timeout_ms"`
	NamespacePurge   bool     `json:"namespace_purge"`
	MemoryMaxEntries int      `json:"memory_max_entries"`
	SQLitePath       string   `json:"sqlite_path"`
	MemcachedServers []string `json:"memcached_servers"`
}

// RenderConfig selects the render engine and its limits.
type RenderConfig struct {
	Engine    string `json:"engine"`
	Display   string `json:"display"`
	MaxLength int    `json:"max_length"`
	MaxDepth  int    `json:"max_depth"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Cache  *CacheConfig  `json:"cache_config"`
	Render *RenderConfig `json:"render_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		LogLevel: "info",
		DataDir:  "./data",
	}
}

// DefaultCacheConfig creates a cache configuration with default values.
func DefaultCacheConfig() *CacheConfig {
	def := checker.DefaultConfig()
	return &CacheConfig{
		Backend:          backendSQLite,
		Namespace:        def.Namespace,
		TTLSeconds:       int(def.TTL / time.Second),
		ErrorTTLSeconds:  int(def.ErrorTTL / time.Second),
		TimeoutMs:        int(def.Timeout / time.Millisecond),
		MemoryMaxEntries: cachestore.DefaultMemoryEntries,
		SQLitePath:       "./data/texmml_cache.db",
		MemcachedServers: []string{"127.0.0.1:11211"},
	}
}

// DefaultRenderConfig creates a render configuration with default values.
func DefaultRenderConfig() *RenderConfig {
	def := tex.DefaultConfig()
	return &RenderConfig{
		Engine:    checker.EngineNative,
		Display:   def.Display,
		MaxLength: def.MaxLength,
		MaxDepth:  def.MaxDepth,
	}
}

// DefaultConfig aggregates the section defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: DefaultServerConfig(),
		Cache:  DefaultCacheConfig(),
		Render: DefaultRenderConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err = SaveConfig(path, config); err != nil {
				// The defaults are still usable without the file.
				logger.Warn("Failed to write default config file", "path", path, "error", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A section set to null in the file falls back to its defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Cache == nil {
		config.Cache = DefaultCacheConfig()
	}
	if config.Render == nil {
		config.Render = DefaultRenderConfig()
	}
	return config, nil
}

// SaveConfig writes config to path atomically.
func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CheckerConfig translates the file sections into a checker.Config.
func (c *Config) CheckerConfig() checker.Config {
	cfg := checker.DefaultConfig()
	cfg.Namespace = c.Cache.Namespace
	cfg.TTL = time.Duration(c.Cache.TTLSeconds) * time.Second
	cfg.ErrorTTL = time.Duration(c.Cache.ErrorTTLSeconds) * time.Second
	cfg.Timeout = time.Duration(c.Cache.TimeoutMs) * time.Millisecond
	cfg.NamespacePurge = c.Cache.NamespacePurge
	cfg.Engine = c.Render.Engine
	cfg.TeX = tex.Config{
		Display:   c.Render.Display,
		MaxLength: c.Render.MaxLength,
		MaxDepth:  c.Render.MaxDepth,
	}
	return cfg
}

// parseLogLevel maps a config level name to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
