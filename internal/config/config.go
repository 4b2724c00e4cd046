// Package config loads the engine's YAML configuration, falling back to
// the same hardcoded defaults the original engine used when no config
// file is present.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig points at the backing store the default adapter opens.
type DatabaseConfig struct {
	Path    string `yaml:"path"`
	Timeout int    `yaml:"timeout"`
}

// LegendConfig points at the symbol-legend document the lexer loads.
type LegendConfig struct {
	Path string `yaml:"path"`
}

// CompilationConfig controls the compiler's target and aggressiveness.
type CompilationConfig struct {
	TargetDialect     string `yaml:"target_dialect"`
	OptimizationLevel string `yaml:"optimization_level"`
	EnableCaching     bool   `yaml:"enable_caching"`
}

// ExecutionConfig bounds a single query's resource budget.
type ExecutionConfig struct {
	DefaultTimeoutSeconds int `yaml:"default_timeout"`
	MaxMemoryMB           int `yaml:"max_memory_mb"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SecurityConfig points at the firewall rules document and selects the
// safety policy preset ("strict", "development", or "default").
type SecurityConfig struct {
	FirewallRulesPath string `yaml:"firewall_rules_path"`
	SafetyProfile     string `yaml:"safety_profile"`
}

// Config is the engine's full configuration document.
type Config struct {
	Database               DatabaseConfig    `yaml:"database"`
	Legend                  LegendConfig      `yaml:"legend"`
	Compilation             CompilationConfig `yaml:"compilation"`
	Execution               ExecutionConfig   `yaml:"execution"`
	Logging                 LoggingConfig     `yaml:"logging"`
	Security                SecurityConfig    `yaml:"security"`
	Edition                 string            `yaml:"edition"`
	CacheSize               int               `yaml:"cache_size"`
	SessionCleanupInterval  int               `yaml:"session_cleanup_interval"`
	PerformanceTracking     bool              `yaml:"performance_tracking"`
}

// Default returns the engine's built-in configuration, matching the
// values the engine falls back to when no file is supplied.
func Default() Config {
	return Config{
		Database:    DatabaseConfig{Path: "data/saiql.db", Timeout: 30},
		Legend:      LegendConfig{Path: "data/legend_map.json"},
		Compilation: CompilationConfig{TargetDialect: "sqlite", OptimizationLevel: "standard", EnableCaching: true},
		Execution:   ExecutionConfig{DefaultTimeoutSeconds: 300, MaxMemoryMB: 1024},
		Logging:     LoggingConfig{Level: "info"},
		Security:    SecurityConfig{FirewallRulesPath: "data/firewall_rules.json", SafetyProfile: "development"},
		Edition:     "community",
		CacheSize:   1000,
		SessionCleanupInterval: 3600,
		PerformanceTracking:    true,
	}
}

// Load reads path as YAML over top of Default, so a config file only
// needs to set the fields it wants to override.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
