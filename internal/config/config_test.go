package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/internal/config"
)

func TestDefaultMatchesBuiltinFallback(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, "sqlite", cfg.Compilation.TargetDialect)
	require.Equal(t, "standard", cfg.Compilation.OptimizationLevel)
	require.True(t, cfg.Compilation.EnableCaching)
	require.Equal(t, 1000, cfg.CacheSize)
	require.Equal(t, "development", cfg.Security.SafetyProfile)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saiqlctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/custom.db\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	require.Equal(t, "sqlite", cfg.Compilation.TargetDialect) // untouched default survives
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load("/nonexistent/saiqlctl.yaml")
	require.Error(t, err)
}
