package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "htnc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
output_dir: gen
package: blocks
log_level: debug
planner:
  max_depth: 200
  all_plans: true
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "gen", cfg.OutputDir)
	assert.Equal(t, "blocks", cfg.Package)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 200, cfg.Planner.MaxDepth)
	assert.True(t, cfg.Planner.AllPlans)
	assert.Equal(t, Default().Planner.MaxStackBytes, cfg.Planner.MaxStackBytes, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(missing, true)
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{"bad yaml", "planner: [", "failed to parse"},
		{"negative depth", "planner:\n  max_depth: -1\n", "max_depth"},
		{"negative limit", "planner:\n  plan_limit: -3\n", "plan_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
