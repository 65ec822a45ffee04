package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"scene": "scene.json",
		"distance_ratio": 0.1,
		"backend": "pointcloud",
		"smooth": true
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scene.json", cfg.ScenePath)
	assert.Equal(t, 0.1, cfg.DistanceRatio)
	assert.Equal(t, "pointcloud", cfg.Backend)
	assert.True(t, cfg.Smooth)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{})
	assert.Equal(t, 0.05, cfg.DistanceRatio)
	assert.Equal(t, 30.0, cfg.AngleDegrees)
	assert.Equal(t, "surface", cfg.Search)
	assert.Equal(t, "cotangent", cfg.Backend)
	assert.Equal(t, 10, cfg.SmoothIterations)
	assert.Equal(t, 0.2, cfg.SmoothAlpha)

	// Flags override file values
	cfg = Config{ScenePath: "a.json", Backend: "cotangent"}
	cfg.Resolve(Flags{Scene: "b.json", Backend: "pointcloud", DistanceRatio: 0.2})
	assert.Equal(t, "b.json", cfg.ScenePath)
	assert.Equal(t, "pointcloud", cfg.Backend)
	assert.Equal(t, 0.2, cfg.DistanceRatio)
}
