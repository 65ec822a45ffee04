package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all configurable transfer and output settings.
type Config struct {
	// Paths
	ScenePath  string `json:"scene"`
	OutputPath string `json:"output"`

	// Matching
	DistanceRatio float64 `json:"distance_ratio"`
	AngleDegrees  float64 `json:"angle_degrees"`
	FlipNormals   bool    `json:"flip_normals"`
	Search        string  `json:"search"` // "surface" or "vertex"

	// Inpainting
	Backend             string `json:"backend"` // "cotangent" or "pointcloud"
	PointCloudNeighbors int    `json:"pointcloud_neighbors"`

	// Smoothing
	Smooth               bool    `json:"smooth"`
	SmoothIterations     int     `json:"smooth_iterations"`
	SmoothAlpha          float64 `json:"smooth_alpha"`
	SmoothExcludeMatched bool    `json:"smooth_exclude_matched"`

	// Post-processing
	PruneThreshold float64 `json:"prune_threshold"`

	// Pose
	UseDeformedSource bool `json:"use_deformed_source"`
	UseDeformedTarget bool `json:"use_deformed_target"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Scene != "" {
		c.ScenePath = flags.Scene
	}
	if flags.Output != "" {
		c.OutputPath = flags.Output
	}
	if flags.DistanceRatio > 0 {
		c.DistanceRatio = flags.DistanceRatio
	}
	if flags.AngleDegrees > 0 {
		c.AngleDegrees = flags.AngleDegrees
	}
	if flags.Backend != "" {
		c.Backend = flags.Backend
	}
	if flags.Search != "" {
		c.Search = flags.Search
	}

	// Defaults for matching and solving
	if c.DistanceRatio <= 0 {
		c.DistanceRatio = 0.05
	}
	if c.AngleDegrees <= 0 {
		c.AngleDegrees = 30
	}
	if c.Search == "" {
		c.Search = "surface"
	}
	if c.Backend == "" {
		c.Backend = "cotangent"
	}
	if c.SmoothIterations <= 0 {
		c.SmoothIterations = 10
	}
	if c.SmoothAlpha <= 0 {
		c.SmoothAlpha = 0.2
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Scene         string
	Output        string
	DistanceRatio float64
	AngleDegrees  float64
	Backend       string
	Search        string
}
