package config

import (
	"time"
)

// File is the structure of claimgraph.yaml. Every section is optional and
// overlays the defaults.
type File struct {
	Backend    *BackendDTO    `yaml:"backend"`
	Navigation *NavigationDTO `yaml:"navigation"`
	Layout     *LayoutDTO     `yaml:"layout"`
	Log        *LogDTO        `yaml:"log"`
	Telemetry  *TelemetryDTO  `yaml:"telemetry"`
	Server     *ServerDTO     `yaml:"server"`
}

// BackendDTO configures the fetch collaborator.
type BackendDTO struct {
	Kind        string         `yaml:"kind"`
	BaseURL     string         `yaml:"base_url"`
	FixturesDir string         `yaml:"fixtures_dir"`
	Timeout     *time.Duration `yaml:"timeout"`
	StrictEdges *bool          `yaml:"strict_edges"`
}

// NavigationDTO configures the navigator.
type NavigationDTO struct {
	PrefetchAncestors *bool `yaml:"prefetch_ancestors"`
}

// LayoutDTO holds settings shared by every level plus per-level overlays.
type LayoutDTO struct {
	Seed               *uint64              `yaml:"seed"`
	BarnesHutThreshold *int                 `yaml:"barnes_hut_threshold"`
	Claims             *LayoutParamsDTO `yaml:"claims"`
	Statements         *LayoutParamsDTO `yaml:"statements"`
	Provenance         *LayoutParamsDTO `yaml:"provenance"`
}

// LayoutParamsDTO overlays one level's layout parameters. Only the fields
// present in the document are applied, zero values included.
type LayoutParamsDTO struct {
	RepulsionStrength  *float64 `yaml:"repulsion_strength"`
	LinkDistance       *float64 `yaml:"link_distance"`
	CollisionRadius    *float64 `yaml:"collision_radius"`
	CollisionStrength  *float64 `yaml:"collision_strength"`
	CenteringStrength  *float64 `yaml:"centering_strength"`
	Iterations         *int     `yaml:"iterations"`
	AlphaMin           *float64 `yaml:"alpha_min"`
	VelocityDecay      *float64 `yaml:"velocity_decay"`
	Theta              *float64 `yaml:"theta"`
	BarnesHutThreshold *int     `yaml:"barnes_hut_threshold"`
	SettleSweeps       *int     `yaml:"settle_sweeps"`
	SettleTolerance    *float64 `yaml:"settle_tolerance"`
	Seed               *uint64  `yaml:"seed"`
}

// LogDTO configures the logger.
type LogDTO struct {
	Level string `yaml:"level"`
	JSON  *bool  `yaml:"json"`
}

// TelemetryDTO selects the tracer.
type TelemetryDTO struct {
	Kind string `yaml:"kind"`
}

// ServerDTO configures the HTTP server.
type ServerDTO struct {
	Addr string `yaml:"addr"`
}
