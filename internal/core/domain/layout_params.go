package domain

import (
	"math"

	"go.trai.ch/zerr"
)

// Simulation constants shared by every level.
const (
	DefaultAlphaMin           = 0.001
	DefaultVelocityDecay      = 0.4
	DefaultCollisionStrength  = 1.0
	DefaultTheta              = 0.9
	DefaultBarnesHutThreshold = 128
	DefaultSettleSweeps       = 64
	DefaultSettleTolerance    = 1e-6
	DefaultCenteringStrength  = 0.02
	DefaultIterations         = 400
)

// LayoutParams tunes one run of the force simulation.
type LayoutParams struct {
	RepulsionStrength float64 `json:"repulsion_strength" yaml:"repulsion_strength"`
	LinkDistance      float64 `json:"link_distance" yaml:"link_distance"`
	CollisionRadius   float64 `json:"collision_radius" yaml:"collision_radius"`
	CollisionStrength float64 `json:"collision_strength" yaml:"collision_strength"`
	CenteringStrength float64 `json:"centering_strength" yaml:"centering_strength"`
	Iterations        int     `json:"iterations" yaml:"iterations"`

	AlphaMin           float64 `json:"alpha_min" yaml:"alpha_min"`
	VelocityDecay      float64 `json:"velocity_decay" yaml:"velocity_decay"`
	Theta              float64 `json:"theta" yaml:"theta"`
	BarnesHutThreshold int     `json:"barnes_hut_threshold" yaml:"barnes_hut_threshold"`
	SettleSweeps       int     `json:"settle_sweeps" yaml:"settle_sweeps"`
	SettleTolerance    float64 `json:"settle_tolerance" yaml:"settle_tolerance"`

	// Seed drives the deterministic jiggle applied to coincident nodes.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultLayoutParams returns the tuned parameters for a level.
func DefaultLayoutParams(level Level) LayoutParams {
	p := LayoutParams{
		RepulsionStrength:  -1200,
		LinkDistance:       300,
		CollisionRadius:    100,
		CollisionStrength:  DefaultCollisionStrength,
		CenteringStrength:  DefaultCenteringStrength,
		Iterations:         DefaultIterations,
		AlphaMin:           DefaultAlphaMin,
		VelocityDecay:      DefaultVelocityDecay,
		Theta:              DefaultTheta,
		BarnesHutThreshold: DefaultBarnesHutThreshold,
		SettleSweeps:       DefaultSettleSweeps,
		SettleTolerance:    DefaultSettleTolerance,
	}
	switch level {
	case LevelStatements:
		p.RepulsionStrength = -1500
	case LevelProvenance:
		p.RepulsionStrength = -3000
		p.LinkDistance = 180
		p.CollisionRadius = 80
	}
	return p
}

// AlphaDecay returns the per-iteration cooling rate. The schedule reaches
// AlphaMin after 300 iterations regardless of the configured count.
func (p LayoutParams) AlphaDecay() float64 {
	return 1 - math.Pow(p.AlphaMin, 1.0/300)
}

// Validate reports the first parameter that is non-finite or out of range.
func (p LayoutParams) Validate() error {
	floats := []struct {
		name     string
		value    float64
		negative bool
	}{
		{"repulsion_strength", p.RepulsionStrength, true},
		{"link_distance", p.LinkDistance, false},
		{"collision_radius", p.CollisionRadius, false},
		{"collision_strength", p.CollisionStrength, false},
		{"centering_strength", p.CenteringStrength, false},
		{"alpha_min", p.AlphaMin, false},
		{"velocity_decay", p.VelocityDecay, false},
		{"theta", p.Theta, false},
		{"settle_tolerance", p.SettleTolerance, false},
	}
	for _, f := range floats {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalidParameter(f.name, f.value, "must be finite")
		}
		if !f.negative && f.value < 0 {
			return invalidParameter(f.name, f.value, "must not be negative")
		}
	}
	if p.Iterations <= 0 {
		return invalidParameter("iterations", p.Iterations, "must be positive")
	}
	if p.AlphaMin <= 0 || p.AlphaMin >= 1 {
		return invalidParameter("alpha_min", p.AlphaMin, "must be in (0, 1)")
	}
	if p.VelocityDecay > 1 {
		return invalidParameter("velocity_decay", p.VelocityDecay, "must be in [0, 1]")
	}
	if p.BarnesHutThreshold < 0 {
		return invalidParameter("barnes_hut_threshold", p.BarnesHutThreshold, "must not be negative")
	}
	if p.SettleSweeps < 0 {
		return invalidParameter("settle_sweeps", p.SettleSweeps, "must not be negative")
	}
	return nil
}

func invalidParameter(name string, value any, reason string) error {
	err := zerr.With(zerr.Wrap(ErrInvalidParameter, reason), "parameter", name)
	return zerr.With(err, "value", value)
}
