package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/claimgraph/internal/core/domain"
)

func TestDefaultLayoutParams(t *testing.T) {
	claims := domain.DefaultLayoutParams(domain.LevelClaims)
	assert.InDelta(t, -1200.0, claims.RepulsionStrength, 0)
	assert.InDelta(t, 300.0, claims.LinkDistance, 0)
	assert.InDelta(t, 100.0, claims.CollisionRadius, 0)

	prov := domain.DefaultLayoutParams(domain.LevelProvenance)
	assert.InDelta(t, -3000.0, prov.RepulsionStrength, 0)
	assert.InDelta(t, 180.0, prov.LinkDistance, 0)
	assert.InDelta(t, 80.0, prov.CollisionRadius, 0)

	for _, level := range domain.Levels {
		assert.NoError(t, domain.DefaultLayoutParams(level).Validate())
	}
}

func TestLayoutParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.LayoutParams)
	}{
		{"nan repulsion", func(p *domain.LayoutParams) { p.RepulsionStrength = math.NaN() }},
		{"infinite distance", func(p *domain.LayoutParams) { p.LinkDistance = math.Inf(1) }},
		{"negative radius", func(p *domain.LayoutParams) { p.CollisionRadius = -1 }},
		{"negative centering", func(p *domain.LayoutParams) { p.CenteringStrength = -0.1 }},
		{"zero iterations", func(p *domain.LayoutParams) { p.Iterations = 0 }},
		{"alpha min one", func(p *domain.LayoutParams) { p.AlphaMin = 1 }},
		{"velocity decay above one", func(p *domain.LayoutParams) { p.VelocityDecay = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.DefaultLayoutParams(domain.LevelClaims)
			tt.mutate(&p)
			err := p.Validate()
			assert.True(t, errors.Is(err, domain.ErrInvalidParameter), "got %v", err)
		})
	}
}

func TestLayoutParams_AlphaDecay(t *testing.T) {
	p := domain.DefaultLayoutParams(domain.LevelClaims)
	alpha := 1.0
	for range 300 {
		alpha -= alpha * p.AlphaDecay()
	}
	assert.InDelta(t, p.AlphaMin, alpha, 1e-9)
}
