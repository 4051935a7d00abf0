package flocksphere

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testParams() Params {
	return Params{
		N:                 20,
		Radius:            1,
		Speed:             0.5,
		Dt:                0.1,
		InteractionRadius: 0.3,
		Eta:               0.2,
		Noise:             NoiseModel{Kind: Uniform},
		CollisionStrength: 0,
		CollisionRadius:   0,
		Iterations:        100,
	}
}

func TestParamsValidate(t *testing.T) {
	p := testParams()
	assert.NoError(t, p.Validate())

	p.InteractionRadius = 3 * p.Radius
	p.Speed = 0
	p.Iterations = 0
	assert.NoError(t, p.Validate(), "all-to-all, motionless and empty runs are valid")

	bad := []func(*Params){
		func(p *Params) { p.N = 0 },
		func(p *Params) { p.Radius = 0 },
		func(p *Params) { p.Radius = math.Inf(1) },
		func(p *Params) { p.Speed = -1 },
		func(p *Params) { p.Speed = math.NaN() },
		func(p *Params) { p.Dt = 0 },
		func(p *Params) { p.InteractionRadius = -0.1 },
		func(p *Params) { p.InteractionRadius = math.Inf(1) },
		func(p *Params) { p.CollisionRadius = math.Inf(1) },
		func(p *Params) { p.Eta = -0.1 },
		func(p *Params) { p.CollisionStrength = -1 },
		func(p *Params) { p.CollisionRadius = math.NaN() },
		func(p *Params) { p.Iterations = -1 },
		func(p *Params) { p.Noise.Kind = NoiseKind(5) },
		func(p *Params) { p.Noise = NoiseModel{Kind: Normal, Sigma: -1} },
	}
	for i, mutate := range bad {
		p := testParams()
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidConfig, "case %d", i)
	}
}

func TestQueryRadius(t *testing.T) {
	p := testParams()
	p.CollisionRadius = 0.5
	assert.Equal(t, 0.3, p.queryRadius(), "repulsion is off")
	p.CollisionStrength = 1
	assert.Equal(t, 0.5, p.queryRadius())
	assert.InDelta(t, 0.05, p.AngularStep(), 1e-15)
}
