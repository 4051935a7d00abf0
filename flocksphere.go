// Package flocksphere runs Vicsek-type flocking simulations on a sphere.
//
// A fixed number of self-propelled particles move on the surface of a sphere
// at constant speed. At each step every particle aligns with the neighbors
// it finds within an interaction radius, its heading is perturbed by noise,
// and close neighbors push it away. Positions advance along great circles so
// particles never leave the sphere, and velocities are kept tangent to it.
package flocksphere

import (
	"errors"
	"fmt"
	"math"
)

// Errors reported by the simulation.
var (
	// ErrInvalidConfig is wrapped by every parameter validation failure.
	ErrInvalidConfig = errors.New("flocksphere: invalid configuration")

	// ErrInconsistentFrame is wrapped by FrameError.
	ErrInconsistentFrame = errors.New("flocksphere: inconsistent frame data")
)

// Params contains the parameters of a simulation run.
// They are validated once by New and never change afterwards.
type Params struct {
	N                 int        `json:"num_particles"`      // number of particles
	Radius            float64    `json:"radius"`             // radius of the sphere
	Speed             float64    `json:"speed"`              // unit: radius/time
	Dt                float64    `json:"dt"`                 // duration of time steps
	InteractionRadius float64    `json:"interaction_radius"` // chord distance of alignment
	Eta               float64    `json:"eta"`                // noise strength
	Noise             NoiseModel `json:"noise"`              // noise distribution
	CollisionStrength float64    `json:"collision_strength"` // 0 disables repulsion
	CollisionRadius   float64    `json:"collision_radius"`   // chord distance of repulsion
	Iterations        int        `json:"iterations"`         // number of steps of a run
}

// Validate checks the invariants of the parameters.
// Every error it returns wraps ErrInvalidConfig.
func (p *Params) Validate() error {
	switch {
	case p.N < 1:
		return invalid("num_particles must be at least 1, got %d", p.N)
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return invalid("radius must be positive and finite, got %g", p.Radius)
	case !(p.Speed >= 0) || math.IsInf(p.Speed, 0):
		return invalid("speed must be non-negative and finite, got %g", p.Speed)
	case !(p.Dt > 0) || math.IsInf(p.Dt, 0):
		return invalid("dt must be positive and finite, got %g", p.Dt)
	case !(p.InteractionRadius >= 0) || math.IsInf(p.InteractionRadius, 0):
		return invalid("interaction_radius must be non-negative and finite, got %g", p.InteractionRadius)
	case !(p.Eta >= 0) || math.IsInf(p.Eta, 0):
		return invalid("eta must be non-negative and finite, got %g", p.Eta)
	case !(p.CollisionStrength >= 0) || math.IsInf(p.CollisionStrength, 0):
		return invalid("collision_strength must be non-negative and finite, got %g", p.CollisionStrength)
	case !(p.CollisionRadius >= 0) || math.IsInf(p.CollisionRadius, 0):
		return invalid("collision_radius must be non-negative and finite, got %g", p.CollisionRadius)
	case p.Iterations < 0:
		return invalid("iterations must be non-negative, got %d", p.Iterations)
	}
	return p.Noise.validate()
}

// AngularStep returns the angle swept by a particle in one step.
func (p *Params) AngularStep() float64 {
	return p.Speed * p.Dt / p.Radius
}

// queryRadius returns the neighbor search radius covering both
// the alignment and the repulsion interactions.
func (p *Params) queryRadius() float64 {
	r := p.InteractionRadius
	if p.CollisionStrength > 0 && p.CollisionRadius > r {
		r = p.CollisionRadius
	}
	return r
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
