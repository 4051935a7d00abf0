package flocksphere

import (
	"fmt"
	"math"

	"github.com/PrincetonUniversity/flocksphere/geom"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the relative deviation from the geometric invariants that
// NewParticle repairs. Larger deviations are rejected.
const Tolerance = 1e-6

// A Particle is a self-propelled agent on the sphere.
// Its position lies on the sphere and its velocity is tangent to it.
type Particle struct {
	Pos geom.Vec // position, |Pos| = radius
	Vel geom.Vec // velocity, Vel·Pos = 0 and |Vel| = speed
}

// Tangentialize projects v onto the tangent plane at p and rescales it to
// exactly speed. It is idempotent on vectors that are already tangent and of
// the right magnitude. It fails with geom.ErrDegenerate when nothing of v
// is left after the projection.
func Tangentialize(p, v geom.Vec, speed float64) (geom.Vec, error) {
	u, err := geom.Normalize(geom.Tangent(p, v))
	if err != nil {
		return v, err
	}
	return r3.Scale(speed, u), nil
}

// FromSpherical returns a particle at polar angle θ and azimuth φ whose
// velocity makes an angle α with the local eastward direction φ̂, turning
// towards θ̂.
func FromSpherical(radius, θ, φ, speed, α float64) Particle {
	thetaHat, phiHat := geom.Basis(θ, φ)
	sinα, cosα := math.Sincos(α)
	return Particle{
		Pos: geom.FromSpherical(radius, θ, φ),
		Vel: r3.Scale(speed, r3.Add(r3.Scale(cosα, phiHat), r3.Scale(sinα, thetaHat))),
	}
}

// A FrameError reports a particle of external data that violates the
// geometric invariants by more than Tolerance.
type FrameError struct {
	Index  int    // index of the particle in the frame
	Reason string // violated invariant
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: particle %d: %s", ErrInconsistentFrame, e.Index, e.Reason)
}

// Unwrap returns ErrInconsistentFrame.
func (e *FrameError) Unwrap() error {
	return ErrInconsistentFrame
}

// NewParticle builds a particle from external data. Positions within
// Tolerance of the sphere are projected back onto it, and velocities within
// Tolerance of the right speed and tangency are re-tangentialized. Anything
// further off is rejected with a *FrameError whose Index is i.
//
// A zero velocity means the velocity is unknown: a random heading is drawn
// from rng. rng may be nil when every velocity is known.
func NewParticle(i int, pos, vel geom.Vec, radius, speed float64, rng *rand.Rand) (Particle, error) {
	r := r3.Norm(pos)
	if !(math.Abs(r-radius) <= Tolerance*radius) {
		return Particle{}, &FrameError{Index: i, Reason: fmt.Sprintf("|position| = %g, radius is %g", r, radius)}
	}
	pos = r3.Scale(radius/r, pos)

	if vel == (geom.Vec{}) && speed > 0 {
		if rng == nil {
			return Particle{}, &FrameError{Index: i, Reason: "missing velocity"}
		}
		u, err := geom.RandomTangent(rng, pos)
		if err != nil {
			return Particle{}, &FrameError{Index: i, Reason: err.Error()}
		}
		return Particle{Pos: pos, Vel: r3.Scale(speed, u)}, nil
	}

	scale := math.Max(speed, 1)
	s := r3.Norm(vel)
	if !(math.Abs(s-speed) <= Tolerance*scale) {
		return Particle{}, &FrameError{Index: i, Reason: fmt.Sprintf("|velocity| = %g, speed is %g", s, speed)}
	}
	if d := r3.Dot(vel, pos) / radius; !(math.Abs(d) <= Tolerance*scale) {
		return Particle{}, &FrameError{Index: i, Reason: fmt.Sprintf("velocity not tangent (radial component %g)", d)}
	}
	if speed == 0 {
		return Particle{Pos: pos}, nil
	}
	v, err := Tangentialize(pos, vel, speed)
	if err != nil {
		return Particle{}, &FrameError{Index: i, Reason: err.Error()}
	}
	return Particle{Pos: pos, Vel: v}, nil
}

// Deviation returns how far p is from the geometric invariants:
// the radial error of the position, the radial component of the velocity
// and the error on the speed.
func (p Particle) Deviation(radius, speed float64) (dr, radial, ds float64) {
	dr = math.Abs(r3.Norm(p.Pos) - radius)
	if n := r3.Norm(p.Pos); n > 0 {
		radial = math.Abs(r3.Dot(p.Vel, p.Pos)) / n
	}
	ds = math.Abs(r3.Norm(p.Vel) - speed)
	return dr, radial, ds
}

// Heading returns the unit velocity of p.
func (p Particle) Heading() (geom.Vec, error) {
	return geom.Normalize(p.Vel)
}
