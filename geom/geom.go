// Package geom implements the vector kernel used on the surface of a sphere.
//
// Vectors are gonum r3 vectors, used both as points and as free vectors.
// Every operation that needs a direction (normalization, rotation axes,
// transport between points) reports degenerate input with ErrDegenerate
// instead of producing NaNs.
package geom

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a 3D Cartesian vector.
type Vec = r3.Vec

// Epsilon is the norm below which a vector has no usable direction.
const Epsilon = 1e-12

// ErrDegenerate is returned when a direction is requested from a vector
// whose norm is below Epsilon.
var ErrDegenerate = errors.New("geom: degenerate vector")

// Normalize returns the unit vector colinear to v.
func Normalize(v Vec) (Vec, error) {
	n := r3.Norm(v)
	if !(n >= Epsilon) || math.IsInf(n, 0) {
		return Vec{}, ErrDegenerate
	}
	return r3.Scale(1/n, v), nil
}

// Rotate returns v rotated by θ radians around axis (right-hand rule).
// The axis does not need to be normalized.
func Rotate(v, axis Vec, θ float64) (Vec, error) {
	if _, err := Normalize(axis); err != nil {
		return v, err
	}
	return r3.Rotate(v, θ, axis), nil
}

// Chord returns the straight-line distance between a and b.
func Chord(a, b Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Angle returns the angle between a and b in [0, π].
// It is 0 if either vector is zero.
func Angle(a, b Vec) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}

// Arc returns the great-circle distance between two points
// of a sphere of the given radius.
func Arc(a, b Vec, radius float64) float64 {
	return radius * Angle(a, b)
}

// Tangent returns the component of v orthogonal to p,
// that is the projection of v onto the tangent plane at p.
func Tangent(p, v Vec) Vec {
	n2 := r3.Norm2(p)
	if n2 == 0 {
		return v
	}
	return r3.Sub(v, r3.Scale(r3.Dot(v, p)/n2, p))
}

// Transport parallel-transports the tangent vector v from point a to
// point b along the great circle joining them. On a sphere this is the
// rotation about a×b by the angle between a and b. Coincident points leave
// v unchanged, and so do antipodal points, whose geodesic is undefined.
func Transport(a, b, v Vec) Vec {
	axis := r3.Cross(a, b)
	if r3.Norm(axis) < Epsilon*r3.Norm(a)*r3.Norm(b) {
		return v
	}
	return r3.Rotate(v, Angle(a, b), axis)
}

// FromSpherical returns the point at polar angle θ and azimuth φ
// on a sphere of the given radius.
func FromSpherical(radius, θ, φ float64) Vec {
	sinθ, cosθ := math.Sincos(θ)
	sinφ, cosφ := math.Sincos(φ)
	return Vec{X: radius * sinθ * cosφ, Y: radius * sinθ * sinφ, Z: radius * cosθ}
}

// Basis returns the local unit vectors (θ̂, φ̂) at polar angle θ and azimuth φ.
func Basis(θ, φ float64) (thetaHat, phiHat Vec) {
	sinθ, cosθ := math.Sincos(θ)
	sinφ, cosφ := math.Sincos(φ)
	thetaHat = Vec{X: cosθ * cosφ, Y: cosθ * sinφ, Z: -sinθ}
	phiHat = Vec{X: -sinφ, Y: cosφ}
	return thetaHat, phiHat
}

// maxDraws bounds the redraws of the random direction helpers.
// A draw is only rejected when it is numerically zero, so this is never
// reached in practice.
const maxDraws = 64

// RandomUnit returns a unit vector uniformly distributed on the sphere.
// Independent standard normal components are isotropic, so normalizing
// them avoids the polar bias of sampling spherical angles.
func RandomUnit(rng *rand.Rand) Vec {
	for i := 0; i < maxDraws; i++ {
		v := Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if u, err := Normalize(v); err == nil {
			return u
		}
	}
	return Vec{Z: 1}
}

// RandomTangent returns a unit vector tangent to the sphere at p
// with a uniformly distributed heading.
func RandomTangent(rng *rand.Rand, p Vec) (Vec, error) {
	if _, err := Normalize(p); err != nil {
		return Vec{}, err
	}
	for i := 0; i < maxDraws; i++ {
		if t, err := Normalize(Tangent(p, RandomUnit(rng))); err == nil {
			return t, nil
		}
	}
	return Vec{}, ErrDegenerate
}
