package flocksphere

import (
	"context"
	"math"
	"testing"

	"github.com/PrincetonUniversity/flocksphere/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// order is the norm of the mean unit heading.
func order(swarm []Particle) float64 {
	var sum geom.Vec
	for _, p := range swarm {
		if u, err := p.Heading(); err == nil {
			sum = r3.Add(sum, u)
		}
	}
	return r3.Norm(sum) / float64(len(swarm))
}

// uniformSwarm places n particles at random on the sphere
// without velocities.
func uniformSwarm(seed uint64, n int, radius float64) []Particle {
	rng := rand.New(rand.NewSource(seed))
	swarm := make([]Particle, n)
	for i := range swarm {
		swarm[i].Pos = r3.Scale(radius, geom.RandomUnit(rng))
	}
	return swarm
}

// capSwarm places n particles with random headings
// within cap radians of the north pole.
func capSwarm(seed uint64, n int, radius, speed, cap float64) []Particle {
	rng := rand.New(rand.NewSource(seed))
	swarm := make([]Particle, n)
	for i := range swarm {
		θ := cap * math.Sqrt(rng.Float64())
		swarm[i] = FromSpherical(radius, θ, 2*math.Pi*rng.Float64(), speed, 2*math.Pi*rng.Float64())
	}
	return swarm
}

func TestNewSimulation(t *testing.T) {
	p := testParams()
	p.N = 10

	_, err := New(p, uniformSwarm(1, 9, 1), 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := testParams()
	bad.Dt = -1
	_, err = New(bad, uniformSwarm(1, bad.N, 1), 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	swarm := uniformSwarm(1, 10, 1)
	swarm[4].Pos = r3.Scale(1.1, swarm[4].Pos)
	_, err = New(p, swarm, 1)
	var ferr *FrameError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 4, ferr.Index)

	// missing velocities are drawn at random
	s, err := New(p, uniformSwarm(1, 10, 1), 1)
	require.NoError(t, err)
	for _, q := range s.Swarm {
		assert.InDelta(t, p.Speed, r3.Norm(q.Vel), 1e-14)
		assert.InDelta(t, 0, r3.Dot(q.Vel, q.Pos), 1e-14)
	}
	assert.Equal(t, 0, s.Iteration())
	assert.False(t, s.Finished())
}

func TestInvariantPreservation(t *testing.T) {
	p := Params{
		N:                 150,
		Radius:            2,
		Speed:             0.3,
		Dt:                0.1,
		InteractionRadius: 0.5,
		Eta:               0.3,
		Noise:             NoiseModel{Kind: Normal, Sigma: 1},
		CollisionStrength: 0.5,
		CollisionRadius:   0.1,
		Iterations:        60,
	}
	s, err := New(p, uniformSwarm(2, p.N, p.Radius), 2)
	require.NoError(t, err)

	eps := 1e-9 * p.Radius
	frames := 0
	err = s.Run(context.Background(), func(f Frame) error {
		frames++
		for i, q := range f.Particles {
			dr, radial, ds := q.Deviation(p.Radius, p.Speed)
			if dr > eps || radial > eps || ds > eps {
				t.Fatalf("step %d, particle %d: dr=%g radial=%g ds=%g", f.Step, i, dr, radial, ds)
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.Iterations, frames)
	assert.True(t, s.Finished())
	assert.InDelta(t, 6, s.Time(), 1e-12)
}

func TestZeroNoiseConvergence(t *testing.T) {
	p := testParams()
	p.Eta = 0
	p.InteractionRadius = 1
	p.Iterations = 40
	s, err := New(p, capSwarm(3, p.N, p.Radius, p.Speed, 0.02), 3)
	require.NoError(t, err)

	series := []float64{order(s.Swarm)}
	require.NoError(t, s.Run(context.Background(), func(f Frame) error {
		series = append(series, order(f.Particles))
		return nil
	}))

	assert.Less(t, series[0], 0.9)
	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i], series[i-1]-1e-12, "step %d", i)
	}
	assert.Greater(t, series[len(series)-1], 0.99)
	assert.Greater(t, series[5], 0.99)
}

func TestHighNoiseDisorder(t *testing.T) {
	p := testParams()
	p.Eta = 1
	// every chord is at most 2*Radius
	p.InteractionRadius = 3 * p.Radius
	p.Iterations = 300
	s, err := New(p, uniformSwarm(4, p.N, p.Radius), 4)
	require.NoError(t, err)

	var sum float64
	var n int
	require.NoError(t, s.Run(context.Background(), func(f Frame) error {
		sum += order(f.Particles)
		n++
		return nil
	}))
	assert.Less(t, sum/float64(n), 0.3)
}

func TestIsolatedParticle(t *testing.T) {
	p := Params{N: 1, Radius: 2, Speed: 0.5, Dt: 0.2, Iterations: 10}
	s, err := New(p, []Particle{{Pos: geom.Vec{X: 2}, Vel: geom.Vec{Y: 0.5}}}, 0)
	require.NoError(t, err)

	for k := 1; k <= p.Iterations; k++ {
		s.Step()
		θ := 0.05 * float64(k)
		q := s.Swarm[0]
		want := geom.Vec{X: 2 * math.Cos(θ), Y: 2 * math.Sin(θ)}
		assert.True(t, vecEpsEq(want, q.Pos, 1e-12), "step %d: %v != %v", k, q.Pos, want)
		want = geom.Vec{X: -0.5 * math.Sin(θ), Y: 0.5 * math.Cos(θ)}
		assert.True(t, vecEpsEq(want, q.Vel, 1e-12), "step %d: %v != %v", k, q.Vel, want)
		assert.InDelta(t, 0.5, r3.Norm(q.Vel), 1e-15)
	}
	assert.Zero(t, s.Repairs)
}

func TestAntipodalStep(t *testing.T) {
	p := Params{N: 2, Radius: 1, Speed: 1, Dt: 0.1, Iterations: 1}
	start := []Particle{
		{Pos: geom.Vec{X: 1}, Vel: geom.Vec{Y: 1}},
		{Pos: geom.Vec{X: -1}, Vel: geom.Vec{Z: 1}},
	}
	s, err := New(p, start, 0)
	require.NoError(t, err)
	s.Step()

	for i, old := range start {
		q := s.Swarm[i]
		assert.InDelta(t, math.Cos(0.1), r3.Dot(q.Pos, old.Pos), 1e-14)
		assert.InDelta(t, math.Sin(0.1), r3.Dot(q.Pos, old.Vel), 1e-14)
		assert.InDelta(t, 2*math.Sin(0.05), geom.Chord(q.Pos, old.Pos), 1e-14)
		assert.InDelta(t, 0.1, geom.Arc(q.Pos, old.Pos, 1), 1e-14)
		assert.InDelta(t, 0, r3.Dot(q.Vel, q.Pos), 1e-14)
	}
	want := geom.Vec{X: -math.Cos(0.1), Z: math.Sin(0.1)}
	assert.True(t, vecEpsEq(want, s.Swarm[1].Pos, 1e-14), "%v", s.Swarm[1].Pos)
}

func TestCollisionRepels(t *testing.T) {
	p := Params{
		N:                 2,
		Radius:            1,
		Speed:             0.1,
		Dt:                0.1,
		CollisionStrength: 1,
		CollisionRadius:   0.05,
		Iterations:        1,
	}
	start := []Particle{
		FromSpherical(1, math.Pi/2, 0, 0.1, math.Pi/2),
		FromSpherical(1, math.Pi/2, 0.01, 0.1, math.Pi/2),
	}
	s, err := New(p, start, 0)
	require.NoError(t, err)
	before := geom.Chord(s.Swarm[0].Pos, s.Swarm[1].Pos)
	s.Step()
	assert.Greater(t, geom.Chord(s.Swarm[0].Pos, s.Swarm[1].Pos), before)
	assert.Less(t, s.Swarm[0].Vel.Y, 0.0)
	assert.Greater(t, s.Swarm[1].Vel.Y, 0.0)
}

func TestMotionless(t *testing.T) {
	p := testParams()
	p.Speed = 0
	p.Iterations = 3
	s, err := New(p, uniformSwarm(5, p.N, p.Radius), 5)
	require.NoError(t, err)
	before := s.Snapshot()
	require.NoError(t, s.Run(context.Background(), nil))
	assert.Equal(t, before.Particles, s.Swarm)
}

func TestWorkersDeterminism(t *testing.T) {
	p := Params{
		N:                 120,
		Radius:            1,
		Speed:             0.2,
		Dt:                0.1,
		InteractionRadius: 0.4,
		Eta:               0.4,
		Noise:             NoiseModel{Kind: Uniform},
		CollisionStrength: 0.2,
		CollisionRadius:   0.05,
		Iterations:        25,
	}
	var ref []Particle
	for _, workers := range []int{1, 3, 8, 500} {
		s, err := New(p, uniformSwarm(6, p.N, p.Radius), 6)
		require.NoError(t, err)
		s.Workers = workers
		require.NoError(t, s.Run(context.Background(), nil))
		if ref == nil {
			ref = s.Swarm
			continue
		}
		assert.Equal(t, ref, s.Swarm, "%d workers", workers)
	}
}

func TestRunFrameInterval(t *testing.T) {
	p := testParams()
	p.Iterations = 12
	s, err := New(p, uniformSwarm(7, p.N, p.Radius), 7)
	require.NoError(t, err)
	s.FrameInterval = 5

	c := NewCollector(RunInfo{Tag: "interval", EnsembleID: -1})
	require.NoError(t, s.Run(context.Background(), c.Add))
	res := c.Finalize(s.Snapshot())

	require.Len(t, res.Frames, 2)
	assert.Equal(t, 5, res.Frames[0].Step)
	assert.Equal(t, 10, res.Frames[1].Step)
	assert.InDelta(t, 1.0, res.Frames[1].Timestamp, 1e-12)
	assert.Equal(t, 12, res.Info.TotalSteps)
	assert.Equal(t, s.Swarm, res.FinalState)

	s.FrameInterval = -1
	assert.ErrorIs(t, s.Run(context.Background(), nil), ErrInvalidConfig)
}

func TestRunCancel(t *testing.T) {
	p := testParams()
	s, err := New(p, uniformSwarm(8, p.N, p.Radius), 8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	err = s.Run(ctx, func(f Frame) error {
		if f.Step == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, s.Iteration())
	assert.False(t, s.Finished())

	// a canceled run resumes where it stopped
	require.NoError(t, s.Run(context.Background(), nil))
	assert.Equal(t, p.Iterations, s.Iteration())
}

func TestSnapshotIsCopy(t *testing.T) {
	p := testParams()
	s, err := New(p, uniformSwarm(9, p.N, p.Radius), 9)
	require.NoError(t, err)
	f := s.Snapshot()
	s.Step()
	s.Step()
	assert.NotEqual(t, f.Particles[0], s.Swarm[0])
	assert.Equal(t, 0, f.Step)
}

func TestStepEmptySwarm(t *testing.T) {
	p := testParams()
	s, err := New(p, uniformSwarm(10, p.N, p.Radius), 10)
	require.NoError(t, err)
	s.Swarm = nil
	assert.NotPanics(t, s.Step)
	assert.Equal(t, 1, s.Iteration())
	assert.Empty(t, s.Swarm)
}
