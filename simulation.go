package flocksphere

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/PrincetonUniversity/flocksphere/geom"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// A Simulation contains all the state and parameters of a simulation.
//
// Steps are synchronous: every particle's next state is computed from the
// state at the start of the step and written to a second buffer, which is
// then swapped in. Workers only read the shared snapshot and only write
// their own range of the output buffer.
type Simulation struct {
	Swarm  []Particle // current state, indexed by particle id
	Params Params

	// Seed determines the noise of the run together with the step number
	// and the particle index, whatever the number of workers.
	Seed uint64

	// Workers is the number of goroutines used per step.
	// Zero means runtime.NumCPU().
	Workers int

	// FrameInterval is the number of steps between two frames passed to
	// the recorder of Run. Zero means every step.
	FrameInterval int

	// Repairs counts the degenerate vectors that were replaced
	// by a fallback since the start of the run.
	Repairs int64

	iter int
	next []Particle
	pos  []geom.Vec
}

// New validates the parameters and the initial swarm and returns a
// simulation ready to step. Particles are repaired or rejected as in
// NewParticle; missing velocities are drawn at random from seed.
func New(params Params, swarm []Particle, seed uint64) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(swarm) != params.N {
		return nil, invalid("num_particles is %d but %d particles were given", params.N, len(swarm))
	}

	rng := rand.New(rand.NewSource(mix(seed ^ 0x5eed)))
	s := &Simulation{
		Params: params,
		Seed:   seed,
		Swarm:  make([]Particle, len(swarm)),
		next:   make([]Particle, len(swarm)),
		pos:    make([]geom.Vec, len(swarm)),
	}
	for i, p := range swarm {
		q, err := NewParticle(i, p.Pos, p.Vel, params.Radius, params.Speed, rng)
		if err != nil {
			return nil, err
		}
		s.Swarm[i] = q
	}
	return s, nil
}

// Iteration returns the number of steps taken so far.
func (s *Simulation) Iteration() int {
	return s.iter
}

// Time returns the simulated time.
func (s *Simulation) Time() float64 {
	return float64(s.iter) * s.Params.Dt
}

// Finished reports whether the run reached Params.Iterations steps.
func (s *Simulation) Finished() bool {
	return s.iter >= s.Params.Iterations
}

// Snapshot returns an immutable copy of the current state.
func (s *Simulation) Snapshot() Frame {
	return Frame{
		Step:      s.iter,
		Timestamp: s.Time(),
		Particles: append([]Particle(nil), s.Swarm...),
	}
}

// Step runs a single simulation step.
func (s *Simulation) Step() {
	n := len(s.Swarm)
	if n == 0 {
		s.iter++
		return
	}
	if len(s.next) != n {
		s.next = make([]Particle, n)
		s.pos = make([]geom.Vec, n)
	}
	for i, p := range s.Swarm {
		s.pos[i] = p.Pos
	}
	grid := NewGrid(s.pos, s.Params.queryRadius())

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	repairs := make([]int64, workers)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start, end := w*chunk, min((w+1)*chunk, n)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			var buf []int
			for i := start; i < end; i++ {
				var fixed int64
				buf = grid.Neighbors(i, buf)
				s.next[i], fixed = s.update(i, buf)
				repairs[w] += fixed
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, r := range repairs {
		s.Repairs += r
	}
	s.Swarm, s.next = s.next, s.Swarm
	s.iter++
}

// update computes the next state of particle i from the current swarm.
// nbrs are the particles within the query radius of i. It returns the
// number of degenerate vectors it had to work around.
func (s *Simulation) update(i int, nbrs []int) (Particle, int64) {
	prm := &s.Params
	p := s.Swarm[i]
	if prm.Speed == 0 {
		return p, 0
	}
	var fixed int64

	// align with neighbors, whose velocities live in other tangent planes
	sum, count := p.Vel, 1
	var push geom.Vec
	for _, j := range nbrs {
		q := s.Swarm[j]
		d := geom.Chord(p.Pos, q.Pos)
		if d < prm.InteractionRadius {
			sum = r3.Add(sum, geom.Transport(q.Pos, p.Pos, q.Vel))
			count++
		}
		if prm.CollisionStrength > 0 && d < prm.CollisionRadius && d > 0 {
			away, err := geom.Normalize(geom.Tangent(p.Pos, r3.Sub(p.Pos, q.Pos)))
			if err != nil {
				fixed++
				continue
			}
			f := prm.CollisionStrength * prm.Speed * (prm.CollisionRadius/d - 1)
			push = r3.Add(push, r3.Scale(f, away))
		}
	}
	heading := r3.Scale(1/float64(count), sum)
	if _, err := geom.Normalize(heading); err != nil {
		// neighbors cancel out
		heading = p.Vel
		fixed++
	}

	// add noise by turning within the tangent plane
	if prm.Eta > 0 {
		θ := prm.Noise.Sample(prm.Eta, noiseSource(s.Seed, s.iter, i))
		if v, err := geom.Rotate(heading, p.Pos, θ); err == nil {
			heading = v
		} else {
			fixed++
		}
	}

	heading = r3.Add(heading, push)

	vel, err := Tangentialize(p.Pos, heading, prm.Speed)
	if err != nil {
		vel = p.Vel
		fixed++
	}

	// move along the great circle tangent to the new velocity
	axis := r3.Cross(p.Pos, vel)
	if _, err := geom.Normalize(axis); err != nil {
		fixed++
		return Particle{Pos: p.Pos, Vel: vel}, fixed
	}
	rot := r3.NewRotation(prm.AngularStep(), axis)
	pos := rot.Rotate(p.Pos)
	pos = r3.Scale(prm.Radius/r3.Norm(pos), pos)

	next, err := Tangentialize(pos, rot.Rotate(vel), prm.Speed)
	if err != nil {
		next = rot.Rotate(vel)
		fixed++
	}
	return Particle{Pos: pos, Vel: next}, fixed
}

// Run steps the simulation until it is finished. Every FrameInterval steps
// it passes a snapshot to record, if not nil, from the calling goroutine.
// The context is checked between steps, so a canceled run always stops
// on a complete state.
func (s *Simulation) Run(ctx context.Context, record func(Frame) error) error {
	interval := s.FrameInterval
	if interval < 0 {
		return invalid("frame interval must be non-negative, got %d", interval)
	}
	if interval == 0 {
		interval = 1
	}
	for !s.Finished() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("flocksphere: stopped at step %d: %w", s.iter, err)
		}
		s.Step()
		if record != nil && s.iter%interval == 0 {
			if err := record(s.Snapshot()); err != nil {
				return err
			}
		}
	}
	return nil
}

// noiseSource returns the random source of particle i at the given step.
func noiseSource(seed uint64, step, i int) rand.Source {
	return rand.NewSource(mix(seed ^ mix(uint64(step)<<32^uint64(i))))
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
