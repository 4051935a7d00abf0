// Package ensemble generates random initial states for flocking runs.
//
// Positions are drawn uniformly on the sphere and kept only if they clear
// a minimum chord distance from every position accepted so far. Each
// particle gets an independent random heading.
package ensemble

import (
	"errors"
	"fmt"
	"math"
	"time"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/geom"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxRejections is used when Params.MaxRejections is zero.
const DefaultMaxRejections = 100000

// ErrGeneration is wrapped by GenerationError.
var ErrGeneration = errors.New("ensemble: generation failed")

// A GenerationError reports that the particles could not all be placed:
// MaxRejections candidates in a row were too close to accepted ones.
type GenerationError struct {
	Placed     int // particles accepted before giving up
	Requested  int
	Rejections int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: placed %d of %d particles before %d consecutive rejections",
		ErrGeneration, e.Placed, e.Requested, e.Rejections)
}

// Unwrap returns ErrGeneration.
func (e *GenerationError) Unwrap() error {
	return ErrGeneration
}

// Params contains the constraints of a generated initial state.
type Params struct {
	N             int     `json:"num_particles"`
	Radius        float64 `json:"radius"`
	Speed         float64 `json:"speed"`
	MinSeparation float64 `json:"min_separation"` // chord distance
	MaxRejections int     `json:"max_rejections"` // consecutive, 0 means DefaultMaxRejections
}

// Validate checks p. Errors wrap flocksphere.ErrInvalidConfig.
func (p *Params) Validate() error {
	switch {
	case p.N < 1:
		return invalid("num_particles must be at least 1, got %d", p.N)
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return invalid("radius must be positive and finite, got %g", p.Radius)
	case !(p.Speed >= 0) || math.IsInf(p.Speed, 0):
		return invalid("speed must be non-negative and finite, got %g", p.Speed)
	case !(p.MinSeparation >= 0) || math.IsInf(p.MinSeparation, 0):
		return invalid("min_separation must be non-negative and finite, got %g", p.MinSeparation)
	case p.MaxRejections < 0:
		return invalid("max_rejections must be non-negative, got %d", p.MaxRejections)
	}
	return nil
}

func (p *Params) maxRejections() int {
	if p.MaxRejections == 0 {
		return DefaultMaxRejections
	}
	return p.MaxRejections
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", fs.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Generate places p.N particles on the sphere, pairwise at least
// p.MinSeparation apart, with random headings of magnitude p.Speed.
func Generate(p Params, rng *rand.Rand) ([]fs.Particle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	limit := p.maxRejections()
	pos := make([]geom.Vec, 0, p.N)
	rejections := 0
	for len(pos) < p.N {
		c := r3.Scale(p.Radius, geom.RandomUnit(rng))
		if farFrom(pos, c, p.MinSeparation) {
			pos = append(pos, c)
			rejections = 0
			continue
		}
		rejections++
		if rejections >= limit {
			return nil, &GenerationError{Placed: len(pos), Requested: p.N, Rejections: rejections}
		}
	}

	swarm := make([]fs.Particle, p.N)
	for i, x := range pos {
		swarm[i].Pos = x
		if p.Speed == 0 {
			continue
		}
		u, err := geom.RandomTangent(rng, x)
		if err != nil {
			return nil, err
		}
		swarm[i].Vel = r3.Scale(p.Speed, u)
	}
	return swarm, nil
}

// farFrom reports whether c is at least sep away from every point of pos.
func farFrom(pos []geom.Vec, c geom.Vec, sep float64) bool {
	for _, x := range pos {
		if geom.Chord(x, c) < sep {
			return false
		}
	}
	return true
}

// An Entry is a stored initial state and the metadata identifying it.
type Entry struct {
	ID        int           `json:"id"`
	Tag       string        `json:"tag"`
	UUID      uuid.UUID     `json:"uuid"`
	Params    Params        `json:"params"`
	Seed      uint64        `json:"seed"`
	Particles []fs.Particle `json:"particles"`
	CreatedAt time.Time     `json:"created_at"`
}

// GenerateEntry generates the initial state of entry id of a batch.
// The result only depends on seed and id.
func GenerateEntry(tag string, id int, p Params, seed uint64) (*Entry, error) {
	s := EntrySeed(seed, id)
	swarm, err := Generate(p, rand.New(rand.NewSource(s)))
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}
	return &Entry{
		ID:        id,
		Tag:       tag,
		UUID:      uuid.New(),
		Params:    p,
		Seed:      s,
		Particles: swarm,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EntrySeed returns the seed of entry id of a batch seeded with seed.
func EntrySeed(seed uint64, id int) uint64 {
	x := seed + 0x9e3779b97f4a7c15*uint64(id+1)
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
