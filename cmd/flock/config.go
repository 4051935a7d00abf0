package main

import (
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/analysis"
	"github.com/PrincetonUniversity/flocksphere/ensemble"
	"github.com/PrincetonUniversity/flocksphere/store"
	"gopkg.in/gcfg.v1"
)

// Config holds the various parameters required by the flock commands.
type Config struct {
	// Run identification and output
	Tag     string // tag of the run
	ID      int    // id of the run
	DataDir string // root of the data directory
	Format  string // possible values: json, csv, hdf5
	Seed    uint64 // 0 means seeded from the clock
	Workers int    // 0 means one per CPU

	// Model parameters
	SwarmSize         int     // number of particles
	Radius            float64 // radius of the sphere
	Speed             float64 // unit: radius/time
	Dt                float64 // duration of time steps
	InteractionRadius float64 // unit: radius (chord)
	Eta               float64 // unit: 1
	Noise             string  // possible values: uniform, normal
	NoiseSigma        float64 // unit: rad (normal noise at eta = 1)
	CollisionStrength float64 // unit: 1
	CollisionRadius   float64 // unit: radius (chord)
	Iterations        int     // number of time steps
	FrameInterval     int     // steps between recorded frames

	// Initial states
	MinSeparation float64 // unit: radius (chord)
	MaxRejections int     // consecutive rejections before giving up
	Entries       int     // number of entries made by generate
	EnsembleTag   string  // tag of the entries
	EnsembleID    int     // entry used by simulate, -1 generates one on the fly
	InitialState  string  // optional text table used instead of an entry

	// Analysis parameters
	ClusterRadius float64 // unit: radius (chord)
	MinAlignment  float64 // cosine, -1 ignores headings
	BurnIn        int     // frames left out of the summaries
}

// DefaultConf are the default parameters.
var DefaultConf = &Config{
	Tag:               "default",
	ID:                0,
	DataDir:           store.DefaultRoot,
	Format:            "json",
	Seed:              0,
	Workers:           0,
	SwarmSize:         200,
	Radius:            1,
	Speed:             0.05,
	Dt:                1,
	InteractionRadius: 0.2,
	Eta:               0.1,
	Noise:             "uniform",
	NoiseSigma:        0.5,
	CollisionStrength: 0,
	CollisionRadius:   0,
	Iterations:        1000,
	FrameInterval:     10,
	MinSeparation:     0.01,
	MaxRejections:     ensemble.DefaultMaxRejections,
	Entries:           10,
	EnsembleTag:       "default",
	EnsembleID:        -1,
	InitialState:      "",
	ClusterRadius:     0.2,
	MinAlignment:      -1,
	BurnIn:            0,
}

// wrapper maps the [flock] section of a gcfg file.
type wrapper struct {
	Flock Config
}

// ParseConfig parses the config file whose path is provided: TOML for .toml
// files, gcfg (INI) with a [flock] section for .gcfg and .ini files.
func ParseConfig(path string) (*Config, error) {
	// config file overwrites default parameters
	conf := *DefaultConf
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &conf); err != nil {
			return nil, err
		}
	case ".gcfg", ".ini":
		w := wrapper{Flock: conf}
		if err := gcfg.ReadFileInto(&w, path); err != nil {
			return nil, err
		}
		conf = w.Flock
	default:
		return nil, fmt.Errorf("unknown config format %q (possible values: .toml, .gcfg, .ini)", ext)
	}
	if err := conf.check(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// check validates the fields that are not checked by the library.
func (c *Config) check() error {
	switch c.Format {
	case "json", "csv", "hdf5":
	default:
		return fmt.Errorf("bad format %q (possible values: json, csv, hdf5)", c.Format)
	}
	if c.Tag == "" || c.EnsembleTag == "" {
		return fmt.Errorf("tags must not be empty")
	}
	if c.ID < 0 {
		return fmt.Errorf("bad run id %d", c.ID)
	}
	if c.Workers < 0 {
		return fmt.Errorf("bad number of workers %d", c.Workers)
	}
	if !(c.ClusterRadius >= 0) || math.IsInf(c.ClusterRadius, 0) {
		return fmt.Errorf("cluster radius must be non-negative and finite, got %g", c.ClusterRadius)
	}
	if !(c.MinAlignment <= 1) || math.IsInf(c.MinAlignment, 0) {
		return fmt.Errorf("min alignment must be finite and at most 1, got %g", c.MinAlignment)
	}
	return nil
}

// Params returns the model parameters of c.
func (c *Config) Params() (fs.Params, error) {
	kind, err := fs.ParseNoiseKind(c.Noise)
	if err != nil {
		return fs.Params{}, err
	}
	p := fs.Params{
		N:                 c.SwarmSize,
		Radius:            c.Radius,
		Speed:             c.Speed,
		Dt:                c.Dt,
		InteractionRadius: c.InteractionRadius,
		Eta:               c.Eta,
		Noise:             fs.NoiseModel{Kind: kind, Sigma: c.NoiseSigma},
		CollisionStrength: c.CollisionStrength,
		CollisionRadius:   c.CollisionRadius,
		Iterations:        c.Iterations,
	}
	return p, p.Validate()
}

// EnsembleParams returns the parameters of generated initial states.
func (c *Config) EnsembleParams() ensemble.Params {
	return ensemble.Params{
		N:             c.SwarmSize,
		Radius:        c.Radius,
		Speed:         c.Speed,
		MinSeparation: c.MinSeparation,
		MaxRejections: c.MaxRejections,
	}
}

// ClusterOptions returns the options of the cluster analysis.
func (c *Config) ClusterOptions() analysis.ClusterOptions {
	return analysis.ClusterOptions{Radius: c.ClusterRadius, MinAlignment: c.MinAlignment}
}

// seed returns the configured seed, or one taken from the clock.
func (c *Config) seed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}

// workers returns the number of goroutines to use.
func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
