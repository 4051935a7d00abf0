package main

import (
	"context"
	"fmt"
	"log"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/ensemble"
	"github.com/PrincetonUniversity/flocksphere/store"
)

// simulate runs a simulation and saves its frames in the configured format.
func simulate(ctx context.Context, conf *Config) error {
	params, err := conf.Params()
	if err != nil {
		return err
	}

	l := store.NewLayout(conf.DataDir)
	if err := l.EnsureDirs(); err != nil {
		return err
	}

	seed := conf.seed()
	swarm, entry, err := initialState(conf, l, seed)
	if err != nil {
		return err
	}

	s, err := setup(conf, params, swarm, seed)
	if err != nil {
		return err
	}

	if conf.Format == "hdf5" {
		err = RunHDF5(ctx, conf, s, l.Path(store.Simulation, conf.Tag, conf.ID, "h5"))
	} else {
		err = runStore(ctx, conf, s, l, entry)
	}
	if err != nil {
		return err
	}
	if s.Repairs > 0 {
		log.Printf("%d degenerate vectors replaced during the run", s.Repairs)
	}
	return nil
}

// setup initializes the simulation.
func setup(conf *Config, params fs.Params, swarm []fs.Particle, seed uint64) (*fs.Simulation, error) {
	s, err := fs.New(params, swarm, seed)
	if err != nil {
		return nil, err
	}
	s.Workers = conf.workers()
	s.FrameInterval = conf.FrameInterval
	log.Printf("run %s-%d: %d particles, %d steps, seed %d", conf.Tag, conf.ID, params.N, params.Iterations, seed)
	return s, nil
}

// initialState returns the starting swarm and the id of the ensemble entry
// it comes from, or -1.
func initialState(conf *Config, l store.Layout, seed uint64) ([]fs.Particle, int, error) {
	switch {
	case conf.InitialState != "":
		log.Printf("reading initial state from %s", conf.InitialState)
		swarm, err := store.ReadTable(conf.InitialState)
		return swarm, -1, err

	case conf.EnsembleID >= 0:
		e, err := l.LoadEnsemble(conf.EnsembleTag, conf.EnsembleID)
		if err != nil {
			return nil, 0, err
		}
		if e.Params.Radius != conf.Radius {
			return nil, 0, fmt.Errorf("entry %s-%d: radius %g, expected %g", e.Tag, e.ID, e.Params.Radius, conf.Radius)
		}
		log.Printf("initial state from entry %s-%d", e.Tag, e.ID)
		return e.Particles, e.ID, nil

	default:
		e, err := ensemble.GenerateEntry(conf.EnsembleTag, 0, conf.EnsembleParams(), seed)
		if err != nil {
			return nil, 0, err
		}
		return e.Particles, -1, nil
	}
}

// runStore runs s and saves the result as JSON, with its frames as CSV
// when that format is asked for.
func runStore(ctx context.Context, conf *Config, s *fs.Simulation, l store.Layout, entry int) error {
	c := fs.NewCollector(fs.RunInfo{
		ID:         conf.ID,
		Tag:        conf.Tag,
		EnsembleID: entry,
		Params:     s.Params,
		Seed:       s.Seed,
	})

	err := s.Run(ctx, func(f fs.Frame) error {
		// show progress as percentage
		fmt.Printf("\r% 3d%%", 100*f.Step/s.Params.Iterations)
		return c.Add(f)
	})
	if err != nil {
		return err
	}
	fmt.Printf("\r100%%\n")

	final := s.Snapshot()
	if c.Len() == 0 {
		// same as the HDF5 output: keep the last state as the only frame
		if err := c.Add(final); err != nil {
			return err
		}
	}
	r := c.Finalize(final)
	path, err := l.SaveResult(&r)
	if err != nil {
		return err
	}
	log.Printf("wrote %s (%d frames in %s)", path, len(r.Frames), r.Info.Duration)

	if conf.Format == "csv" {
		path, err := l.SaveFramesCSV(&r)
		if err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}
