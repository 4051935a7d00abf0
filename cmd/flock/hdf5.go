package main

import (
	"context"
	"log"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/hdf5"
)

// RunHDF5 runs a simulation and saves its frames to an HDF5 file.
// The whole configuration is kept as attributes of the "config" dataset.
func RunHDF5(ctx context.Context, conf *Config, s *fs.Simulation, output string) error {
	err := hdf5.Run(ctx, s, &hdf5.Config{
		Output:   output,
		Attrs:    conf,
		Datasets: hdf5.DefaultDatasets(s.Params.N),
	})
	if err != nil {
		return err
	}
	log.Printf("wrote %s", output)
	return nil
}

// loadHDF5 reads back the frames written by RunHDF5.
func loadHDF5(conf *Config, path string) ([]fs.Frame, error) {
	p, err := conf.Params()
	if err != nil {
		return nil, err
	}
	return hdf5.ReadFrames(path, p.Dt, p.Radius, p.Speed)
}
