package main

import (
	"context"
	"fmt"
	"log"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/analysis"
	"github.com/PrincetonUniversity/flocksphere/store"
)

// analyze computes the order parameter and cluster series of a stored run.
func analyze(ctx context.Context, conf *Config) error {
	l := store.NewLayout(conf.DataDir)
	if err := l.EnsureDirs(); err != nil {
		return err
	}

	var frames []fs.Frame
	var err error
	if conf.Format == "hdf5" {
		frames, err = loadHDF5(conf, l.Path(store.Simulation, conf.Tag, conf.ID, "h5"))
	} else {
		var r *fs.Result
		if r, err = l.LoadResult(conf.Tag, conf.ID); err == nil {
			frames = r.Frames
		}
	}
	if err != nil {
		return err
	}
	log.Printf("analyzing %d frames of run %s-%d", len(frames), conf.Tag, conf.ID)

	rep := &store.Report{
		Source:        store.Key{Tag: conf.Tag, ID: conf.ID},
		ClusterRadius: conf.ClusterRadius,
		MinAlignment:  conf.MinAlignment,
		BurnIn:        conf.BurnIn,
		OrderSeries:   analysis.OrderSeries(frames),
	}
	if rep.Order, err = analysis.Summarize(analysis.Orders(rep.OrderSeries), conf.BurnIn); err != nil {
		return fmt.Errorf("order parameter: %w", err)
	}

	if conf.ClusterRadius > 0 {
		rep.ClusterSeries = analysis.ClusterSeries(frames, conf.ClusterOptions())
		largest := make([]float64, len(rep.ClusterSeries))
		for i, c := range rep.ClusterSeries {
			largest[i] = float64(c.Largest)
		}
		if rep.LargestGroup, err = analysis.Summarize(largest, conf.BurnIn); err != nil {
			return fmt.Errorf("largest cluster: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.SaveReport(rep)
	if err != nil {
		return err
	}
	log.Printf("wrote %s", path)

	fmt.Printf("order parameter: %.4f ± %.4f over %d frames\n", rep.Order.Mean, rep.Order.Std, rep.Order.Samples)
	if rep.ClusterSeries != nil {
		fmt.Printf("largest cluster: %.1f ± %.1f particles\n", rep.LargestGroup.Mean, rep.LargestGroup.Std)
	}
	return nil
}
