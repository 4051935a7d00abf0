package main

import (
	"context"
	"fmt"
	"log"

	"github.com/PrincetonUniversity/flocksphere/ensemble"
	"github.com/PrincetonUniversity/flocksphere/store"
)

// generate writes a batch of initial states to the ensemble directory.
func generate(ctx context.Context, conf *Config) error {
	l := store.NewLayout(conf.DataDir)
	if err := l.EnsureDirs(); err != nil {
		return err
	}

	seed := conf.seed()
	log.Printf("generating %d entries %q with seed %d", conf.Entries, conf.EnsembleTag, seed)

	done := 0
	err := ensemble.GenerateBatch(ctx, conf.EnsembleTag, conf.Entries, conf.workers(), conf.EnsembleParams(), seed,
		func(e *ensemble.Entry) error {
			path, err := l.SaveEnsemble(e)
			if err != nil {
				return err
			}
			done++
			log.Printf("wrote %s", path)
			// show progress as percentage
			fmt.Printf("\r% 3d%%", 100*done/conf.Entries)
			return nil
		})
	if err != nil {
		return err
	}
	fmt.Printf("\r100%%\n")
	return nil
}
