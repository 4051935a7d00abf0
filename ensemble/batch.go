package ensemble

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// GenerateBatch generates count entries numbered 0 to count-1 on up to
// workers goroutines, no more than there are CPUs or entries. Finished
// entries are passed to sink, in completion order, from the calling
// goroutine only. The first error from a generator or from sink stops
// the batch and is returned.
func GenerateBatch(ctx context.Context, tag string, count, workers int, p Params, seed uint64, sink func(*Entry) error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if count <= 0 {
		return nil
	}
	workers = min(max(workers, 1), runtime.NumCPU(), count)
	per := (count + workers - 1) / workers

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	out := make(chan *Entry)
	for w := 0; w < workers; w++ {
		start, end := w*per, min((w+1)*per, count)
		if start >= end {
			break
		}
		g.Go(func() error {
			for id := start; id < end; id++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				e, err := GenerateEntry(tag, id, p, seed)
				if err != nil {
					return err
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(out)
	}()

	var sinkErr error
	for e := range out {
		if sinkErr != nil {
			continue
		}
		if sinkErr = sink(e); sinkErr != nil {
			cancel()
		}
	}
	if err := <-done; sinkErr == nil {
		return err
	}
	return sinkErr
}
