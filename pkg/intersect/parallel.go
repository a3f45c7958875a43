package intersect

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PreprocessAll runs Preprocess for every pair on up to workers
// goroutines, each with its own Scratch. brushes is indexed by order.
// Result i belongs to pairs[i]; a pair naming an unknown brush gets
// invalid records. The only error is cancellation of ctx.
func PreprocessAll(ctx context.Context, pairs []BrushPair, brushes []BrushInput, workers int) ([]PairResult, error) {
	results := make([]PairResult, len(pairs))
	if len(pairs) == 0 {
		return results, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(pairs))

	lookup := func(order int32) (BrushInput, bool) {
		if order < 0 || int(order) >= len(brushes) || brushes[order].Order != order {
			return BrushInput{}, false
		}
		return brushes[order], true
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var scratch Scratch
			for i := w; i < len(pairs); i += workers {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("preprocess pair %d: %w", i, err)
				}
				pair := pairs[i]
				a, okA := lookup(pair.A)
				b, okB := lookup(pair.B)
				if !okA || !okB {
					results[i] = invalidResult(pair)
					continue
				}
				results[i] = Preprocess(pair, a, b, &scratch)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
