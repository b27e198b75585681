package algorithms

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

// workerCount resolves the configured pool size. Zero means GOMAXPROCS;
// the pool never exceeds the batch size.
func workerCount(configured, batch int) int {
	w := configured
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, batch))
}

// evaluate scores every unevaluated individual of batch in place. Results
// land at their own index regardless of completion order.
func evaluate(ctx context.Context, obj framework.ObjectiveFunc, batch []framework.Individual, workers int) {
	var g errgroup.Group
	g.SetLimit(workerCount(workers, len(batch)))
	for i := range batch {
		if batch[i].Evaluated() {
			continue
		}
		g.Go(func() error {
			batch[i].Fitness = obj(ctx, batch[i].Genes)
			return nil
		})
	}
	// Objective functions do not fail; Wait only joins the pool.
	_ = g.Wait()
}
