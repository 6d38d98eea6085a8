package compilation

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Unit is anything that compiles to a JVM result
type Unit interface {
	Compile(ctx context.Context) (*Result, error)
}

// CompileAll compiles independent units in parallel, at most maxWorkers at a
// time (GOMAXPROCS when maxWorkers <= 0). Results keep the order of units.
// Units must not share a working directory.
func CompileAll(ctx context.Context, units []Unit, maxWorkers int) ([]*Result, error) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxWorkers)

	results := make([]*Result, len(units))
	for i, unit := range units {
		if unit == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilUnit, i)
		}
		eg.Go(func() error {
			res, err := unit.Compile(ctx)
			if err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	// return partial results even if some failed
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
