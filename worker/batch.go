package worker

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Func processes one input of a batch.
type Func[T, R any] func(ctx context.Context, in T) (R, error)

// JobResult is the outcome of one input.
type JobResult[R any] struct {
	// Index is the position of the input in the batch.
	Index int

	Value R

	// Err is the error returned by the function, or the context error for
	// inputs that were never started.
	Err error

	Duration time.Duration
}

// BatchResult aggregates the results of a batch, in input order.
type BatchResult[R any] struct {
	Results []JobResult[R]

	// TotalJobs is the number of inputs.
	TotalJobs int

	// CompletedJobs is the number of inputs the function ran on, including
	// those that failed.
	CompletedJobs int

	// FailedJobs is the number of inputs whose result carries an error.
	FailedJobs int

	TotalDuration time.Duration
}

// Values returns the result values in input order.
func (br *BatchResult[R]) Values() []R {
	out := make([]R, len(br.Results))
	for i, r := range br.Results {
		out[i] = r.Value
	}
	return out
}

// Err returns the first error in input order, if any.
func (br *BatchResult[R]) Err() error {
	for _, r := range br.Results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Run applies fn to every input on up to workers goroutines. workers <= 0
// uses one per CPU. Inputs not started before ctx is done get ctx's error.
func Run[T, R any](ctx context.Context, inputs []T, workers int, fn Func[T, R]) *BatchResult[R] {
	start := time.Now()
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]JobResult[R], len(inputs))
	for i := range results {
		results[i].Index = i
	}

	var completed int
	// Small batches are not worth the goroutines.
	if len(inputs) <= 2 || workers == 1 {
		completed = runSequential(ctx, inputs, fn, results)
	} else {
		completed = runParallel(ctx, inputs, min(workers, len(inputs)), fn, results)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return &BatchResult[R]{
		Results:       results,
		TotalJobs:     len(inputs),
		CompletedJobs: completed,
		FailedJobs:    failed,
		TotalDuration: time.Since(start),
	}
}

func runSequential[T, R any](ctx context.Context, inputs []T, fn Func[T, R], results []JobResult[R]) int {
	completed := 0
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		runOne(ctx, in, fn, &results[i])
		completed++
	}
	return completed
}

func runParallel[T, R any](ctx context.Context, inputs []T, workers int, fn Func[T, R], results []JobResult[R]) int {
	jobs := make(chan int)
	done := make([]bool, len(inputs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				// Each worker owns results[i] and done[i] for the jobs it receives.
				runOne(ctx, inputs[i], fn, &results[i])
				done[i] = true
			}
		}()
	}

submit:
	for i := range inputs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break submit
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	completed := 0
	for i, ok := range done {
		if ok {
			completed++
			continue
		}
		results[i].Err = ctx.Err()
	}
	return completed
}

func runOne[T, R any](ctx context.Context, in T, fn Func[T, R], out *JobResult[R]) {
	start := time.Now()
	out.Value, out.Err = fn(ctx, in)
	out.Duration = time.Since(start)
}
