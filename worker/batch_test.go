package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func square(_ context.Context, n int) (int, error) {
	return n * n, nil
}

func TestRun_Order(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 16} {
		inputs := make([]int, 50)
		for i := range inputs {
			inputs[i] = i
		}

		batch := Run(context.Background(), inputs, workers, square)

		if batch.TotalJobs != 50 || batch.CompletedJobs != 50 || batch.FailedJobs != 0 {
			t.Errorf("workers=%d: counts = %d/%d/%d", workers, batch.TotalJobs, batch.CompletedJobs, batch.FailedJobs)
		}
		for i, v := range batch.Values() {
			if v != i*i {
				t.Errorf("workers=%d: Values()[%d] = %d; want %d", workers, i, v, i*i)
			}
		}
		if batch.Err() != nil {
			t.Errorf("workers=%d: Err() = %v", workers, batch.Err())
		}
	}
}

func TestRun_Empty(t *testing.T) {
	batch := Run(context.Background(), nil, 4, square)
	if len(batch.Results) != 0 || batch.TotalJobs != 0 {
		t.Errorf("batch = %+v", batch)
	}
}

func TestRun_Errors(t *testing.T) {
	errOdd := errors.New("odd")
	fn := func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n, nil
	}

	batch := Run(context.Background(), []int{0, 1, 2, 3, 4}, 2, fn)

	if batch.FailedJobs != 2 || batch.CompletedJobs != 5 {
		t.Errorf("failed/completed = %d/%d; want 2/5", batch.FailedJobs, batch.CompletedJobs)
	}
	if !errors.Is(batch.Results[1].Err, errOdd) || batch.Results[2].Err != nil {
		t.Errorf("results = %+v", batch.Results)
	}
	if !errors.Is(batch.Err(), errOdd) {
		t.Errorf("Err() = %v", batch.Err())
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	fn := func(ctx context.Context, n int) (int, error) {
		if calls.Add(1) == 1 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return n, nil
	}

	inputs := make([]int, 100)
	batch := Run(ctx, inputs, 2, fn)

	if batch.CompletedJobs == len(inputs) {
		t.Fatal("cancellation did not stop the batch")
	}
	if batch.CompletedJobs != int(calls.Load()) {
		t.Errorf("CompletedJobs = %d; calls = %d", batch.CompletedJobs, calls.Load())
	}
	if batch.FailedJobs != len(inputs)-batch.CompletedJobs {
		t.Errorf("FailedJobs = %d", batch.FailedJobs)
	}
	if !errors.Is(batch.Err(), context.Canceled) {
		t.Errorf("Err() = %v", batch.Err())
	}
}

func TestRun_AlreadyCancelledSequential(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := Run(ctx, []int{1, 2}, 4, square)

	if batch.CompletedJobs != 0 || batch.FailedJobs != 2 {
		t.Errorf("completed/failed = %d/%d; want 0/2", batch.CompletedJobs, batch.FailedJobs)
	}
}
