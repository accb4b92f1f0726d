// Package worker runs a function over a batch of inputs on a bounded number
// of goroutines and returns the results in input order.
//
// Example usage:
//
//	batch := worker.Run(ctx, answerSets, 4, func(ctx context.Context, answers map[string]any) (*forms.Report, error) {
//	    return engine.Validate(form, answers)
//	})
//	for _, job := range batch.Results {
//	    if job.Err != nil {
//	        // Handle error
//	    }
//	}
package worker
