package sim

import (
	"context"
	"sync"
)

// Job is one simulation of a batch. Build is called from the job's own
// goroutine so controllers and plants are never shared.
type Job struct {
	Name   string
	Build  func() (*Simulator, error)
	Config Config
}

type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// RunBatch runs all jobs concurrently and returns results in job order.
func RunBatch(ctx context.Context, jobs []Job) []BatchResult {
	results := make([]BatchResult, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()

			results[idx].Name = job.Name
			s, err := job.Build()
			if err != nil {
				results[idx].Err = err
				return
			}
			results[idx].Result, results[idx].Err = s.Run(ctx, job.Config)
		}(i, job)
	}

	wg.Wait()
	return results
}
