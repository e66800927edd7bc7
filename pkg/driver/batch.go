package driver

import (
	"context"
	"runtime"

	"github.com/chazu/intcode/pkg/intcode"
	"golang.org/x/sync/errgroup"
)

// Job is one independent program run in a batch.
type Job struct {
	Name     string
	Program  []int64
	Inputs   []int64
	MaxSteps uint64
	// MaxMemory caps the job's VM memory in cells; 0 means the default.
	MaxMemory int64
}

// JobResult is the outcome of one Job. Err holds the job's own failure;
// it does not stop the rest of the batch.
type JobResult struct {
	Name    string
	Outputs []int64
	Status  intcode.Status
	Steps   uint64
	Err     error
}

// RunBatch runs jobs with at most parallelism VMs at once. Parallelism
// below 1 means GOMAXPROCS. Results are returned in job order. The only
// error returned is ctx's, in which case unstarted jobs carry it too.
func RunBatch(ctx context.Context, jobs []Job, parallelism int) ([]JobResult, error) {
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	results := make([]JobResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(parallelism)

	for i, job := range jobs {
		g.Go(func() error {
			r := &results[i]
			r.Name = job.Name
			if err := ctx.Err(); err != nil {
				r.Err = err
				return nil
			}

			vm := intcode.Load(job.Program)
			vm.SetMemoryLimit(job.MaxMemory)
			d := &Driver{VM: vm, Inputs: job.Inputs, MaxSteps: job.MaxSteps}
			res, err := d.Run(ctx)
			r.Outputs = res.Outputs
			r.Status = res.Status
			r.Steps = res.Steps
			r.Err = err
			if err != nil {
				log.Debug("batch job failed", "job", job.Name, "error", err.Error())
			}
			return nil
		})
	}

	_ = g.Wait()
	log.Infof("batch finished: %d jobs", len(jobs))
	return results, ctx.Err()
}
