package driver

import (
	"context"
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
	"golang.org/x/sync/errgroup"
)

// pipeBuffer is the channel capacity between adjacent stages.
const pipeBuffer = 64

// Stage is one VM in a Pipeline. Its Inputs are consumed before anything
// arrives from the previous stage.
type Stage struct {
	VM     *intcode.VM
	Inputs []int64
}

// Pipeline connects VMs in series: every output of stage i becomes an
// input of stage i+1. With Feedback the last stage also feeds the first,
// forming a ring.
type Pipeline struct {
	Stages   []Stage
	Feedback bool

	// MaxSteps bounds each stage independently. Zero means unbounded.
	MaxSteps uint64
}

// NewPipeline builds a pipeline that runs program once per phase, each
// stage receiving its phase as its first input.
func NewPipeline(program []int64, phases []int64, feedback bool) *Pipeline {
	p := &Pipeline{Feedback: feedback}
	for _, ph := range phases {
		p.Stages = append(p.Stages, Stage{VM: intcode.Load(program), Inputs: []int64{ph}})
	}
	return p
}

// Run starts every stage in its own goroutine, appends seed to the first
// stage's inputs and waits for all stages to stop. It returns every value
// the last stage output. The first stage error cancels the others.
func (p *Pipeline) Run(ctx context.Context, seed ...int64) ([]int64, error) {
	n := len(p.Stages)
	if n == 0 {
		return nil, nil
	}

	// in[i] feeds stage i; done[i] closes when stage i stops reading.
	in := make([]chan int64, n)
	done := make([]chan struct{}, n)
	for i := range in {
		in[i] = make(chan int64, pipeBuffer)
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	var last *Result

	for i := range p.Stages {
		stage := p.Stages[i]
		queue := append(append([]int64(nil), stage.Inputs...), seedFor(i, seed)...)

		d := &Driver{VM: stage.VM, Inputs: queue, MaxSteps: p.MaxSteps}
		if i > 0 || p.Feedback {
			d.Input = receiveFrom(in[i])
		}
		if next := i + 1; next < n || p.Feedback {
			next %= n
			d.OnOutput = sendTo(in[next], done[next])
		}

		g.Go(func() error {
			defer close(done[i])
			if d.OnOutput != nil {
				defer close(in[(i+1)%n])
			}

			res, err := d.Run(gctx)
			if i == n-1 {
				last = res
			}
			if err != nil {
				return fmt.Errorf("stage %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if last == nil {
		return nil, err
	}
	return last.Outputs, err
}

func seedFor(i int, seed []int64) []int64 {
	if i == 0 {
		return seed
	}
	return nil
}

func receiveFrom(ch <-chan int64) InputFunc {
	return func(ctx context.Context) (int64, error) {
		select {
		case v, ok := <-ch:
			if !ok {
				return 0, ErrInputExhausted
			}
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// sendTo delivers to a downstream stage, dropping values once it has
// stopped.
func sendTo(ch chan<- int64, stopped <-chan struct{}) OutputFunc {
	return func(ctx context.Context, v int64) error {
		select {
		case ch <- v:
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}
