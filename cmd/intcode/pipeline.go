package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/driver"
	"github.com/chazu/intcode/pkg/image"
)

func newPipelineCmd(g *globalFlags) *cobra.Command {
	var (
		phases   []int64
		seed     []int64
		feedback bool
		last     bool
		maxSteps uint64
		format   string
	)

	cmd := &cobra.Command{
		Use:   "pipeline [program]",
		Short: "Chain copies of a program, each one's output feeding the next",
		Long: `Pipeline starts one copy of the program per phase, gives each copy its
phase as first input, and connects the outputs of every copy to the
inputs of the next. The seed values go to the first copy. With
--feedback the last copy also feeds the first.

Every copy runs concurrently. The outputs of the last copy are printed.`,
		Example: `  intcode pipeline amp.intcode --phases 4,3,2,1,0 --seed 0
  intcode pipeline amp.intcode --phases 9,8,7,6,5 --seed 0 --feedback --last`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			program, name, err := readProgram(g, path, format)
			if err != nil {
				return err
			}
			if len(phases) == 0 {
				return fmt.Errorf("--phases is required")
			}

			p := driver.NewPipeline(program, phases, feedback)
			p.MaxSteps = maxSteps
			for _, stage := range p.Stages {
				stage.VM.SetMemoryLimit(g.manifest.Run.MaxMemory)
			}
			log.Info("starting pipeline", "name", name, "stages", len(phases), "feedback", feedback)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outputs, err := p.Run(ctx, seed...)
			if err != nil {
				return err
			}
			if last && len(outputs) > 0 {
				outputs = outputs[len(outputs)-1:]
			}
			for _, v := range outputs {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&phases, "phases", "p", nil, "Phase setting for each stage, in order")
	cmd.Flags().Int64SliceVarP(&seed, "seed", "s", nil, "Values sent to the first stage after its phase")
	cmd.Flags().BoolVar(&feedback, "feedback", false, "Feed the last stage's outputs back to the first")
	cmd.Flags().BoolVar(&last, "last", false, "Print only the final output")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Per-stage instruction budget (0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "", "Program encoding: text or binary (default: from extension)")

	return cmd
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	var (
		inputs      []int64
		parallelism int
		maxSteps    uint64
	)

	cmd := &cobra.Command{
		Use:   "batch program...",
		Short: "Run several programs concurrently with the same inputs",
		Example: `  intcode batch day2/*.intcode
  intcode batch -j 4 -i 1 a.intcode b.icb c.intcode`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]driver.Job, 0, len(args))
			for _, path := range args {
				program, err := image.ReadFile(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, driver.Job{
					Name:      image.Name(path),
					Program:   program,
					Inputs:    inputs,
					MaxSteps:  maxSteps,
					MaxMemory: g.manifest.Run.MaxMemory,
				})
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, err := driver.RunBatch(ctx, jobs, parallelism)
			if err != nil {
				return err
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "%s: error after %d steps: %v\n", r.Name, r.Steps, r.Err)
					continue
				}
				fmt.Fprintf(out, "%s: %s after %d steps: %s\n", r.Name, r.Status, r.Steps, formatValues(r.Outputs))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d programs failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&inputs, "input", "i", nil, "Input values given to every program")
	cmd.Flags().IntVarP(&parallelism, "jobs", "j", 0, "Programs run at once (0 = number of CPUs)")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Per-program instruction budget (0 = unlimited)")

	return cmd
}

func formatValues(values []int64) string {
	if len(values) == 0 {
		return "(no output)"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
