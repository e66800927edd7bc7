package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/driver"
	"github.com/chazu/intcode/pkg/intcode"
)

type runFlags struct {
	inputs      []int64
	lines       []string
	ascii       bool
	maxSteps    uint64
	maxMemory   int64
	trace       bool
	format      string
	interactive bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [program]",
		Short: "Run a program to completion",
		Long: `Run loads a program image and drives it until it halts.

Queued inputs (--input, then --line) are consumed first. When they run
out the program reads further input from stdin, one line at a time. Use
"-" as the program to read the image itself from stdin.`,
		Example: `  intcode run day9.intcode -i 1
  intcode run springdroid.icb --ascii --line "NOT A J" --line WALK
  intcode run --trace -i 5 diagnostics.intcode`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			f.merge(cmd, g)
			return f.run(cmd, g, path)
		},
	}

	cmd.Flags().Int64SliceVarP(&f.inputs, "input", "i", nil, "Input values, in order (repeatable or comma-separated)")
	cmd.Flags().StringArrayVarP(&f.lines, "line", "l", nil, "ASCII input line, sent after --input values (repeatable)")
	cmd.Flags().BoolVarP(&f.ascii, "ascii", "a", false, "Print outputs as characters")
	cmd.Flags().Uint64Var(&f.maxSteps, "max-steps", 0, "Abort after this many instructions (0 = unlimited)")
	cmd.Flags().Int64Var(&f.maxMemory, "max-memory", 0, "Fault on addresses past this many cells (0 = default limit)")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "Print every instruction to stderr before it runs")
	cmd.Flags().StringVar(&f.format, "format", "", "Program encoding: text or binary (default: from extension)")
	cmd.Flags().BoolVar(&f.interactive, "stdin", true, "Read more input from stdin once queued inputs run out")

	return cmd
}

// merge fills flags the user did not set from the manifest's [run] table.
func (f *runFlags) merge(cmd *cobra.Command, g *globalFlags) {
	rc := g.manifest.Run
	flags := cmd.Flags()
	if !flags.Changed("input") {
		f.inputs = rc.Inputs
	}
	if !flags.Changed("line") {
		f.lines = rc.Lines
	}
	if !flags.Changed("ascii") {
		f.ascii = rc.ASCII
	}
	if !flags.Changed("max-steps") {
		f.maxSteps = rc.MaxSteps
	}
	if !flags.Changed("max-memory") {
		f.maxMemory = rc.MaxMemory
	}
	if !flags.Changed("trace") {
		f.trace = rc.Trace
	}
}

func (f *runFlags) run(cmd *cobra.Command, g *globalFlags, path string) error {
	program, name, err := readProgram(g, path, f.format)
	if err != nil {
		return err
	}
	log.Info("running program", "name", name, "cells", len(program))

	vm := intcode.Load(program)
	vm.SetMemoryLimit(f.maxMemory)
	if f.trace {
		vm.SetTracer(traceTo(cmd.ErrOrStderr()))
	}

	inputs := append(append([]int64{}, f.inputs...), driver.ASCIILines(f.lines...)...)
	d := &driver.Driver{
		VM:       vm,
		Inputs:   inputs,
		OnOutput: printOutput(cmd.OutOrStdout(), f.ascii),
		MaxSteps: f.maxSteps,
	}
	if f.interactive && path != "-" {
		var prompt = cmd.ErrOrStderr()
		if !isTerminal(os.Stdin) {
			prompt = nil
		}
		d.Input = lineInput(cmd.InOrStdin(), f.ascii, prompt)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := d.Run(ctx)
	if f.ascii && len(res.Outputs) > 0 && res.Outputs[len(res.Outputs)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	log.Info("run finished", "name", name, "status", res.Status.String(), "steps", res.Steps, "outputs", len(res.Outputs))
	return exitStatus(res, err)
}
