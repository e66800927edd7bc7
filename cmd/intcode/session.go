package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/pkg/driver"
	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"
	"github.com/chazu/intcode/server"
	"github.com/chazu/intcode/store"
)

// newClient connects to a session server. addr may omit the scheme.
func newClient(g *globalFlags, addr string) *server.Client {
	if addr == "" {
		addr = g.manifest.Server.Addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return server.NewClient(&http.Client{Timeout: 5 * time.Minute}, addr)
}

func newLoadCmd(g *globalFlags) *cobra.Command {
	var (
		addr   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "load [program]",
		Short: "Start a session on the session server",
		Long: `Load sends a program to a running "intcode serve" and prints the new
session ID. Continue the session with "intcode resume".`,
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

			resp, err := newClient(g, addr).Load(cmd.Context(), &server.LoadRequest{
				Program: image.Format(program),
				Name:    name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.SessionID)
			log.Info("session loaded", "session", resp.SessionID, "program", resp.ProgramHash, "cells", resp.Cells)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Session server address")
	cmd.Flags().StringVar(&format, "format", "", "Program encoding: text or binary (default: from extension)")
	return cmd
}

type resumeFlags struct {
	addr     string
	offline  bool
	database string
	inputs   []int64
	lines    []string
	ascii    bool
	maxSteps uint64
	save     string
	destroy  bool
}

func newResumeCmd(g *globalFlags) *cobra.Command {
	f := &resumeFlags{}

	cmd := &cobra.Command{
		Use:   "resume <session>",
		Short: "Feed inputs to a saved session and run it",
		Long: `Resume continues a session from where it stopped, feeding the given
inputs and printing the outputs, until the program halts or asks for
more input than was given.

By default the session lives on a session server. With --offline the
checkpoint is read from the SQLite database directly, run locally and
written back.`,
		Example: `  id=$(intcode load day25.intcode)
  intcode resume $id --ascii --line north
  intcode resume $id --offline --ascii --line "take mug"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inputs := append(append([]int64{}, f.inputs...), driver.ASCIILines(f.lines...)...)
			if f.offline {
				return f.resumeOffline(ctx, cmd, g, args[0], inputs)
			}
			return f.resumeRemote(ctx, cmd, g, args[0], inputs)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "Session server address")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Run from the local checkpoint database instead of a server")
	cmd.Flags().StringVar(&f.database, "db", "", "Checkpoint database for --offline (default from intcode.toml)")
	cmd.Flags().Int64SliceVarP(&f.inputs, "input", "i", nil, "Input values, in order")
	cmd.Flags().StringArrayVarP(&f.lines, "line", "l", nil, "ASCII input line, sent after --input values (repeatable)")
	cmd.Flags().BoolVarP(&f.ascii, "ascii", "a", false, "Print outputs as characters")
	cmd.Flags().Uint64Var(&f.maxSteps, "max-steps", 0, "Instruction budget for this call (0 = server default)")
	cmd.Flags().StringVar(&f.save, "save", "", "Also write the resulting snapshot (CBOR) to this file")
	cmd.Flags().BoolVar(&f.destroy, "destroy", false, "Destroy the session once it halts")

	return cmd
}

func (f *resumeFlags) resumeRemote(ctx context.Context, cmd *cobra.Command, g *globalFlags, id string, inputs []int64) error {
	client := newClient(g, f.addr)

	resp, err := client.Drive(ctx, &server.DriveRequest{
		SessionID: id,
		Inputs:    inputs,
		MaxSteps:  f.maxSteps,
	})
	if err != nil {
		return err
	}
	if err := f.print(cmd, resp.Outputs); err != nil {
		return err
	}
	log.Info("session stopped", "session", id, "status", resp.Status, "steps", resp.Steps, "unconsumed", resp.Unconsumed)

	if f.save != "" {
		snap, err := client.Snapshot(ctx, &server.SnapshotRequest{SessionID: id})
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.save, snap.State, 0o644); err != nil {
			return err
		}
	}
	if f.destroy && resp.Status == intcode.StatusHalted.String() {
		_, err := client.Destroy(ctx, &server.DestroyRequest{SessionID: id})
		return err
	}
	return nil
}

func (f *resumeFlags) resumeOffline(ctx context.Context, cmd *cobra.Command, g *globalFlags, id string, inputs []int64) error {
	path := f.database
	if path == "" {
		path = g.manifest.DatabasePath()
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.LoadSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no checkpoint for session %s in %s", id, path)
		}
		return err
	}
	vm, err := intcode.Restore(snap.State)
	if err != nil {
		return err
	}
	vm.SetMemoryLimit(g.manifest.Run.MaxMemory)

	d := &driver.Driver{VM: vm, Inputs: inputs, MaxSteps: f.maxSteps}
	res, runErr := d.Run(ctx)
	if err := f.print(cmd, res.Outputs); err != nil {
		return err
	}

	if vm.Fault() != nil {
		if err := db.DeleteSnapshot(ctx, id); err != nil {
			return err
		}
		return runErr
	}
	if f.destroy && vm.Halted() {
		if err := db.DeleteSnapshot(ctx, id); err != nil {
			return err
		}
	} else {
		state, err := vm.Snapshot()
		if err != nil {
			return err
		}
		if err := db.SaveSnapshot(ctx, id, snap.ProgramHash, state); err != nil {
			return err
		}
		if f.save != "" {
			data, err := intcode.MarshalState(state)
			if err != nil {
				return err
			}
			if err := os.WriteFile(f.save, data, 0o644); err != nil {
				return err
			}
		}
	}
	return exitStatus(res, runErr)
}

func (f *resumeFlags) print(cmd *cobra.Command, outputs []int64) error {
	w := cmd.OutOrStdout()
	if f.ascii {
		_, err := fmt.Fprint(w, driver.ASCII(outputs))
		return err
	}
	for _, v := range outputs {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}
