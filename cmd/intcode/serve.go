package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/intcode/server"
	"github.com/chazu/intcode/store"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr      string
		database  string
		noStore   bool
		maxSteps  uint64
		maxMemory int64
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session server (Connect HTTP/JSON)",
		Long: `Serve starts an HTTP server exposing intcode.v1.SessionService over the
Connect protocol with a JSON codec. Each session owns one VM.

Sessions are checkpointed to a SQLite database after every call, so they
survive eviction and restarts. --no-store keeps everything in memory.`,
		Example: `  intcode serve
  intcode serve --addr :9000 --db /var/lib/intcode/sessions.db
  curl -s -H 'Content-Type: application/json' \
    -d '{"program":"3,0,4,0,99"}' http://localhost:8741/intcode.v1.SessionService/Load`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := g.manifest.Server
			flags := cmd.Flags()
			if !flags.Changed("addr") {
				addr = sc.Addr
			}
			if !flags.Changed("max-steps") {
				maxSteps = sc.MaxSteps
			}
			if !flags.Changed("max-memory") {
				maxMemory = sc.MaxMemory
			}
			if !flags.Changed("session-ttl") {
				ttl = sc.SessionTTL
			}
			if !flags.Changed("db") {
				database = g.manifest.DatabasePath()
			}

			opts := []server.ServerOption{
				server.WithMaxSteps(maxSteps),
				server.WithMaxMemory(maxMemory),
				server.WithSessionTTL(ttl, sc.SweepInterval),
			}
			if !noStore {
				db, err := store.Open(database)
				if err != nil {
					return err
				}
				defer db.Close()
				opts = append(opts, server.WithStore(db))
				log.Infof("checkpointing sessions to %s", database)
			}

			srv := server.New(opts...)
			defer srv.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from intcode.toml, else localhost:8741)")
	cmd.Flags().StringVar(&database, "db", "", "SQLite database for programs and checkpoints")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Keep sessions in memory only")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "Per-call instruction budget (0 = unlimited)")
	cmd.Flags().Int64Var(&maxMemory, "max-memory", 0, "Per-session memory limit in cells (0 = default)")
	cmd.Flags().DurationVar(&ttl, "session-ttl", 0, "Evict sessions idle this long")

	return cmd
}

func newLSPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Lsp speaks the Language Server Protocol over stdin/stdout. It reports
parse errors and undecodable instructions as diagnostics, and describes
the instruction under the cursor on hover.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.NewLSP(Version).Run()
		},
	}
}
