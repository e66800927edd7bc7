// intcode CLI - run, inspect and serve Intcode programs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/intcode/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

var log = commonlog.GetLogger("intcode.cli")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose  int
	logFile  string
	project  string
	manifest *manifest.Manifest
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "intcode",
		Short: "Run, inspect and serve Intcode programs",
		Long: `intcode executes Intcode programs and provides tools around them:
a disassembler, a text/binary image converter, a session server with
snapshots, and a language server for editors.

Settings are read from an intcode.toml found in the current directory or
any parent. Command-line flags override it.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&g.project, "project", "C", ".", "Directory to search for intcode.toml")

	rootCmd.AddCommand(
		newRunCmd(g),
		newPipelineCmd(g),
		newBatchCmd(g),
		newDisasmCmd(g),
		newConvertCmd(g),
		newServeCmd(g),
		newLoadCmd(g),
		newResumeCmd(g),
		newLSPCmd(g),
	)
	return rootCmd
}

// setup loads the manifest and configures logging.
func (g *globalFlags) setup(cmd *cobra.Command) error {
	m, err := manifest.FindAndLoad(g.project)
	if err != nil {
		return err
	}
	if m == nil {
		m = manifest.Default()
	}
	g.manifest = m

	verbosity := m.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		verbosity = g.verbose
	}
	logPath := m.LogPath()
	if g.logFile != "" {
		logPath = g.logFile
	}

	var path *string
	if logPath != "" {
		path = &logPath
	}
	commonlog.Configure(verbosity, path)

	if m.Dir != "" {
		log.Debugf("using manifest %s/%s", m.Dir, manifest.FileName)
	}
	return nil
}
