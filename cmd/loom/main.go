package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	dir       string
	immediate bool
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Render and reconcile declarative component trees",
		Long: `loom drives the loom runtime from the command line.

Trees are described in YAML fixtures. The CLI can render a fixture to
HTML, show the patches between two fixtures, re-reconcile a fixture
whenever it changes, and serve the devtools inspector.

Configuration is read from loom.yaml in --dir and LOOM_* environment
variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", ".", "Directory containing loom.yaml")
	pf.BoolVar(&flags.immediate, "immediate", false, "Run the runtime in immediate mode")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		renderCmd(&flags),
		diffCmd(&flags),
		watchCmd(&flags),
		inspectCmd(&flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
