// Command ecmacore is a thin embedder exercising internal/engine's
// Section 6 surface from a shell: evaluate a snippet, run a module file
// (optionally preloading a whole directory), and inspect a recorded
// session's history. Everything interesting lives in internal/engine,
// internal/hostrecord, and host; this package is wiring only, in the
// shape of the teacher's cmd/morfx/main.go (flags -> config -> runner ->
// output) generalized from pflag's single flat command to cobra
// subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ecmacore",
		Short: "Embeddable ECMAScript core command-line harness",
		Long:  "ecmacore evaluates and runs ECMAScript source against the engine package, and inspects recorded session history.",
	}

	root.AddCommand(newEvalCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newInspectCmd())
	return root
}
