package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/termfx/ecmacore/host"
	"github.com/termfx/ecmacore/internal/config"
)

func newInspectCmd() *cobra.Command {
	var diffFrom, diffTo string

	cmd := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "List or diff recorded evaluations for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			cfg := config.Load()

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			inspector := host.NewInspector(store)

			if diffFrom != "" || diffTo != "" {
				if diffFrom == "" || diffTo == "" {
					return fmt.Errorf("--diff-from and --diff-to must both be set")
				}
				diff, err := inspector.Diff(sessionID, diffFrom, diffTo)
				if err != nil {
					return err
				}
				if diff == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "no differences")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), diff)
				return nil
			}

			runs, err := inspector.Runs(sessionID)
			if err != nil {
				return err
			}
			for _, r := range runs {
				status := "ok"
				if !r.Success {
					status = "error"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s %-20s %-5s  %dms\n", r.ID, r.Kind, r.Specifier, status, r.DurationMS)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&diffFrom, "diff-from", "", "Run ID to diff from")
	cmd.Flags().StringVar(&diffTo, "diff-to", "", "Run ID to diff to")
	return cmd
}
