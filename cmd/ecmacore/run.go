package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"github.com/termfx/ecmacore/internal/config"
	"github.com/termfx/ecmacore/internal/hostrecord"
)

func newRunCmd() *cobra.Command {
	var glob string
	var record bool
	var drainAsync bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run an ECMAScript module file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving %q: %w", args[0], err)
			}
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %q: %w", path, err)
			}

			cfg := config.Load()
			root := filepath.Dir(path)
			realm := buildRealm(cfg, root)

			if glob != "" {
				loader, ok := realm.ModuleLoader().(interface {
					Preload(pattern string) ([]string, error)
				})
				if ok {
					loaded, perr := loader.Preload(glob)
					if perr != nil {
						return fmt.Errorf("preloading %q: %w", glob, perr)
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "preloaded %d modules matching %q\n", len(loaded), glob)
				}
			}

			var store *hostrecord.Store
			var sessionID string
			if record {
				s, err := openStore(cfg)
				if err != nil {
					return fmt.Errorf("opening session store: %w", err)
				}
				store = s
				sessionID, err = store.BeginSession(nil)
				if err != nil {
					return fmt.Errorf("beginning session: %w", err)
				}
				defer store.EndSession(sessionID)
			}

			started := time.Now()
			result, runErr := realm.EvalModule(string(source), path)
			finished := time.Now()

			if store != nil {
				errMsg := ""
				if runErr != nil {
					errMsg = runErr.Error()
				}
				if _, rerr := store.RecordScriptRun(hostrecord.ScriptRunInput{
					SessionID:    sessionID,
					Kind:         "run",
					Specifier:    path,
					Source:       string(source),
					ResultJSON:   datatypes.JSON(nil),
					Success:      runErr == nil,
					ErrorMessage: errMsg,
					StartedAt:    started,
					FinishedAt:   finished,
				}); rerr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", rerr)
				}
			}

			if runErr != nil {
				return runErr
			}

			if drainAsync {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				if err := <-realm.RunJobsAsync(ctx); err != nil {
					return err
				}
			} else if err := realm.RunJobs(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatValue(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", "Preload every module under the file's directory matching this doublestar glob before running")
	cmd.Flags().BoolVar(&record, "record", false, "Persist this run to the session store")
	cmd.Flags().BoolVar(&drainAsync, "async", false, "Drain the async job queue (promises, timers) instead of only the synchronous one")
	return cmd
}
