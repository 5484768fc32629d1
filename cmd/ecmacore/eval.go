package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"github.com/termfx/ecmacore/internal/config"
	"github.com/termfx/ecmacore/internal/hostrecord"
)

func newEvalCmd() *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "eval <source>",
		Short: "Evaluate an ECMAScript snippet and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			cfg := config.Load()

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

			realm := buildRealm(cfg, "")
			started := time.Now()
			result, err := realm.Eval(source)
			finished := time.Now()

			if store != nil {
				runErrCode, runErrMsg := "", ""
				if err != nil {
					runErrMsg = err.Error()
				}
				if _, rerr := store.RecordScriptRun(hostrecord.ScriptRunInput{
					SessionID:    sessionID,
					Kind:         "eval",
					Specifier:    "<eval>",
					Source:       source,
					ResultJSON:   datatypes.JSON(nil),
					Success:      err == nil,
					ErrorCode:    runErrCode,
					ErrorMessage: runErrMsg,
					StartedAt:    started,
					FinishedAt:   finished,
				}); rerr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", rerr)
				}
			}

			if err != nil {
				return err
			}

			if err := realm.RunJobs(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatValue(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Persist this evaluation to the session store")
	return cmd
}
