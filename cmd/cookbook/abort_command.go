package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAbortCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abort [workdir]",
		Short: "Discard a staged transformation and restore the original layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workdirArg(args)
			if err != nil {
				return err
			}

			manager, err := ctx.manager()
			if err != nil {
				return err
			}

			if err := manager.Abort(cmd.Context(), dir); err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"aborted": dir})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Aborted %s; original files restored\n", dir)
			return nil
		},
	}
}

// workdirArg resolves the optional working directory argument, defaulting to
// the current directory so abort/finalize work from inside the session.
func workdirArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine current directory: %w", err)
	}
	return dir, nil
}
