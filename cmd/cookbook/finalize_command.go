package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFinalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize [workdir]",
		Short: "Promote the build's declared outputs and clean up the session",
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

			promoted, err := manager.Finalize(cmd.Context(), dir)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"promoted": promoted})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Finalized %s\n", dir)
			for _, path := range promoted {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		},
	}
}
