package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage active staging sessions",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsPruneCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.manager()
			if err != nil {
				return err
			}

			entries, err := manager.Registry().List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			if ctx.JSONMode() {
				type entryView struct {
					Workdir string `json:"workdir"`
					Recipe  string `json:"recipe,omitempty"`
					Source  string `json:"source,omitempty"`
					AgeSecs int64  `json:"age_seconds"`
					Size    int64  `json:"size_bytes"`
					Missing bool   `json:"missing"`
				}
				views := make([]entryView, 0, len(entries))
				for _, entry := range entries {
					views = append(views, entryView{
						Workdir: entry.Workdir,
						Recipe:  entry.Recipe,
						Source:  entry.Source,
						AgeSecs: int64(time.Since(entry.ModTime).Seconds()),
						Size:    entry.Size,
						Missing: entry.Missing,
					})
				}
				return writeJSON(cmd, map[string]any{"sessions": views})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No active sessions")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				state := "staged"
				if entry.Missing {
					state = "missing"
				}
				rows = append(rows, []string{
					entry.Recipe,
					entry.Workdir,
					formatAge(time.Since(entry.ModTime)),
					formatSize(entry.Size),
					state,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Recipe", "Workdir", "Age", "Size", "State"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSessionsPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop registry pointers whose working directory is gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.manager()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			result := manager.Registry().Prune(logger)

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, pruneErr := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", pruneErr.Path, pruneErr.Error))
				}
				return writeJSON(cmd, map[string]any{
					"removed": result.Removed,
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pruned %d dangling session pointer(s)\n", len(result.Removed))
			for _, pruneErr := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", pruneErr.Path, pruneErr.Error)
			}
			return nil
		},
	}
}
