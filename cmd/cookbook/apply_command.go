package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cookbook/internal/catalog"
	"cookbook/internal/selector"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file> [recipe]",
		Short: "Stage a file for transformation with a recipe",
		Long: "Stage relocates the file and the recipe's declared requirements into a\n" +
			"working directory next to it, ready for you to edit the build script and\n" +
			"run the build. Follow up with `cookbook finalize` or `cookbook abort`.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.catalog()
			if err != nil {
				return err
			}

			source := args[0]
			ext := catalog.NormalizeExtension(filepath.Ext(source))
			if ext == "" {
				return fmt.Errorf("%s has no extension; recipes are keyed by extension", source)
			}

			recipes, err := cat.ListForExtension(ext)
			if err != nil {
				return err
			}

			var pick selector.Selector
			switch {
			case len(args) == 2:
				pick = selector.Named(args[1])
			case selector.CanPrompt():
				pick = selector.NewInteractive()
			default:
				names := make([]string, 0, len(recipes))
				for _, recipe := range recipes {
					names = append(names, recipe.Name)
				}
				return fmt.Errorf("recipe name required when not running on a terminal (available for .%s: %v)", ext, names)
			}

			recipe, err := pick.Pick(cmd.Context(), source, recipes)
			if err != nil {
				if errors.Is(err, selector.ErrNoRecipes) {
					return fmt.Errorf("no recipes apply to %s: nothing under %s", source, filepath.Join(cat.Root(), ext))
				}
				return err
			}

			manager, err := ctx.manager()
			if err != nil {
				return err
			}

			staged, err := manager.Stage(cmd.Context(), source, recipe)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"session_id": staged.ID,
					"recipe":     staged.Recipe,
					"workdir":    staged.Dir,
					"input":      staged.InputPath(),
					"requires":   staged.Requires,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staged %s with recipe %s\n", filepath.Base(staged.Source), staged.Recipe)
			fmt.Fprintf(out, "Working directory: %s\n", staged.Dir)
			fmt.Fprintf(out, "Edit %s, run your build, then `cookbook finalize %s` or `cookbook abort %s`\n",
				staged.ScriptPath(), staged.Dir, staged.Dir)
			return nil
		},
	}

	return cmd
}
