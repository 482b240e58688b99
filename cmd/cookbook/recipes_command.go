package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cookbook/internal/catalog"
)

func newRecipesCommand(ctx *commandContext) *cobra.Command {
	var extFlag string

	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List available transformation recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.catalog()
			if err != nil {
				return err
			}

			var recipes []catalog.Recipe
			if extFlag != "" {
				recipes, err = cat.ListForExtension(extFlag)
			} else {
				recipes, err = cat.ListAll()
			}
			if err != nil {
				return fmt.Errorf("list recipes: %w", err)
			}

			if ctx.JSONMode() {
				type recipeView struct {
					Extension string `json:"extension"`
					Name      string `json:"name"`
					Title     string `json:"title"`
					Template  string `json:"template"`
				}
				views := make([]recipeView, 0, len(recipes))
				for _, recipe := range recipes {
					views = append(views, recipeView{
						Extension: recipe.Extension,
						Name:      recipe.Name,
						Title:     recipe.DisplayTitle(),
						Template:  recipe.TemplatePath(),
					})
				}
				return writeJSON(cmd, map[string]any{
					"recipes_root": cat.Root(),
					"recipes":      views,
				})
			}

			out := cmd.OutOrStdout()
			if len(recipes) == 0 {
				if extFlag != "" {
					fmt.Fprintf(out, "No recipes for extension %q under %s\n", catalog.NormalizeExtension(extFlag), cat.Root())
				} else {
					fmt.Fprintf(out, "No recipes under %s\n", cat.Root())
				}
				return nil
			}

			rows := make([][]string, 0, len(recipes))
			for _, recipe := range recipes {
				rows = append(rows, []string{recipe.Extension, recipe.Name, recipe.DisplayTitle()})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Extension", "Recipe", "Title"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&extFlag, "ext", "e", "", "Only recipes for this file extension")
	return cmd
}
