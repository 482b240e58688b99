package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"cookbook/internal/catalog"
)

// ErrNoRecipes marks selection attempts over an empty candidate list.
var ErrNoRecipes = errors.New("no recipes apply")

// Selector obtains a recipe choice for a source file. The lifecycle logic
// never depends on a specific selection surface; commands pick the
// implementation that fits how they were invoked.
type Selector interface {
	Pick(ctx context.Context, source string, recipes []catalog.Recipe) (catalog.Recipe, error)
}

// Named selects a recipe by exact name, for non-interactive invocations.
type Named string

// Pick returns the candidate whose name matches, or an error naming the
// available recipes.
func (n Named) Pick(_ context.Context, source string, recipes []catalog.Recipe) (catalog.Recipe, error) {
	if len(recipes) == 0 {
		return catalog.Recipe{}, fmt.Errorf("%w to %s", ErrNoRecipes, source)
	}
	names := make([]string, 0, len(recipes))
	for _, recipe := range recipes {
		if recipe.Name == string(n) {
			return recipe, nil
		}
		names = append(names, recipe.Name)
	}
	return catalog.Recipe{}, fmt.Errorf("no recipe %q for %s (available: %s)", string(n), source, strings.Join(names, ", "))
}

// Interactive presents a terminal selection list.
type Interactive struct{}

// NewInteractive constructs the terminal selector.
func NewInteractive() *Interactive {
	return &Interactive{}
}

// Pick runs a select prompt over the candidates.
func (i *Interactive) Pick(ctx context.Context, source string, recipes []catalog.Recipe) (catalog.Recipe, error) {
	if len(recipes) == 0 {
		return catalog.Recipe{}, fmt.Errorf("%w to %s", ErrNoRecipes, source)
	}
	if len(recipes) == 1 {
		return recipes[0], nil
	}

	options := make([]huh.Option[int], 0, len(recipes))
	for idx, recipe := range recipes {
		label := fmt.Sprintf("%s (%s)", recipe.Name, recipe.DisplayTitle())
		options = append(options, huh.NewOption(label, idx))
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Apply recipe to " + source).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return catalog.Recipe{}, fmt.Errorf("recipe selection: %w", err)
	}
	return recipes[choice], nil
}

// CanPrompt reports whether an interactive prompt can run on this terminal.
func CanPrompt() bool {
	for _, file := range []*os.File{os.Stdin, os.Stdout} {
		fd := file.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false
		}
	}
	return true
}
