package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateName is the build script every recipe directory must contain.
const TemplateName = "Makefile"

// ErrNotFound marks lookups for recipes that do not exist in the catalog.
var ErrNotFound = errors.New("recipe not found")

var titleCaser = cases.Title(language.English)

// Recipe identifies one transformation template in the catalog.
type Recipe struct {
	// Extension is the source file extension the recipe applies to,
	// without a leading dot.
	Extension string
	// Name is the recipe directory name under the extension directory.
	Name string
	// Dir is the absolute path of the recipe directory.
	Dir string
}

// ID returns the composite identifier used in global listings.
func (r Recipe) ID() string {
	return r.Extension + "/" + r.Name
}

// TemplatePath returns the path of the recipe's build script template.
func (r Recipe) TemplatePath() string {
	return filepath.Join(r.Dir, TemplateName)
}

// DisplayTitle returns a human-friendly title derived from the recipe name.
func (r Recipe) DisplayTitle() string {
	return titleCaser.String(strings.ReplaceAll(r.Name, "-", " "))
}

// Catalog enumerates recipes stored as <root>/<extension>/<name>/Makefile.
type Catalog struct {
	root string
}

// New constructs a catalog rooted at the given directory.
func New(root string) *Catalog {
	return &Catalog{root: root}
}

// Root returns the catalog's root directory.
func (c *Catalog) Root() string {
	return c.root
}

// NormalizeExtension strips a leading dot so ".cue" and "cue" address the
// same catalog directory.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}

// ListForExtension returns the recipes applicable to the given extension,
// sorted by name. A missing extension directory yields an empty slice, not an
// error; commands decide how to surface "nothing applies".
func (c *Catalog) ListForExtension(ext string) ([]Recipe, error) {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return nil, errors.New("extension required")
	}

	dir := filepath.Join(c.root, ext)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", dir, err)
	}

	var recipes []Recipe
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		recipe := Recipe{
			Extension: ext,
			Name:      entry.Name(),
			Dir:       filepath.Join(dir, entry.Name()),
		}
		if _, err := os.Stat(recipe.TemplatePath()); err != nil {
			// Directory without a template is not a recipe.
			continue
		}
		recipes = append(recipes, recipe)
	}

	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Name < recipes[j].Name })
	return recipes, nil
}

// ListAll returns every recipe in the catalog, sorted by extension then name.
func (c *Catalog) ListAll() ([]Recipe, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog root %s: %w", c.root, err)
	}

	var recipes []Recipe
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		forExt, err := c.ListForExtension(entry.Name())
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, forExt...)
	}

	sort.Slice(recipes, func(i, j int) bool {
		if recipes[i].Extension != recipes[j].Extension {
			return recipes[i].Extension < recipes[j].Extension
		}
		return recipes[i].Name < recipes[j].Name
	})
	return recipes, nil
}

// Resolve looks up one recipe by extension and name. It fails with ErrNotFound
// when the recipe directory or its template is absent.
func (c *Catalog) Resolve(ext, name string) (Recipe, error) {
	ext = NormalizeExtension(ext)
	name = strings.TrimSpace(name)
	if ext == "" || name == "" {
		return Recipe{}, errors.New("extension and recipe name required")
	}

	recipe := Recipe{
		Extension: ext,
		Name:      name,
		Dir:       filepath.Join(c.root, ext, name),
	}
	if _, err := os.Stat(recipe.TemplatePath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Recipe{}, fmt.Errorf("%w: %s for extension %q", ErrNotFound, name, ext)
		}
		return Recipe{}, fmt.Errorf("stat template %s: %w", recipe.TemplatePath(), err)
	}
	return recipe, nil
}
