// Package catalog enumerates the recipe templates available to cookbook.
//
// Recipes live on disk as <root>/<extension>/<name>/Makefile plus whatever
// auxiliary files the recipe author shipped next to the template. The catalog
// is read-only: it lists, resolves, and never mutates recipe directories.
package catalog
