package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotStaged marks abort/finalize attempts against a directory that
	// holds no build script.
	ErrNotStaged = errors.New("not staged")
	// ErrMalformedRecipe marks recipes whose build script violates the
	// query contract (missing target, bad requirement names, no outputs).
	ErrMalformedRecipe = errors.New("malformed recipe")
	// ErrNamingInvariant marks working directories whose name cannot be
	// parsed back into recipe, stem, and extension.
	ErrNamingInvariant = errors.New("working directory name not recognized")
	// ErrAlreadyStaged marks staging attempts that would collide with an
	// existing session for the same source.
	ErrAlreadyStaged = errors.New("already staged")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for errors.Is classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "session failure"
	}
	return strings.Join(parts, ": ")
}
