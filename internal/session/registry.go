package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cookbook/internal/logging"
)

// Entry describes one registered session for listing commands.
type Entry struct {
	Workdir string
	Recipe  string
	Source  string
	ModTime time.Time
	Size    int64
	// Missing is set when the pointer survives but the working directory
	// is gone (finalized or removed out-of-band).
	Missing bool
}

// PruneResult contains the outcome of a registry prune.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a pointer path with its removal error.
type PruneError struct {
	Path  string
	Error error
}

// Registry tracks active sessions through plain-text pointer files, one per
// working directory, so `cookbook sessions` can find stagings scattered
// across the filesystem.
type Registry struct {
	dir string
}

// NewRegistry constructs a registry rooted at the given directory.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Add records a working directory.
func (r *Registry) Add(workdir string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	path := filepath.Join(r.dir, pathKey(workdir)+".session")
	if err := os.WriteFile(path, []byte(workdir+"\n"), 0o644); err != nil {
		return fmt.Errorf("write session pointer: %w", err)
	}
	return nil
}

// Remove drops the pointer for a working directory. Removing an unknown
// directory is not an error.
func (r *Registry) Remove(workdir string) error {
	path := filepath.Join(r.dir, pathKey(workdir)+".session")
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session pointer: %w", err)
	}
	return nil
}

// List returns all registered sessions, oldest first.
func (r *Registry) List() ([]Entry, error) {
	pointers, err := r.pointers()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, pointer := range pointers {
		workdir, err := readPointer(pointer)
		if err != nil || workdir == "" {
			continue
		}

		entry := Entry{Workdir: workdir}
		info, statErr := os.Stat(workdir)
		if statErr != nil {
			entry.Missing = true
			if pinfo, err := os.Stat(pointer); err == nil {
				entry.ModTime = pinfo.ModTime()
			}
		} else {
			entry.ModTime = info.ModTime()
			entry.Size, _ = dirSize(workdir)
			if session, err := Load(workdir); err == nil {
				entry.Recipe = session.Recipe
				entry.Source = session.Source
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.Before(entries[j].ModTime) })
	return entries, nil
}

// Prune removes pointers whose working directory no longer exists. It returns
// the pruned working directories and any errors encountered.
func (r *Registry) Prune(logger *slog.Logger) PruneResult {
	result := PruneResult{}

	pointers, err := r.pointers()
	if err != nil {
		result.Errors = append(result.Errors, PruneError{Path: r.dir, Error: err})
		return result
	}

	for _, pointer := range pointers {
		workdir, err := readPointer(pointer)
		if err != nil {
			result.Errors = append(result.Errors, PruneError{Path: pointer, Error: err})
			continue
		}
		if workdir != "" {
			if _, err := os.Stat(workdir); err == nil {
				continue
			}
		}

		if err := os.Remove(pointer); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: pointer, Error: err})
			continue
		}
		result.Removed = append(result.Removed, workdir)
		if logger != nil {
			logger.Info("pruned dangling session pointer",
				logging.String(logging.FieldWorkdir, workdir))
		}
	}

	return result
}

func (r *Registry) pointers() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read registry directory: %w", err)
	}

	var pointers []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".session") {
			continue
		}
		pointers = append(pointers, filepath.Join(r.dir, entry.Name()))
	}
	return pointers, nil
}

func readPointer(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// dirSize calculates the total size of a directory recursively, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
