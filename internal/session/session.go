package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cookbook/internal/catalog"
)

const (
	// ManifestName is the plain-text file listing relocated requirement
	// filenames, one per line, used to reverse the relocation on abort.
	ManifestName = "requires"
	// OriginName is the sidecar recording where the staged input came from,
	// so abort never has to parse the working directory name.
	OriginName = "origin"
	// inputStem is the canonical staged input name; the source keeps its
	// extension, so album.cue becomes in.cue.
	inputStem = "in"
)

// Session describes one staged transformation attempt.
type Session struct {
	// ID is the correlation identifier minted at stage time. Empty for
	// sessions recovered from the directory name alone.
	ID string
	// Recipe is the name of the recipe being applied.
	Recipe string
	// Dir is the working directory, a sibling of the source named
	// <recipe>:<sourceBasename>.
	Dir string
	// Source is the absolute path the input file is restored to on abort.
	Source string
	// Requires lists the requirement filenames relocated into Dir.
	Requires []string
}

// InputName returns the canonical staged input filename, e.g. in.cue.
func (s *Session) InputName() string {
	return inputStem + filepath.Ext(s.Source)
}

// InputPath returns the staged input's full path inside the working directory.
func (s *Session) InputPath() string {
	return filepath.Join(s.Dir, s.InputName())
}

// ScriptPath returns the build script's path inside the working directory.
func (s *Session) ScriptPath() string {
	return filepath.Join(s.Dir, catalog.TemplateName)
}

// Load reconstructs a session from an existing working directory. It fails
// with ErrNotStaged when the directory holds no build script, and with
// ErrNamingInvariant when the origin sidecar is gone and the directory name
// does not follow the recipe:stem.ext scheme.
func Load(dir string) (*Session, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	if _, err := os.Stat(filepath.Join(dir, catalog.TemplateName)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Wrap(ErrNotStaged, "load", fmt.Sprintf("no %s in %s", catalog.TemplateName, dir), nil)
		}
		return nil, fmt.Errorf("stat build script: %w", err)
	}

	session := &Session{Dir: dir}
	if err := session.readOrigin(); err != nil {
		return nil, err
	}
	if err := session.readManifest(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Session) readOrigin() error {
	data, err := os.ReadFile(filepath.Join(s.Dir, OriginName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.recoverFromName()
		}
		return fmt.Errorf("read origin record: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "source":
			s.Source = value
		case "recipe":
			s.Recipe = value
		case "id":
			s.ID = value
		}
	}

	if s.Source == "" {
		return s.recoverFromName()
	}
	return nil
}

// recoverFromName falls back to the legacy three-component directory naming
// scheme: <recipe>:<stem>.<ext> as a sibling of the original file.
func (s *Session) recoverFromName() error {
	base := filepath.Base(s.Dir)

	recipe, rest, ok := strings.Cut(base, ":")
	if !ok || recipe == "" || strings.Contains(rest, ":") {
		return Wrap(ErrNamingInvariant, "load", fmt.Sprintf("directory %q is not recipe:name.ext", base), nil)
	}
	ext := filepath.Ext(rest)
	if ext == "" || strings.TrimSuffix(rest, ext) == "" {
		return Wrap(ErrNamingInvariant, "load", fmt.Sprintf("directory %q is not recipe:name.ext", base), nil)
	}

	s.Recipe = recipe
	s.Source = filepath.Join(filepath.Dir(s.Dir), rest)
	return nil
}

func (s *Session) readManifest() error {
	data, err := os.ReadFile(filepath.Join(s.Dir, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read manifest: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.Requires = append(s.Requires, line)
	}
	return nil
}

func (s *Session) writeOrigin() error {
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s\n", s.Source)
	fmt.Fprintf(&b, "recipe=%s\n", s.Recipe)
	fmt.Fprintf(&b, "id=%s\n", s.ID)
	if err := os.WriteFile(filepath.Join(s.Dir, OriginName), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write origin record: %w", err)
	}
	return nil
}

func (s *Session) writeManifest() error {
	var b strings.Builder
	for _, name := range s.Requires {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(s.Dir, ManifestName), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// WorkdirFor returns the working directory a staging of source with recipe
// would use: <recipeName>:<sourceBasename> next to the source.
func WorkdirFor(source string, recipeName string) string {
	return filepath.Join(filepath.Dir(source), recipeName+":"+filepath.Base(source))
}

// pathKey digests a working directory path into a short stable key for lock
// and pointer filenames.
func pathKey(dir string) string {
	sum := sha256.Sum256([]byte(dir))
	return hex.EncodeToString(sum[:])[:16]
}
