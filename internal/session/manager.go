package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cookbook/internal/buildtool"
	"cookbook/internal/catalog"
	"cookbook/internal/config"
	"cookbook/internal/fileutil"
	"cookbook/internal/logging"
)

// Manager owns the stage/abort/finalize lifecycle of working directories.
// The external build tool gets write access to a session's contents but never
// to its lifecycle.
type Manager struct {
	tool     *buildtool.Client
	logger   *slog.Logger
	registry *Registry
	locksDir string
}

// NewManager constructs a lifecycle manager.
func NewManager(cfg *config.Config, tool *buildtool.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		tool:     tool,
		logger:   logger,
		registry: NewRegistry(cfg.SessionsDir()),
		locksDir: cfg.LocksDir(),
	}
}

// Registry exposes the session registry for listing commands.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Stage relocates sourcePath and the recipe's declared requirements into a
// fresh working directory named <recipe>:<basename> next to the source, and
// records the manifest and origin sidecar needed to reverse the move.
func (m *Manager) Stage(ctx context.Context, sourcePath string, recipe catalog.Recipe) (*Session, error) {
	source, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", source)
	}

	ext := catalog.NormalizeExtension(filepath.Ext(source))
	if ext == "" {
		return nil, fmt.Errorf("source %s has no extension; recipes are keyed by extension", source)
	}
	if ext != recipe.Extension {
		return nil, fmt.Errorf("recipe %s applies to .%s files, not %s", recipe.Name, recipe.Extension, filepath.Base(source))
	}

	if _, err := os.Stat(recipe.TemplatePath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Wrap(catalog.ErrNotFound, "stage", fmt.Sprintf("recipe %s has no %s template", recipe.Name, catalog.TemplateName), nil)
		}
		return nil, fmt.Errorf("stat template: %w", err)
	}

	workdir := WorkdirFor(source, recipe.Name)

	unlock, err := m.acquireLock(workdir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := os.Stat(workdir); err == nil {
		return nil, Wrap(ErrAlreadyStaged, "stage", fmt.Sprintf("working directory %s exists", workdir), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat working directory: %w", err)
	}

	parent := filepath.Dir(source)
	pending := filepath.Join(parent, catalog.TemplateName)
	if _, err := os.Stat(pending); err == nil {
		return nil, Wrap(ErrAlreadyStaged, "stage", fmt.Sprintf("%s already has a %s", parent, catalog.TemplateName), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat pending build script: %w", err)
	}

	if err := fileutil.CopyFile(recipe.TemplatePath(), pending); err != nil {
		return nil, fmt.Errorf("copy template: %w", err)
	}
	staged := false
	defer func() {
		if !staged {
			_ = os.Remove(pending)
		}
	}()

	// Requirements are declared against the pre-stage directory context.
	result, err := m.tool.Requires(ctx, parent)
	if err != nil {
		return nil, err
	}
	requires, err := requirementNames(result, source)
	if err != nil {
		return nil, err
	}
	for _, name := range requires {
		if _, err := os.Stat(filepath.Join(parent, name)); err != nil {
			return nil, Wrap(ErrMalformedRecipe, "stage", fmt.Sprintf("declared requirement %q not found in %s", name, parent), err)
		}
	}

	if err := os.Mkdir(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	session := &Session{
		ID:       uuid.NewString(),
		Recipe:   recipe.Name,
		Dir:      workdir,
		Source:   source,
		Requires: requires,
	}

	if err := fileutil.MoveFile(pending, session.ScriptPath()); err != nil {
		return nil, fmt.Errorf("relocate build script: %w", err)
	}
	staged = true

	for _, name := range requires {
		if err := fileutil.MoveFile(filepath.Join(parent, name), filepath.Join(workdir, name)); err != nil {
			return nil, fmt.Errorf("relocate requirement %s: %w", name, err)
		}
	}

	if err := fileutil.MoveFile(source, session.InputPath()); err != nil {
		return nil, fmt.Errorf("relocate source file: %w", err)
	}

	if err := session.writeManifest(); err != nil {
		return nil, err
	}
	if err := session.writeOrigin(); err != nil {
		return nil, err
	}

	if err := m.registry.Add(workdir); err != nil {
		m.logger.Warn("failed to register session", logging.Error(err), logging.String(logging.FieldWorkdir, workdir))
	}

	m.sessionLogger(ctx, session).Info("staged file for transformation",
		logging.Int("requirements", len(requires)))
	return session, nil
}

// Abort reverses a staging: the input returns to its original name, manifest
// entries move back to the parent, and the working directory is removed
// recursively. Outputs are regenerable, so the removal is unconditional.
func (m *Manager) Abort(ctx context.Context, dir string) error {
	session, err := Load(dir)
	if err != nil {
		return err
	}
	logger := m.sessionLogger(ctx, session)

	input := session.InputPath()
	if _, err := os.Stat(input); err != nil {
		return Wrap(ErrNotStaged, "abort", fmt.Sprintf("staged input %s missing", session.InputName()), err)
	}
	if err := fileutil.MoveFile(input, session.Source); err != nil {
		return fmt.Errorf("restore source file: %w", err)
	}

	parent := filepath.Dir(session.Dir)
	for _, name := range session.Requires {
		staged := filepath.Join(session.Dir, name)
		if _, err := os.Stat(staged); err != nil {
			logger.Warn("manifest entry missing from working directory",
				logging.String("name", name), logging.Error(err))
			continue
		}
		if err := fileutil.MoveFile(staged, filepath.Join(parent, name)); err != nil {
			return fmt.Errorf("restore requirement %s: %w", name, err)
		}
	}

	if err := os.RemoveAll(session.Dir); err != nil {
		return fmt.Errorf("remove working directory: %w", err)
	}

	if err := m.registry.Remove(session.Dir); err != nil {
		logger.Warn("failed to deregister session", logging.Error(err))
	}
	_ = os.Remove(filepath.Join(m.locksDir, pathKey(session.Dir)+".lock"))

	logger.Info("aborted session, original layout restored")
	return nil
}

// Finalize promotes the recipe's declared outputs into the parent directory,
// then aborts to clean up staging remnants. It returns the promoted paths.
func (m *Manager) Finalize(ctx context.Context, dir string) ([]string, error) {
	session, err := Load(dir)
	if err != nil {
		return nil, err
	}
	logger := m.sessionLogger(ctx, session)

	result, err := m.tool.Provides(ctx, session.Dir)
	if err != nil {
		return nil, err
	}
	outputs, err := outputNames(result)
	if err != nil {
		return nil, err
	}

	parent := filepath.Dir(session.Dir)
	sourceExt := filepath.Ext(session.Source)
	stem := strings.TrimSuffix(filepath.Base(session.Source), sourceExt)

	promoted := make([]string, 0, len(outputs))
	for _, name := range outputs {
		produced := filepath.Join(session.Dir, name)
		if _, err := os.Stat(produced); err != nil {
			return nil, Wrap(ErrMalformedRecipe, "finalize", fmt.Sprintf("declared output %q not found in working directory", name), err)
		}

		dest := filepath.Join(parent, name)
		if len(outputs) == 1 && filepath.Ext(name) != sourceExt {
			// Single output with a new extension keeps the original stem:
			// album.cue transformed to one flac lands as album.flac.
			dest = filepath.Join(parent, stem+filepath.Ext(name))
		}
		if dest == session.Source {
			logger.Warn("output shares the original filename; the restored original will replace it",
				logging.String("output", name))
		}
		if err := fileutil.MoveFile(produced, dest); err != nil {
			return nil, fmt.Errorf("promote output %s: %w", name, err)
		}
		promoted = append(promoted, dest)
	}

	if err := m.Abort(ctx, session.Dir); err != nil {
		return promoted, fmt.Errorf("cleanup after promote: %w", err)
	}

	logger.Info("finalized session", logging.Int("outputs", len(promoted)))
	return promoted, nil
}

func (m *Manager) acquireLock(workdir string) (func(), error) {
	if err := os.MkdirAll(m.locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create locks directory: %w", err)
	}
	lock := flock.New(filepath.Join(m.locksDir, pathKey(workdir)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, Wrap(ErrAlreadyStaged, "stage", fmt.Sprintf("another staging of %s is in progress", workdir), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (m *Manager) sessionLogger(ctx context.Context, session *Session) *slog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRecipe(ctx, session.Recipe)
	ctx = logging.WithSource(ctx, session.Source)
	ctx = logging.WithWorkdir(ctx, session.Dir)
	if session.ID != "" {
		ctx = logging.WithCorrelationID(ctx, session.ID)
	}
	return logging.WithContext(ctx, m.logger)
}

func requirementNames(result buildtool.TargetResult, source string) ([]string, error) {
	switch result.Outcome {
	case buildtool.TargetOK:
	case buildtool.TargetUndefined:
		return nil, Wrap(ErrMalformedRecipe, "stage", "build script does not define the requirements target", nil)
	default:
		return nil, Wrap(ErrMalformedRecipe, "stage", fmt.Sprintf("requirements query failed with exit code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)), nil)
	}

	reserved := map[string]struct{}{
		catalog.TemplateName: {},
		ManifestName:         {},
		OriginName:           {},
		inputStem + filepath.Ext(source): {},
		filepath.Base(source):            {},
	}

	names := make([]string, 0, len(result.Lines))
	for _, name := range result.Lines {
		if err := validateRelativeName(name); err != nil {
			return nil, Wrap(ErrMalformedRecipe, "stage", fmt.Sprintf("bad requirement name %q", name), err)
		}
		if _, clash := reserved[name]; clash {
			return nil, Wrap(ErrMalformedRecipe, "stage", fmt.Sprintf("requirement name %q collides with a staging file", name), nil)
		}
		names = append(names, name)
	}
	return names, nil
}

func outputNames(result buildtool.TargetResult) ([]string, error) {
	switch result.Outcome {
	case buildtool.TargetOK:
	case buildtool.TargetUndefined:
		return nil, Wrap(ErrMalformedRecipe, "finalize", "build script does not define the outputs target", nil)
	default:
		return nil, Wrap(ErrMalformedRecipe, "finalize", fmt.Sprintf("outputs query failed with exit code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)), nil)
	}

	if len(result.Lines) == 0 {
		return nil, Wrap(ErrMalformedRecipe, "finalize", "recipe declared no outputs; refusing to discard the build silently", nil)
	}

	for _, name := range result.Lines {
		if err := validateRelativeName(name); err != nil {
			return nil, Wrap(ErrMalformedRecipe, "finalize", fmt.Sprintf("bad output name %q", name), err)
		}
	}
	return result.Lines, nil
}

func validateRelativeName(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		return errors.New("must be a bare filename relative to the working directory")
	}
	if name == "." || name == ".." {
		return errors.New("must name a file")
	}
	return nil
}
