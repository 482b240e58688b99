package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cookbook/internal/buildtool"
	"cookbook/internal/catalog"
	"cookbook/internal/config"
	"cookbook/internal/logging"
	"cookbook/internal/session"
)

type fakeResult struct {
	stdout string
	stderr string
	exit   int
}

// scriptedExecutor answers build tool queries per target name; unknown
// targets behave like make's missing-target error.
type scriptedExecutor struct {
	byTarget map[string]fakeResult
	lastDir  string
}

func (e *scriptedExecutor) Run(_ context.Context, dir, _ string, args []string) (string, string, int, error) {
	e.lastDir = dir
	target := args[len(args)-1]
	res, ok := e.byTarget[target]
	if !ok {
		return "", "make: *** No rule to make target '" + target + "'.  Stop.\n", 2, nil
	}
	return res.stdout, res.stderr, res.exit, nil
}

type fixture struct {
	manager *session.Manager
	catalog *catalog.Catalog
	exec    *scriptedExecutor
	music   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.RecipesRoot = filepath.Join(base, "recipes")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	exec := &scriptedExecutor{byTarget: map[string]fakeResult{}}
	tool, err := buildtool.New(cfg.Build, buildtool.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}

	music := filepath.Join(base, "music")
	if err := os.MkdirAll(music, 0o755); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		manager: session.NewManager(&cfg, tool, logging.NewNop()),
		catalog: catalog.New(cfg.Paths.RecipesRoot),
		exec:    exec,
		music:   music,
	}
}

func (f *fixture) writeRecipe(t *testing.T, ext, name, template string) catalog.Recipe {
	t.Helper()
	dir := filepath.Join(f.catalog.Root(), ext, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, catalog.TemplateName), []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}
	recipe, err := f.catalog.Resolve(ext, name)
	if err != nil {
		t.Fatal(err)
	}
	return recipe
}

func (f *fixture) writeSourceFiles(t *testing.T, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(f.music, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestStageLayout(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n\t@echo tags.txt\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "FILE \"album.flac\"", "tags.txt": "artist=x"})
	f.exec.byTarget["require"] = fakeResult{stdout: "tags.txt\n"}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	wantDir := filepath.Join(f.music, "split:album.cue")
	if s.Dir != wantDir {
		t.Fatalf("unexpected workdir: %q", s.Dir)
	}
	if f.exec.lastDir != f.music {
		t.Fatalf("requirements queried in %q, want pre-stage dir %q", f.exec.lastDir, f.music)
	}

	for _, name := range []string{"in.cue", catalog.TemplateName, "tags.txt", session.ManifestName, session.OriginName} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Fatalf("missing %s in workdir: %v", name, err)
		}
	}

	manifest, err := os.ReadFile(filepath.Join(wantDir, session.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if string(manifest) != "tags.txt\n" {
		t.Fatalf("unexpected manifest: %q", manifest)
	}

	origin, err := os.ReadFile(filepath.Join(wantDir, session.OriginName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(origin), "source="+filepath.Join(f.music, "album.cue")) {
		t.Fatalf("origin lacks source path: %q", origin)
	}
	if !strings.Contains(string(origin), "recipe=split") {
		t.Fatalf("origin lacks recipe: %q", origin)
	}
	if s.ID == "" {
		t.Fatal("expected a session ID")
	}

	// Source and requirement left the parent; only the workdir remains.
	if got := listNames(t, f.music); len(got) != 1 || got[0] != "split:album.cue" {
		t.Fatalf("unexpected parent contents: %v", got)
	}
}

func TestStageAbortRoundTrip(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n\t@echo tags.txt\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "cue sheet", "tags.txt": "artist=x"})
	f.exec.byTarget["require"] = fakeResult{stdout: "tags.txt\n"}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := f.manager.Abort(context.Background(), s.Dir); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if _, err := os.Stat(s.Dir); !os.IsNotExist(err) {
		t.Fatalf("workdir survived abort: %v", err)
	}
	for name, want := range map[string]string{"album.cue": "cue sheet", "tags.txt": "artist=x"} {
		got, err := os.ReadFile(filepath.Join(f.music, name))
		if err != nil {
			t.Fatalf("restored file %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("content mismatch for %s: got %q want %q", name, got, want)
		}
	}
	if got := listNames(t, f.music); len(got) != 2 {
		t.Fatalf("unexpected parent contents after abort: %v", got)
	}
}

func TestStageMissingTemplate(t *testing.T) {
	f := newFixture(t)
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})

	recipe := catalog.Recipe{Extension: "cue", Name: "split", Dir: filepath.Join(f.catalog.Root(), "cue", "split")}
	_, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStageUndefinedRequiresTarget(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "all:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	// No require entry: executor answers with the missing-target error.

	_, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if !errors.Is(err, session.ErrMalformedRecipe) {
		t.Fatalf("expected ErrMalformedRecipe, got %v", err)
	}

	// The pending build script copy was cleaned up and nothing was staged.
	if got := listNames(t, f.music); len(got) != 1 || got[0] != "album.cue" {
		t.Fatalf("directory mutated on failed stage: %v", got)
	}
}

func TestStageMissingRequirementFailsFast(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n\t@echo tags.txt\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{stdout: "tags.txt\n"}

	_, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if !errors.Is(err, session.ErrMalformedRecipe) {
		t.Fatalf("expected ErrMalformedRecipe for missing requirement, got %v", err)
	}
	if got := listNames(t, f.music); len(got) != 1 || got[0] != "album.cue" {
		t.Fatalf("directory mutated on failed stage: %v", got)
	}
}

func TestStageTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{}

	if _, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe); err != nil {
		t.Fatalf("first Stage: %v", err)
	}

	// The source is gone now; recreate it to reach the workdir check.
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	_, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if !errors.Is(err, session.ErrAlreadyStaged) {
		t.Fatalf("expected ErrAlreadyStaged, got %v", err)
	}
}

func TestAbortWithoutScript(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.music, "split:album.cue")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	err := f.manager.Abort(context.Background(), dir)
	if !errors.Is(err, session.ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged, got %v", err)
	}
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Fatalf("abort mutated the directory: %v", statErr)
	}
}

func TestAbortRecoversFromDirectoryName(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.music, "split:album.cue")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, catalog.TemplateName), []byte("all:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "in.cue"), []byte("cue sheet"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.manager.Abort(context.Background(), dir); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(f.music, "album.cue"))
	if err != nil {
		t.Fatalf("original not restored: %v", err)
	}
	if string(got) != "cue sheet" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestAbortRejectsUnparseableName(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.music, "noscheme")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, catalog.TemplateName), []byte("all:\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := f.manager.Abort(context.Background(), dir)
	if !errors.Is(err, session.ErrNamingInvariant) {
		t.Fatalf("expected ErrNamingInvariant, got %v", err)
	}
}

func TestFinalizePromotesOutputs(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n\t@echo tags.txt\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "cue sheet", "tags.txt": "artist=x"})
	f.exec.byTarget["require"] = fakeResult{stdout: "tags.txt\n"}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// Simulate the user's build producing two tracks.
	for _, name := range []string{"track1.flac", "track2.flac"} {
		if err := os.WriteFile(filepath.Join(s.Dir, name), []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	f.exec.byTarget["provide"] = fakeResult{stdout: "track1.flac\ntrack2.flac\n"}

	promoted, err := f.manager.Finalize(context.Background(), s.Dir)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(promoted) != 2 {
		t.Fatalf("expected 2 promoted files, got %v", promoted)
	}

	for _, name := range []string{"track1.flac", "track2.flac", "album.cue", "tags.txt"} {
		if _, err := os.Stat(filepath.Join(f.music, name)); err != nil {
			t.Fatalf("missing %s after finalize: %v", name, err)
		}
	}
	if _, err := os.Stat(s.Dir); !os.IsNotExist(err) {
		t.Fatalf("workdir survived finalize: %v", err)
	}
}

func TestFinalizeSingleOutputExtensionCorrection(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "svg", "render", "require:\n")
	f.writeSourceFiles(t, map[string]string{"logo.svg": "<svg/>"})
	f.exec.byTarget["require"] = fakeResult{}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "logo.svg"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if err := os.WriteFile(filepath.Join(s.Dir, "out.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.exec.byTarget["provide"] = fakeResult{stdout: "out.png\n"}

	promoted, err := f.manager.Finalize(context.Background(), s.Dir)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	want := filepath.Join(f.music, "logo.png")
	if len(promoted) != 1 || promoted[0] != want {
		t.Fatalf("expected %q, got %v", want, promoted)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("corrected output missing: %v", err)
	}
	// The original input is restored alongside the output.
	if _, err := os.Stat(filepath.Join(f.music, "logo.svg")); err != nil {
		t.Fatalf("original missing after finalize: %v", err)
	}
}

func TestFinalizeZeroOutputsIsError(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	f.exec.byTarget["provide"] = fakeResult{stdout: "\n"}
	_, err = f.manager.Finalize(context.Background(), s.Dir)
	if !errors.Is(err, session.ErrMalformedRecipe) {
		t.Fatalf("expected ErrMalformedRecipe for zero outputs, got %v", err)
	}
	// Session survives so the user can fix the recipe or abort explicitly.
	if _, statErr := os.Stat(s.Dir); statErr != nil {
		t.Fatalf("workdir removed despite failed finalize: %v", statErr)
	}
}

func TestFinalizeUndefinedProvidesTarget(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	_, err = f.manager.Finalize(context.Background(), s.Dir)
	if !errors.Is(err, session.ErrMalformedRecipe) {
		t.Fatalf("expected ErrMalformedRecipe, got %v", err)
	}
}

func TestRegistryTracksSessions(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	entries, err := f.manager.Registry().List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Workdir != s.Dir {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Recipe != "split" {
		t.Fatalf("expected recipe metadata, got %+v", entries[0])
	}

	if err := f.manager.Abort(context.Background(), s.Dir); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	entries, err = f.manager.Registry().List()
	if err != nil {
		t.Fatalf("List after abort: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty registry, got %+v", entries)
	}
}

func TestRegistryPruneDropsDanglingPointers(t *testing.T) {
	f := newFixture(t)
	recipe := f.writeRecipe(t, "cue", "split", "require:\n")
	f.writeSourceFiles(t, map[string]string{"album.cue": "x"})
	f.exec.byTarget["require"] = fakeResult{}

	s, err := f.manager.Stage(context.Background(), filepath.Join(f.music, "album.cue"), recipe)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// Remove the workdir behind the registry's back.
	if err := os.RemoveAll(s.Dir); err != nil {
		t.Fatal(err)
	}

	result := f.manager.Registry().Prune(logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected prune errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != s.Dir {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}

	entries, err := f.manager.Registry().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty registry after prune, got %+v", entries)
	}
}
