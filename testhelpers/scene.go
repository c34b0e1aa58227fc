package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"stackline.dev/stackline/internal/git"
)

// defaultRepoConfig is the config 'stackline init' would write for a
// repository with the standard trunk and remote.
const defaultRepoConfig = `{
  "trunk": "main",
  "remote": "origin"
}
`

// Scene is a test fixture: a temporary directory holding a real, initialized
// git repository with stackline's repo config already in place. NewScene
// additionally makes the repository the process working directory, which is
// what the package-level git helpers operate on.
type Scene struct {
	Dir    string
	Repo   *GitRepo
	oldDir string
}

// SceneSetup is a function type for seeding a scene before the test runs.
type SceneSetup func(*Scene) error

// NewScene creates a scene and changes the working directory into it. Cleanup
// restores the previous directory and removes the scene unless DEBUG is set.
// Tests using NewScene must not run in parallel; the working directory and
// the cached default repository are process-global.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	scene := newSceneDir(t, setup)

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current directory: %v", err)
	}
	scene.oldDir = oldDir

	if err := os.Chdir(scene.Dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}

	// Keep the code under test from reading the developer's git config.
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	// The package-level git helpers cache a repository handle; rebind it
	// to this scene and drop it again on cleanup.
	git.ResetDefaultRepo()
	if err := git.InitDefaultRepo(); err != nil {
		t.Fatalf("failed to initialize repo: %v", err)
	}

	t.Cleanup(func() {
		_ = os.Chdir(oldDir)
		git.ResetDefaultRepo()
	})

	return scene
}

// NewSceneParallel creates a scene without touching process-global state, so
// tests can run in parallel. Callers address the repository through scene.Dir
// and scene.Repo instead of the working directory.
func NewSceneParallel(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()
	return newSceneDir(t, setup)
}

func newSceneDir(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "stackline-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	// MkdirTemp may return a path containing symlinks (notably on macOS);
	// resolve it so comparisons against git rev-parse output hold.
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}

	repo, err := NewGitRepo(tmpDir)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("failed to create git repo: %v", err)
	}

	scene := &Scene{
		Dir:  tmpDir,
		Repo: repo,
	}

	if err := scene.writeDefaultConfig(); err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("failed to write repo config: %v", err)
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			_ = os.RemoveAll(tmpDir)
			t.Fatalf("scene setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		if os.Getenv("DEBUG") == "" {
			_ = os.RemoveAll(tmpDir)
		}
	})

	return scene
}

// writeDefaultConfig writes the stackline repo config so commands treat the
// scene as initialized.
func (s *Scene) writeDefaultConfig() error {
	configPath := filepath.Join(s.Dir, ".git", ".stackline_config")
	return os.WriteFile(configPath, []byte(defaultRepoConfig), 0600)
}

// BasicSceneSetup seeds a scene with a single commit on main.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}
