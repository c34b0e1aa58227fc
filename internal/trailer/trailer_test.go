package trailer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stackline.dev/stackline/internal/changeid"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/trailer"
	"stackline.dev/stackline/testhelpers"
)

// manage marks a branch managed so the hook acts on it.
func manage(t *testing.T, branch string) {
	t.Helper()
	_, err := managed.SetState(context.Background(), managed.GitConfigStore{}, branch, managed.ManagedPrivate, "origin", false)
	require.NoError(t, err)
}

// writeMessage writes a commit message file into the scene and returns its path.
func writeMessage(t *testing.T, dir, message string) string {
	t.Helper()
	path := filepath.Join(dir, "COMMIT_EDITMSG")
	require.NoError(t, os.WriteFile(path, []byte(message), 0644))
	return path
}

func TestInject(t *testing.T) {
	ctx := context.Background()
	store := managed.GitConfigStore{}

	t.Run("writes a trailer on a managed branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manage(t, "feature")
		path := writeMessage(t, scene.Dir, "add parser\n")

		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.True(t, outcome.Injected)
		require.True(t, changeid.IsValid(outcome.ID.String()))

		content := string(testhelpers.Must(os.ReadFile(path)))
		require.Contains(t, content, changeid.TrailerKey+": "+outcome.ID.String())
	})

	t.Run("is idempotent across amends", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manage(t, "feature")
		path := writeMessage(t, scene.Dir, "add parser\n")

		first, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.True(t, first.Injected)

		// The amend re-runs the hook on the already-stamped message.
		second, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.False(t, second.Injected)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, "trailer already present", second.SkipReason)

		content := string(testhelpers.Must(os.ReadFile(path)))
		require.Equal(t, 1, strings.Count(content, changeid.TrailerKey))
	})

	t.Run("skips unmanaged branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("shared"))
		_, err := managed.SetState(ctx, store, "shared", managed.Unmanaged, "origin", false)
		require.NoError(t, err)
		path := writeMessage(t, scene.Dir, "add parser\n")

		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.False(t, outcome.Injected)
		require.Contains(t, outcome.SkipReason, "unmanaged")

		content := string(testhelpers.Must(os.ReadFile(path)))
		require.NotContains(t, content, changeid.TrailerKey)
	})

	t.Run("skips unclassified branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("undecided"))
		path := writeMessage(t, scene.Dir, "add parser\n")

		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.False(t, outcome.Injected)
		require.Contains(t, outcome.SkipReason, "unclassified")
	})

	t.Run("skips detached head", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		sha := testhelpers.Must(scene.Repo.GetCurrentSHA())
		require.NoError(t, scene.Repo.CheckoutDetached(sha))
		path := writeMessage(t, scene.Dir, "add parser\n")

		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.False(t, outcome.Injected)
		require.Equal(t, "detached HEAD", outcome.SkipReason)
	})

	t.Run("stamps commits replayed by a rebase", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manage(t, "feature")

		// Mid-rebase HEAD is detached; the branch comes from rebase state.
		sha := testhelpers.Must(scene.Repo.GetCurrentSHA())
		require.NoError(t, scene.Repo.CheckoutDetached(sha))
		rebaseDir := filepath.Join(scene.Dir, ".git", "rebase-merge")
		require.NoError(t, os.MkdirAll(rebaseDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(rebaseDir, "head-name"), []byte("refs/heads/feature\n"), 0644))

		path := writeMessage(t, scene.Dir, "add parser\n")
		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.True(t, outcome.Injected)
	})

	t.Run("skips autosquash commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manage(t, "feature")

		for _, prefix := range []string{"fixup! ", "squash! ", "amend! "} {
			path := writeMessage(t, scene.Dir, prefix+"add parser\n")

			outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
			require.NoError(t, err)
			require.False(t, outcome.Injected)
			require.Equal(t, "autosquash commit", outcome.SkipReason)
		}
	})

	t.Run("works on an unborn branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		manage(t, "main")
		path := writeMessage(t, scene.Dir, "first commit\n")

		outcome, err := trailer.Inject(ctx, store, scene.Dir, path)
		require.NoError(t, err)
		require.True(t, outcome.Injected)
		require.True(t, changeid.IsValid(outcome.ID.String()))
	})

	t.Run("fails when the message file is missing", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		_, err := trailer.Inject(ctx, store, scene.Dir, filepath.Join(scene.Dir, "nope"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "commit message file does not exist")
	})
}

func TestInjectedIDsAreDistinct(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
	manage(t, "feature")
	ctx := context.Background()
	store := managed.GitConfigStore{}

	first, err := trailer.Inject(ctx, store, scene.Dir, writeMessage(t, scene.Dir, "first change\n"))
	require.NoError(t, err)

	second, err := trailer.Inject(ctx, store, scene.Dir, writeMessage(t, scene.Dir, "second change\n"))
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
}
