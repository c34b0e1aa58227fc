package actions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stackline.dev/stackline/internal/actions"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/testhelpers"
)

func TestStatusAction(t *testing.T) {
	ctx := context.Background()

	t.Run("reports unmanaged and unclassified branches without touching GitHub", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))

		fake := testhelpers.NewFakeGitHub()
		rc := newTestContext(scene, fake)

		require.NoError(t, actions.StatusAction(ctx, rc))

		manageBranch(t, "feature", managed.Unmanaged)
		require.NoError(t, actions.StatusAction(ctx, rc))
		require.Empty(t, fake.Creates())
	})

	t.Run("reports a managed branch with no commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manageBranch(t, "feature", managed.ManagedPrivate)

		require.NoError(t, actions.StatusAction(ctx, newTestContext(scene, testhelpers.NewFakeGitHub())))
	})

	t.Run("renders published, amended and fresh commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		require.NoError(t, scene.Repo.CommitWithMessage("3", "3", withTrailer("wire widget", testID("c"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		fake := testhelpers.NewFakeGitHub()
		rc := newTestContext(scene, fake)
		require.NoError(t, actions.SyncAction(ctx, rc, actions.SyncOptions{}))

		// Amend the top commit and stack one more that was never synced.
		require.NoError(t, scene.Repo.CreateChangeAndAmend("3b", "3b"))
		require.NoError(t, scene.Repo.CommitWithMessage("4", "4", withTrailer("test widget", testID("d"))))

		require.NoError(t, actions.StatusAction(ctx, rc))

		// Status only reads: no refs moved, no PRs were created or touched.
		require.Len(t, fake.Creates(), 2)
		testhelpers.ExpectNoRemoteRef(t, scene.Repo, "origin", "refs/heads/"+string(testID("d")))
	})

	t.Run("fails on a detached HEAD outside a rebase", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		sha, err := scene.Repo.GetCurrentSHA()
		require.NoError(t, err)
		require.NoError(t, scene.Repo.CheckoutDetached(sha))

		err = actions.StatusAction(ctx, newTestContext(scene, testhelpers.NewFakeGitHub()))
		require.Error(t, err)
		require.ErrorIs(t, err, stacklineerrors.ErrNotOnBranch)
	})
}
