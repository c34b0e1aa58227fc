package actions_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stackline.dev/stackline/internal/actions"
	"stackline.dev/stackline/internal/changeid"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/github"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/prsync"
	"stackline.dev/stackline/internal/runtime"
	"stackline.dev/stackline/testhelpers"
)

// testID builds a distinct well-formed change id from a single letter.
func testID(letter string) changeid.ID {
	return changeid.ID("g" + strings.Repeat(letter, 32))
}

// withTrailer appends a change id trailer to a commit subject.
func withTrailer(subject string, id changeid.ID) string {
	return fmt.Sprintf("%s\n\n%s: %s", subject, changeid.TrailerKey, id)
}

// newTestContext builds a runtime context pointing at the scene's repository
// with a pre-injected GitHub client, the way hooks and commands would see it.
func newTestContext(scene *testhelpers.Scene, gh github.Client) *runtime.Context {
	splog := output.NewSplog()
	splog.SetQuiet(true)
	return &runtime.Context{
		Splog:    splog,
		RepoRoot: scene.Dir,
		Trunk:    "main",
		Remote:   "origin",
		Store:    managed.GitConfigStore{},
		GitHub:   gh,
	}
}

// manageBranch records a management state directly, bypassing the manage
// action, so sync tests control their own preconditions.
func manageBranch(t *testing.T, branch string, state managed.State) {
	t.Helper()
	_, err := managed.SetState(context.Background(), managed.GitConfigStore{}, branch, state, "origin", true)
	require.NoError(t, err)
}

func TestSyncActionGates(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an unclassified branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))

		err := actions.SyncAction(ctx, newTestContext(scene, testhelpers.NewFakeGitHub()), actions.SyncOptions{})
		require.Error(t, err)
		require.ErrorIs(t, err, stacklineerrors.ErrBranchUnclassified)
	})

	t.Run("lets an unmanaged branch push through untouched", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		manageBranch(t, "feature", managed.Unmanaged)

		fake := testhelpers.NewFakeGitHub()
		err := actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{})
		require.NoError(t, err)
		require.Empty(t, fake.Creates())
	})

	t.Run("does nothing when there are no commits above the trunk", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		manageBranch(t, "feature", managed.ManagedPrivate)

		fake := testhelpers.NewFakeGitHub()
		err := actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{})
		require.NoError(t, err)
		require.Empty(t, fake.Creates())
	})

	t.Run("fails validation when a commit has no change id", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CreateChangeAndCommit("2", "2"))
		manageBranch(t, "feature", managed.ManagedPrivate)

		err := actions.SyncAction(ctx, newTestContext(scene, testhelpers.NewFakeGitHub()), actions.SyncOptions{})
		require.Error(t, err)
		require.ErrorIs(t, err, stacklineerrors.ErrValidation)
		require.Contains(t, err.Error(), changeid.TrailerKey)
	})

	t.Run("reports a transport failure when the remote is unreachable", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		// No remote named origin exists in this scene.
		err := actions.SyncAction(ctx, newTestContext(scene, testhelpers.NewFakeGitHub()), actions.SyncOptions{})
		require.Error(t, err)
		require.ErrorIs(t, err, stacklineerrors.ErrTransport)
	})
}

func TestSyncActionPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes refs and opens pull requests chained bottom to top", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		require.NoError(t, scene.Repo.CommitWithMessage("3", "3", withTrailer("wire widget", testID("c"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		bottomSHA, err := scene.Repo.GetRevision("HEAD~1")
		require.NoError(t, err)
		topSHA, err := scene.Repo.GetRevision("HEAD")
		require.NoError(t, err)

		fake := testhelpers.NewFakeGitHub()
		require.NoError(t, actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{}))

		// One phantom branch and one v1 tag per commit.
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/heads/"+string(testID("b")), bottomSHA)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/heads/"+string(testID("c")), topSHA)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/tags/stackline/"+string(testID("b"))+"/v1", bottomSHA)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/tags/stackline/"+string(testID("c"))+"/v1", topSHA)

		// A private stack never publishes the branch itself.
		testhelpers.ExpectNoRemoteRef(t, scene.Repo, "origin", "refs/heads/feature")

		creates := fake.Creates()
		require.Len(t, creates, 2)
		require.Equal(t, "main", creates[0].Base)
		require.Equal(t, string(testID("b")), creates[0].Head)
		require.Equal(t, string(testID("b")), creates[1].Base)
		require.Equal(t, string(testID("c")), creates[1].Head)

		bottom := fake.PR(1)
		require.NotNil(t, bottom)
		require.Equal(t, "add widget", bottom.Title)
		require.Contains(t, bottom.Body, "- #2\n- #1 👈")
		require.NotContains(t, bottom.Body, "feature")

		meta, ok := prsync.ParseMetaBlock(bottom.Body)
		require.True(t, ok)
		require.Equal(t, testID("b"), meta.ID)
		require.Empty(t, meta.Parent)
		require.Equal(t, testID("c"), meta.Child)
	})

	t.Run("a second run with nothing changed performs no writes", func(t *testing.T) {
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

		// The first run creates each PR and then fills in its rendered
		// body, so one update per PR is the steady state.
		updatesAfterFirst := len(fake.Updates(1)) + len(fake.Updates(2))

		before, err := scene.Repo.RemoteRefs("origin")
		require.NoError(t, err)

		require.NoError(t, actions.SyncAction(ctx, rc, actions.SyncOptions{}))

		after, err := scene.Repo.RemoteRefs("origin")
		require.NoError(t, err)
		require.Equal(t, before, after)
		require.Len(t, fake.Creates(), 2)
		require.Equal(t, updatesAfterFirst, len(fake.Updates(1))+len(fake.Updates(2)))
	})

	t.Run("an amended commit gets a new version and its PR is refreshed", func(t *testing.T) {
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

		bottomUpdates := len(fake.Updates(1))
		topUpdates := len(fake.Updates(2))

		oldTopSHA, err := scene.Repo.GetRevision("HEAD")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateChangeAndAmend("3b", "3b"))
		newTopSHA, err := scene.Repo.GetRevision("HEAD")
		require.NoError(t, err)
		require.NotEqual(t, oldTopSHA, newTopSHA)

		require.NoError(t, actions.SyncAction(ctx, rc, actions.SyncOptions{}))

		// The phantom branch moved; v1 is immutable and v2 records the
		// new state.
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/heads/"+string(testID("c")), newTopSHA)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/tags/stackline/"+string(testID("c"))+"/v1", oldTopSHA)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/tags/stackline/"+string(testID("c"))+"/v2", newTopSHA)

		// Only the amended commit's PR was touched.
		require.Len(t, fake.Updates(1), bottomUpdates)
		updates := fake.Updates(2)
		require.Len(t, updates, topUpdates+1)
		last := updates[len(updates)-1]
		require.NotNil(t, last.Body)
		require.Contains(t, *last.Body, "**Latest update:** v2")
	})

	t.Run("a public stack names its source branch in the body", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		manageBranch(t, "feature", managed.ManagedPublic)

		fake := testhelpers.NewFakeGitHub()
		require.NoError(t, actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{}))

		pr := fake.PR(1)
		require.NotNil(t, pr)
		require.Contains(t, pr.Body, "feature")
	})

	t.Run("dry run reads everything and writes nothing", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		fake := testhelpers.NewFakeGitHub()
		require.NoError(t, actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{DryRun: true}))

		refs, err := scene.Repo.RemoteRefs("origin")
		require.NoError(t, err)
		require.Empty(t, refs)
		require.Empty(t, fake.Creates())
	})

	t.Run("syncs the rebased branch while HEAD is detached mid-rebase", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		require.NoError(t, scene.Repo.CheckoutDetached("feature"))
		rebaseDir := filepath.Join(scene.Dir, ".git", "rebase-merge")
		require.NoError(t, os.MkdirAll(rebaseDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(rebaseDir, "head-name"), []byte("refs/heads/feature\n"), 0o644))

		fake := testhelpers.NewFakeGitHub()
		require.NoError(t, actions.SyncAction(ctx, newTestContext(scene, fake), actions.SyncOptions{}))
		require.Len(t, fake.Creates(), 1)
		require.Equal(t, string(testID("b")), fake.Creates()[0].Head)
	})
}

func TestSyncActionConvergence(t *testing.T) {
	ctx := context.Background()

	t.Run("rerunning after a partial PR failure heals the stack", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		_, err := scene.Repo.CreateBareRemote("origin")
		require.NoError(t, err)

		require.NoError(t, scene.Repo.CreateAndCheckoutBranch("feature"))
		require.NoError(t, scene.Repo.CommitWithMessage("2", "2", withTrailer("add widget", testID("b"))))
		require.NoError(t, scene.Repo.CommitWithMessage("3", "3", withTrailer("wire widget", testID("c"))))
		manageBranch(t, "feature", managed.ManagedPrivate)

		fake := testhelpers.NewFakeGitHub()
		fake.CreateErr = func(opts github.CreatePROptions) error {
			if opts.Head == string(testID("c")) {
				return errors.New("boom")
			}
			return nil
		}

		rc := newTestContext(scene, fake)
		err = actions.SyncAction(ctx, rc, actions.SyncOptions{})
		require.Error(t, err)
		require.ErrorIs(t, err, stacklineerrors.ErrPartialSync)

		// The refs landed before the PR phase, and the bottom PR exists
		// with navigation that skips the missing neighbor.
		topSHA, revErr := scene.Repo.GetRevision("HEAD")
		require.NoError(t, revErr)
		testhelpers.ExpectRemoteRef(t, scene.Repo, "origin", "refs/heads/"+string(testID("c")), topSHA)

		bottom := fake.PR(1)
		require.NotNil(t, bottom)
		require.Contains(t, bottom.Body, "- #1 👈")
		require.NotContains(t, bottom.Body, "#0")
		require.Nil(t, fake.PRByHead(string(testID("c"))))

		// Clear the failure and rerun: the missing PR is created and the
		// bottom PR's navigation is completed.
		bottomUpdates := len(fake.Updates(1))
		fake.CreateErr = nil
		require.NoError(t, actions.SyncAction(ctx, rc, actions.SyncOptions{}))

		top := fake.PRByHead(string(testID("c")))
		require.NotNil(t, top)
		require.Equal(t, string(testID("b")), top.Base)

		require.Len(t, fake.Updates(1), bottomUpdates+1)
		require.Contains(t, fake.PR(1).Body, "- #2\n- #1 👈")
	})
}
