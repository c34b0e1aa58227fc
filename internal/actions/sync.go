package actions

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/github"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/prsync"
	"stackline.dev/stackline/internal/runtime"
	"stackline.dev/stackline/internal/stack"
)

// SyncOptions contains options for the sync pipeline
type SyncOptions struct {
	// DryRun reports which refs would be pushed and which PRs would be
	// created or updated, then stops before any remote write.
	DryRun bool
}

// SyncAction publishes the current stack: one phantom branch and one version
// tag per commit, pushed atomically under per-ref leases, then one pull
// request per commit with bases chained bottom to top. Every run re-derives
// the same state from the repository and the remote, so rerunning after any
// failure converges; an unchanged stack performs no remote write at all.
func SyncAction(ctx context.Context, rc *runtime.Context, opts SyncOptions) error {
	splog := rc.Splog

	branch, err := activeBranch(rc.RepoRoot)
	if err != nil {
		return err
	}

	state, err := managed.Check(ctx, rc.Store, branch)
	if err != nil {
		if errors.Is(err, stacklineerrors.ErrBranchUnclassified) {
			splog.Error("It is unclear whether branch '%s' should be a stack.", branch)
			splog.Error("Run 'stackline manage' to sync it as a stack.")
			splog.Error("Run 'stackline unmanage' to push it as a standard git branch.")
		}
		return err
	}
	if state == managed.Unmanaged {
		splog.Info("Branch '%s' is unmanaged. Allowing standard push.", branch)
		return nil
	}
	splog.Info("Branch '%s' is %s. Syncing stack...", branch, state)

	stk, err := stack.Extract(ctx, rc.Trunk, "HEAD")
	if err != nil {
		return err
	}
	if stk.IsEmpty() {
		splog.Info("No commits to sync.")
		return nil
	}

	client, err := rc.EnsureGitHub(ctx)
	if err != nil {
		return err
	}

	// One coherent read of the world before deciding anything: phantom
	// refs and the PR listing are independent, fetch them in parallel.
	var (
		remote *stack.RemoteState
		prs    []*github.PullRequestInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		remote, err = stack.FetchRemoteState(gctx, rc.Remote, stk.IDs())
		return err
	})
	g.Go(func() error {
		var err error
		prs, err = client.ListPullRequests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	idx := prsync.BuildIndex(prs)
	if err := prsync.CheckReusable(idx, stk); err != nil {
		return err
	}

	allocs := stack.Allocate(stk, remote)
	plan := stack.BuildPlan(allocs)

	if opts.DryRun {
		printPlan(splog, branch, allocs, plan, idx)
		return nil
	}

	if plan.IsEmpty() {
		splog.Debug("All %d commit(s) already published; no refs to push", len(stk))
	} else {
		splog.Info("Pushing %d ref update(s) to %s...", plan.Size(), rc.Remote)
		for _, batch := range plan.Batches() {
			if err := git.PushAtomic(ctx, rc.Remote, batch); err != nil {
				if errors.Is(err, stacklineerrors.ErrConflict) {
					splog.Error("The remote moved while this push was being prepared. Nothing was published.")
					splog.Tip("Rerun the push to retry against fresh state. If someone else updated this stack, run 'git pull --rebase' first.")
				}
				return err
			}
		}
	}

	progress := output.NewSyncProgressUI(splog)
	result, err := prsync.New(client, splog, progress).Sync(ctx, idx, allocs, prsync.Options{
		Upstream:     rc.Trunk,
		SourceBranch: branch,
		Private:      state == managed.ManagedPrivate,
	})
	progress.Complete()
	if err != nil {
		return err
	}

	created, updated := result.CreatedCount(), result.UpdatedCount()
	switch {
	case created > 0 && updated > 0:
		splog.Info("Synced %d commit(s): %d PR(s) created, %d updated.", len(stk), created, updated)
	case created > 0:
		splog.Info("Synced %d commit(s): %d PR(s) created.", len(stk), created)
	case updated > 0:
		splog.Info("Synced %d commit(s): %d PR(s) updated.", len(stk), updated)
	default:
		splog.Info("Everything up to date.")
	}

	return nil
}

// activeBranch resolves the branch a sync applies to. During a rebase HEAD is
// detached, so fall back to the branch the rebase was started from.
func activeBranch(repoRoot string) (string, error) {
	branch, err := git.GetCurrentBranch()
	if err == nil {
		return branch, nil
	}
	if errors.Is(err, stacklineerrors.ErrNotOnBranch) {
		if rebasing := git.RebaseHeadBranch(repoRoot); rebasing != "" {
			return rebasing, nil
		}
	}
	return "", err
}

// printPlan reports the dry-run outcome, top of stack first to match the
// order pull request navigation renders in.
func printPlan(splog *output.Splog, branch string, allocs []stack.Allocation, plan *stack.Plan, idx prsync.Index) {
	splog.Info("Would sync %d commit(s) on %s:", len(allocs), output.ColorBranchName(branch, true))

	for i := len(allocs) - 1; i >= 0; i-- {
		alloc := allocs[i]
		c := alloc.Commit

		var refNote string
		if alloc.Unchanged {
			refNote = output.ColorDim(fmt.Sprintf("v%d unchanged", alloc.Version))
		} else {
			refNote = fmt.Sprintf("publish v%d", alloc.Version)
		}

		var prNote string
		if pr, ok := idx[c.ID.String()]; ok {
			prNote = fmt.Sprintf("update %s", output.ColorPRNumber(pr.Number))
		} else {
			prNote = "open a new PR"
		}

		splog.Info("  %s", output.ColorStackEntry(fmt.Sprintf("%s %s", c.ShortSHA(), c.Subject()), c.Position))
		splog.Info("    %s, %s", refNote, prNote)
	}

	if plan.IsEmpty() {
		splog.Info("No refs to push; the remote already matches.")
	} else {
		splog.Info("Would push %d ref update(s) in %d batch(es).", plan.Size(), len(plan.Batches()))
	}
}
