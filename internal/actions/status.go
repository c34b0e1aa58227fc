package actions

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stackline.dev/stackline/internal/github"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/prsync"
	"stackline.dev/stackline/internal/runtime"
	"stackline.dev/stackline/internal/stack"
)

// StatusAction prints the current stack with its published versions and pull
// requests, top of stack first. It only reads; nothing on the remote is
// touched.
func StatusAction(ctx context.Context, rc *runtime.Context) error {
	splog := rc.Splog

	branch, err := activeBranch(rc.RepoRoot)
	if err != nil {
		return err
	}

	state, err := managed.GetState(ctx, rc.Store, branch)
	if err != nil {
		return err
	}
	if !state.IsManaged() {
		splog.Info("On branch %s (%s).", output.ColorBranchName(branch, true), state)
		if state == managed.Unclassified {
			splog.Tip("Run 'stackline manage' to sync this branch as a stack.")
		}
		return nil
	}

	stk, err := stack.Extract(ctx, rc.Trunk, "HEAD")
	if err != nil {
		return err
	}
	splog.Info("On branch %s (%s), %d commit(s) above %s.",
		output.ColorBranchName(branch, true), state, len(stk), rc.Trunk)
	if stk.IsEmpty() {
		return nil
	}

	client, err := rc.EnsureGitHub(ctx)
	if err != nil {
		return err
	}

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
	allocs := stack.Allocate(stk, remote)

	splog.Newline()
	for i := len(allocs) - 1; i >= 0; i-- {
		alloc := allocs[i]
		c := alloc.Commit

		var publishNote string
		switch {
		case alloc.Unchanged:
			publishNote = fmt.Sprintf("published as v%d", alloc.Version)
		case alloc.Version > 1:
			publishNote = fmt.Sprintf("local edits, v%d on next sync", alloc.Version)
		default:
			publishNote = "never published"
		}

		prNote := "no PR"
		if pr, ok := idx[c.ID.String()]; ok {
			prNote = fmt.Sprintf("%s %s", output.ColorPRNumber(pr.Number), output.ColorPRState(pr.State, pr.Merged, pr.Draft))
		}

		splog.Info("%s", output.ColorStackEntry(fmt.Sprintf("%s %s", c.ShortSHA(), c.Subject()), c.Position))
		splog.Info("  %s %s", output.ColorDim(string(c.ID)), output.ColorDim(fmt.Sprintf("(%s, %s)", publishNote, prNote)))
	}

	return nil
}
