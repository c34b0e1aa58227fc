package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/runtime"
)

// PostCheckoutAction classifies branches at creation time so the first push
// never trips over the unclassified gate. Branches created fresh become
// private stacks; branches that track an existing remote branch other than
// the trunk are someone's shared work and stay unmanaged. Branches that were
// classified before, by this hook or by hand, are left alone.
func PostCheckoutAction(ctx context.Context, rc *runtime.Context, prevHead, newHead, flag string) error {
	// Flag "0" is a file checkout, which never creates a branch
	if flag != "1" {
		return nil
	}

	branch, err := git.GetCurrentBranch()
	if err != nil {
		// Detached or unborn HEAD, nothing to classify
		if errors.Is(err, stacklineerrors.ErrNotOnBranch) {
			return nil
		}
		return err
	}

	state, err := managed.GetState(ctx, rc.Store, branch)
	if err != nil {
		return fmt.Errorf("failed to read management state: %w", err)
	}
	if state != managed.Unclassified {
		rc.Splog.Debug("Branch '%s' is already classified as %s", branch, state)
		return nil
	}

	isNew, err := git.IsNewlyCreatedBranch(ctx, branch)
	if err != nil {
		return fmt.Errorf("failed to check whether branch is new: %w", err)
	}
	if !isNew {
		rc.Splog.Debug("Branch '%s' is not newly created", branch)
		return nil
	}

	cfg, err := managed.ReadBranchConfig(ctx, rc.Store, branch)
	if err != nil {
		return err
	}
	hasUpstream := cfg.Remote != "" && cfg.Merge != ""
	tracksTrunk := strings.TrimPrefix(cfg.Merge, "refs/heads/") == rc.Trunk

	name := output.ColorEmphasis(branch)
	if hasUpstream && !tracksTrunk {
		// Tracking somebody else's branch means collaborating on it,
		// not stacking on top of it
		rc.Splog.Info("Detected %s as a shared branch.", name)
		if _, err := managed.SetState(ctx, rc.Store, branch, managed.Unmanaged, rc.Remote, true); err != nil {
			return err
		}
		rc.Splog.Info("To have stackline manage this branch, run: stackline manage")
		return nil
	}

	rc.Splog.Info("Detected %s as a new branch.", name)
	if _, err := managed.SetState(ctx, rc.Store, branch, managed.ManagedPrivate, rc.Remote, true); err != nil {
		return err
	}
	rc.Splog.Info("To opt out, run: stackline unmanage")
	return nil
}
