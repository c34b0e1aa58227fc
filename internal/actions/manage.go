package actions

import (
	"context"
	"errors"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/runtime"
)

// ManageOptions configure a management transition
type ManageOptions struct {
	// Public marks the branch as a public stack: sync also pushes the
	// branch under its own name.
	Public bool

	// Force applies the transition even when the branch config has been
	// edited by hand since the state was recorded.
	Force bool
}

// ManageAction marks the current branch as a managed stack, so every push
// runs the sync pipeline instead of publishing the branch directly.
func ManageAction(ctx context.Context, rc *runtime.Context, opts ManageOptions) error {
	target := managed.ManagedPrivate
	if opts.Public {
		target = managed.ManagedPublic
	}
	return transition(ctx, rc, target, opts.Force)
}

// UnmanageAction opts the current branch out of stack management. Pushes
// pass through to the remote untouched afterwards.
func UnmanageAction(ctx context.Context, rc *runtime.Context, force bool) error {
	return transition(ctx, rc, managed.Unmanaged, force)
}

// transition resolves the current branch and applies the target state. It
// works on unborn branches too: managing right after init is the documented
// way to start a fresh repository.
func transition(ctx context.Context, rc *runtime.Context, target managed.State, force bool) error {
	branch, err := git.GetCurrentBranchAllowUnborn()
	if err != nil {
		if errors.Is(err, stacklineerrors.ErrNotOnBranch) {
			return stacklineerrors.NewValidationError(
				"cannot set management state for a detached HEAD",
				"Check out a branch first.",
			)
		}
		return err
	}
	return applyState(ctx, rc, branch, target, force)
}

// applyState runs the drift-checked state write and narrates the outcome.
// Drift without force changes nothing; the mismatched keys are listed so the
// user can decide whether their manual config should win.
func applyState(ctx context.Context, rc *runtime.Context, branch string, target managed.State, force bool) error {
	splog := rc.Splog

	drifts, err := managed.SetState(ctx, rc.Store, branch, target, rc.Remote, force)
	if err != nil {
		return err
	}

	if len(drifts) > 0 {
		oldState, err := managed.GetState(ctx, rc.Store, branch)
		if err != nil {
			return err
		}

		splog.Warn("Configuration drift detected for branch %s.", output.ColorEmphasis(branch))
		splog.Warn("The current git configuration does not match what a %s branch carries.", oldState)
		for _, d := range drifts {
			splog.Warn("  - %s: current='%s', expected='%s'", d.Key, orUnset(d.Current), orUnset(d.Expected))
		}
		splog.Warn("Use --force to overwrite manual changes.")
		return nil
	}

	name := output.ColorEmphasis(branch)
	switch target {
	case managed.Unmanaged:
		splog.Info("Branch %s is now unmanaged. Pushes pass through untouched.", name)
	case managed.ManagedPublic:
		splog.Info("Branch %s is now managed as a public stack.", name)
		splog.Info("  - The branch itself is pushed to '%s' alongside the stack.", rc.Remote)
	default:
		splog.Info("Branch %s is now managed as a private stack.", name)
		splog.Info("  - Pushes go to the local loopback remote (.); only the stack is published.")
	}

	return nil
}

func orUnset(v string) string {
	if v == "" {
		return "<unset>"
	}
	return v
}
