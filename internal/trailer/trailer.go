// Package trailer implements the commit-msg hook: it assigns every commit on
// a managed branch its change id, written as a commit-message trailer. The id
// is derived once and survives amends and rebases because insertion is
// skipped whenever a trailer is already present.
package trailer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"stackline.dev/stackline/internal/changeid"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/managed"
)

// skipSubjectPrefixes mark commits that git rebase --autosquash will fold
// away; they never need an identity of their own.
var skipSubjectPrefixes = []string{"squash! ", "fixup! ", "amend! "}

// Outcome reports what Inject did to the message file
type Outcome struct {
	// Injected is true when a new trailer was written
	Injected bool

	// ID is the trailer value, set when a trailer was injected or was
	// already present
	ID changeid.ID

	// SkipReason is set when the file was deliberately left alone
	SkipReason string
}

// Inject ensures the commit message at msgPath carries exactly one change id
// trailer. It is a no-op on detached HEAD, on branches stackline does not
// manage, and on autosquash commits. A missing message file is an error; git
// always provides one.
func Inject(ctx context.Context, store managed.Store, repoRoot, msgPath string) (Outcome, error) {
	if _, err := os.Stat(msgPath); err != nil {
		return Outcome{}, fmt.Errorf("commit message file does not exist: %s", msgPath)
	}

	branch := activeBranch(repoRoot)
	if branch == "" {
		return Outcome{SkipReason: "detached HEAD"}, nil
	}

	state, err := managed.GetState(ctx, store, branch)
	if err != nil {
		return Outcome{}, err
	}
	if !state.IsManaged() {
		return Outcome{SkipReason: fmt.Sprintf("branch %s is %s", branch, state)}, nil
	}

	message, err := os.ReadFile(msgPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read commit message: %w", err)
	}

	subject, _, _ := strings.Cut(string(message), "\n")
	for _, prefix := range skipSubjectPrefixes {
		if strings.HasPrefix(subject, prefix) {
			return Outcome{SkipReason: "autosquash commit"}, nil
		}
	}

	existing, err := git.ParseTrailers(ctx, string(message), changeid.TrailerKey)
	if err != nil {
		return Outcome{}, err
	}
	if len(existing) > 0 {
		return Outcome{ID: changeid.ID(existing[0]), SkipReason: "trailer already present"}, nil
	}

	id, err := deriveID(ctx, message)
	if err != nil {
		return Outcome{}, err
	}

	if err := git.AddTrailerToFile(ctx, msgPath, changeid.TrailerKey, id.String()); err != nil {
		return Outcome{}, fmt.Errorf("failed to insert trailer: %w", err)
	}

	return Outcome{Injected: true, ID: id}, nil
}

// deriveID computes the change id for the commit being created. The inputs
// mirror what git itself would hash for the commit: who is committing, on top
// of what, and the message text.
func deriveID(ctx context.Context, message []byte) (changeid.ID, error) {
	ident, err := git.GetCommitterIdent(ctx)
	if err != nil {
		return "", err
	}

	parent, err := git.HeadSHA()
	if err != nil {
		return "", err
	}
	if parent == "" {
		// Unborn branch: the first commit has no parent to hash
		parent = changeid.EmptyTreeHash
	}

	return changeid.Derive(ident, parent, message), nil
}

// activeBranch names the branch the commit lands on. The branch may be
// unborn (first commit after init), and during a rebase HEAD is detached, so
// the in-flight branch is read from the rebase state instead. An empty
// result means truly detached.
func activeBranch(repoRoot string) string {
	branch, err := git.GetCurrentBranchAllowUnborn()
	if err == nil {
		return branch
	}
	if errors.Is(err, stacklineerrors.ErrNotOnBranch) {
		if rebasing := git.RebaseHeadBranch(repoRoot); rebasing != "" {
			return rebasing
		}
	}
	return ""
}
