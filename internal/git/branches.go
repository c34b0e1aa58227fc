package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// BranchExists reports whether a local branch exists
func BranchExists(name string) bool {
	repo, err := GetDefaultRepo()
	if err != nil {
		return false
	}
	goGitMu.Lock()
	defer goGitMu.Unlock()
	_, err = repo.Reference(plumbing.NewBranchReferenceName(referenceName(name)), true)
	return err == nil
}

// GetAllBranchNames returns all local branch names
func GetAllBranchNames() ([]string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return nil, err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	branches, err := repo.Branches()
	if err != nil {
		return nil, err
	}

	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// RemoteHeadBranch returns the branch the remote's HEAD points at, or an
// empty string when the remote HEAD is unknown locally.
func RemoteHeadBranch(ctx context.Context, remote string) string {
	out, err := RunGitCommandWithContext(ctx, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(out, remote+"/")
}

// HasUpstream reports whether a branch has an upstream configured
// (branch.<name>.remote and branch.<name>.merge both set).
func HasUpstream(ctx context.Context, branch string) (bool, error) {
	remote, err := ConfigGet(ctx, "branch."+branch+".remote")
	if err != nil {
		return false, err
	}
	merge, err := ConfigGet(ctx, "branch."+branch+".merge")
	if err != nil {
		return false, err
	}
	return remote != "" && merge != "", nil
}

// IsNewlyCreatedBranch reports whether a branch was just created, as opposed
// to checked out after existing for a while. A fresh branch has a single
// reflog entry recording its creation.
func IsNewlyCreatedBranch(ctx context.Context, branch string) (bool, error) {
	lines, err := RunGitCommandLinesWithContext(ctx, "reflog", "show", "--format=%gs", branch)
	if err != nil {
		// No reflog means we cannot prove the branch is new
		return false, nil //nolint:nilerr
	}
	if len(lines) != 1 {
		return false, nil
	}
	return strings.HasPrefix(lines[0], "branch: Created from"), nil
}

// RebaseHeadBranch returns the branch an in-flight rebase was started from,
// or an empty string when no rebase is in progress. During a rebase HEAD is
// detached, so this is the only way to know which branch is being rewritten.
func RebaseHeadBranch(repoRoot string) string {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(repoRoot, ".git", dir, "head-name"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(data))
		return strings.TrimPrefix(name, "refs/heads/")
	}
	return ""
}

// referenceName normalizes a branch name for go-git reference lookups
func referenceName(name string) string {
	return strings.TrimPrefix(name, "refs/heads/")
}
