package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// CommitInfo describes one commit in a range
type CommitInfo struct {
	SHA     string
	Message string
}

// Subject returns the first line of the commit message
func (c CommitInfo) Subject() string {
	return strings.SplitN(strings.TrimSpace(c.Message), "\n", 2)[0]
}

// CommitsInRange returns the commits base..head following first parents,
// ordered oldest first. An empty range is valid and returns no commits.
func CommitsInRange(base, head string) ([]CommitInfo, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return nil, err
	}

	headHash, err := resolveRefHash(repo, head)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head: %w", err)
	}

	baseHash, err := resolveRefHash(repo, base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base: %w", err)
	}

	if headHash == baseHash {
		return []CommitInfo{}, nil
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	var commits []CommitInfo
	hash := headHash
	for hash != baseHash {
		commit, err := repo.CommitObject(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
		}

		commits = append(commits, CommitInfo{
			SHA:     commit.Hash.String(),
			Message: commit.Message,
		})

		if commit.NumParents() == 0 {
			return nil, fmt.Errorf("%s is not an ancestor of %s", base, head)
		}
		hash = commit.ParentHashes[0]
	}

	// Reverse to oldest-first; stacks are processed bottom up
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}

	return commits, nil
}

// ReadCommitMessage returns the full message of a single commit
func ReadCommitMessage(rev string) (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	hash, err := resolveRefHash(repo, rev)
	if err != nil {
		return "", err
	}

	goGitMu.Lock()
	defer goGitMu.Unlock()

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", rev, err)
	}
	return commit.Message, nil
}

// HeadSHA returns the SHA HEAD points at, or an empty string on an unborn branch
func HeadSHA() (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}
