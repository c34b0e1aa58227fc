// Package testhelpers provides testing utilities for stackline: a scene
// system wrapping real git repositories, a mock GitHub API server and an
// in-memory client fake, and custom assertions.
package testhelpers

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Must panics if err is not nil, otherwise returns the value. For test setup
// code where errors are not expected and should halt immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectBranches asserts that the repository has exactly the expected local
// branches, order-insensitive.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	branches, err := repo.GetLocalBranches()
	require.NoError(t, err, "failed to list branches")

	sort.Strings(branches)
	sort.Strings(expected)
	require.Equal(t, expected, branches, "branches do not match")
}

// ExpectCommits asserts that the newest commit subjects on the current branch
// match expected, newest first.
func ExpectCommits(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	messages, err := repo.ListCurrentBranchCommitMessages()
	require.NoError(t, err, "failed to list commits")
	require.GreaterOrEqual(t, len(messages), len(expected), "not enough commits")
	require.Equal(t, expected, messages[:len(expected)], "commits do not match")
}

// ExpectRemoteRef asserts that the remote has refName pointing at wantSHA.
func ExpectRemoteRef(t *testing.T, repo *GitRepo, remote, refName, wantSHA string) {
	t.Helper()

	refs, err := repo.RemoteRefs(remote)
	require.NoError(t, err, "failed to list remote refs")
	require.Equal(t, wantSHA, refs[refName], "remote ref %s does not match", refName)
}

// ExpectNoRemoteRef asserts that the remote does not have refName.
func ExpectNoRemoteRef(t *testing.T, repo *GitRepo, remote, refName string) {
	t.Helper()

	refs, err := repo.RemoteRefs(remote)
	require.NoError(t, err, "failed to list remote refs")
	require.NotContains(t, refs, refName)
}
