package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	stacklineerrors "stackline.dev/stackline/internal/errors"
)

// ConfigGet returns the value of a local git config key, or an empty string
// when the key is not set.
func ConfigGet(ctx context.Context, key string) (string, error) {
	value, err := RunGitCommandWithContext(ctx, "config", "--get", key)
	if err != nil {
		if isConfigMissing(err) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// ConfigSet sets a local git config key
func ConfigSet(ctx context.Context, key, value string) error {
	_, err := RunGitCommandWithContext(ctx, "config", key, value)
	return err
}

// ConfigUnset removes a local git config key. Unsetting an absent key is not
// an error.
func ConfigUnset(ctx context.Context, key string) error {
	_, err := RunGitCommandWithContext(ctx, "config", "--unset", key)
	if err != nil && isConfigMissing(err) {
		return nil
	}
	return err
}

// isConfigMissing reports whether err is git config's exit status for an
// absent key (1 for --get, 5 for --unset) rather than a real failure.
func isConfigMissing(err error) bool {
	var cmdErr *stacklineerrors.GitCommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	var exitErr *exec.ExitError
	if !errors.As(cmdErr.Err, &exitErr) {
		return false
	}
	code := exitErr.ExitCode()
	return (code == 1 || code == 5) && cmdErr.Stderr == ""
}

// GetCommitterIdent returns the committer identity string (name, email,
// timestamp) git would record right now.
func GetCommitterIdent(ctx context.Context) (string, error) {
	ident, err := RunGitCommandWithContext(ctx, "var", "GIT_COMMITTER_IDENT")
	if err != nil {
		return "", fmt.Errorf("failed to get committer identity: %w", err)
	}
	return ident, nil
}

// GetRemote returns the default remote name (usually "origin")
func GetRemote() string {
	branch, err := GetCurrentBranch()
	if err == nil {
		remote, err := ConfigGet(context.Background(), "branch."+branch+".pushRemote")
		if err == nil && remote != "" && remote != "." {
			return remote
		}
	}

	remotes, err := RunGitCommandLines("remote")
	if err == nil {
		for _, r := range remotes {
			if r == "origin" {
				return "origin"
			}
		}
		if len(remotes) > 0 {
			return remotes[0]
		}
	}

	return "origin"
}

// GetRemoteURL returns the fetch URL of a remote
func GetRemoteURL(ctx context.Context, remote string) (string, error) {
	url, err := ConfigGet(ctx, "remote."+remote+".url")
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("remote %s has no url", remote)
	}
	return url, nil
}
