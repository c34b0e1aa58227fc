// Package runtime provides the per-invocation context handed to commands
// and hooks: logger, repository location, resolved configuration and the
// lazily-built GitHub client. This avoids passing multiple parameters.
package runtime

import (
	"context"
	"fmt"
	"path/filepath"

	"stackline.dev/stackline/internal/config"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/github"
	"stackline.dev/stackline/internal/managed"
	"stackline.dev/stackline/internal/output"
)

// HookLogFile is where hook invocations append their logs, relative to the
// .git directory. Hooks run behind git's back, so a file is often the only
// place their output survives.
const HookLogFile = "stackline/stackline.log"

// Context provides access to the logger, repository state and collaborators
// for commands
type Context struct {
	Splog    *output.Splog
	RepoRoot string
	Trunk    string
	Remote   string
	Store    managed.Store

	// GitHub is populated lazily by EnsureGitHub, or injected by tests
	GitHub github.Client
}

// GetContext builds the context for a user-invoked command. The repository
// must be initialized with 'stackline init' first.
func GetContext() (*Context, error) {
	rc, err := newContext(output.NewSplog())
	if err != nil {
		return nil, err
	}

	if !config.IsInitialized(rc.RepoRoot) {
		return nil, fmt.Errorf("stackline not initialized. Run 'stackline init' first")
	}

	return rc, nil
}

// GetHookContext builds the context for a hook invocation. Hooks tolerate an
// uninitialized repository (defaults apply) and log to a file as well as
// stderr.
func GetHookContext() (*Context, error) {
	if err := git.InitDefaultRepo(); err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	repoRoot, err := git.GetRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to get repo root: %w", err)
	}

	splog, err := output.NewSplogWithLogFile(filepath.Join(repoRoot, ".git", HookLogFile))
	if err != nil {
		// Fall back to console-only logging rather than breaking the hook
		splog = output.NewSplog()
	}

	return buildContext(splog, repoRoot)
}

func newContext(splog *output.Splog) (*Context, error) {
	if err := git.InitDefaultRepo(); err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	repoRoot, err := git.GetRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to get repo root: %w", err)
	}

	return buildContext(splog, repoRoot)
}

func buildContext(splog *output.Splog, repoRoot string) (*Context, error) {
	trunk, err := config.GetTrunk(repoRoot)
	if err != nil {
		return nil, err
	}
	remote, err := config.GetRemote(repoRoot)
	if err != nil {
		return nil, err
	}

	return &Context{
		Splog:    splog,
		RepoRoot: repoRoot,
		Trunk:    trunk,
		Remote:   remote,
		Store:    managed.GitConfigStore{},
	}, nil
}

// EnsureGitHub returns the GitHub client, creating one on first use
func (c *Context) EnsureGitHub(ctx context.Context) (github.Client, error) {
	if c.GitHub != nil {
		return c.GitHub, nil
	}

	client, err := github.NewClient(ctx, c.Remote)
	if err != nil {
		return nil, err
	}
	c.GitHub = client
	return client, nil
}

// Close flushes and closes the logger
func (c *Context) Close() {
	if c.Splog != nil {
		c.Splog.Close()
	}
}
