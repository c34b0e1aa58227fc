// Package hooks installs the git hook shims that route hook events to the
// stackline binary. The shims are one-line dispatchers so that upgrading
// stackline never requires reinstalling hooks.
package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/output"
)

// RequiredHooks are the hook points stackline intercepts: pushes, commit
// message finalization and branch checkouts.
var RequiredHooks = []string{"pre-push", "commit-msg", "post-checkout"}

// Sentinel marks a hook file as written by the installer. Files without it
// are treated as user-owned and are never overwritten unless forced.
const Sentinel = "# stackline-installer: managed"

const shimTemplate = `#!/bin/sh
` + Sentinel + `
# This hook is managed by stackline.
# Any manual changes to this file may be overwritten by 'stackline install'.

stackline hook %s "$@"
`

// InstallOptions control how Install treats existing hook files.
type InstallOptions struct {
	// Force overwrites hook files that lack the installer sentinel
	Force bool
	// AllowGlobal permits installing into a core.hooksPath that resolves
	// outside the repository
	AllowGlobal bool
}

// Install writes the hook shims into the repository's hooks directory. The
// run is two-phase: every conflict is collected before any file is written,
// so a refusal leaves the hooks directory untouched.
func Install(ctx context.Context, splog *output.Splog, repoRoot string, opts InstallOptions) error {
	hooksDir, err := resolveHooksDir(ctx, splog, repoRoot, opts.AllowGlobal)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create hooks directory %s: %w", hooksDir, err)
	}

	var conflicts []string
	for _, hook := range RequiredHooks {
		hookPath := filepath.Join(hooksDir, hook)
		content, err := os.ReadFile(hookPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read hook file %s: %w", hookPath, err)
		}
		if !strings.Contains(string(content), Sentinel) {
			conflicts = append(conflicts, hookPath)
		}
	}

	if len(conflicts) > 0 && !opts.Force {
		var reason strings.Builder
		reason.WriteString("refusing to overwrite unmanaged hooks:\n")
		for _, path := range conflicts {
			fmt.Fprintf(&reason, "  - %s\n", path)
		}
		return stacklineerrors.NewValidationError(reason.String(), "Use --force to overwrite them.")
	}

	for _, hook := range RequiredHooks {
		hookPath := filepath.Join(hooksDir, hook)
		content := fmt.Sprintf(shimTemplate, hook)

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			return fmt.Errorf("failed to write hook file %s: %w", hookPath, err)
		}
		// WriteFile only applies the mode to files it creates
		if err := os.Chmod(hookPath, 0o755); err != nil {
			return fmt.Errorf("failed to mark hook executable %s: %w", hookPath, err)
		}

		splog.Info("Installed %s", output.ColorSuccess(hook))
	}

	return nil
}

// resolveHooksDir determines where hooks live, honoring core.hooksPath. A
// configured path outside the repository is refused unless allowGlobal is
// set: a cloned repo's config must not be able to plant executables in
// shared locations.
func resolveHooksDir(ctx context.Context, splog *output.Splog, repoRoot string, allowGlobal bool) (string, error) {
	configured, err := git.ConfigGet(ctx, "core.hooksPath")
	if err != nil {
		return "", err
	}
	if configured == "" {
		return filepath.Join(repoRoot, ".git", "hooks"), nil
	}

	hooksDir := configured
	if !filepath.IsAbs(hooksDir) {
		hooksDir = filepath.Join(repoRoot, hooksDir)
	}
	hooksDir = canonicalize(hooksDir)

	if !isWithin(canonicalize(repoRoot), hooksDir) {
		if !allowGlobal {
			reason := fmt.Sprintf("refusing to install to external/global hooks path: %s", hooksDir)
			return "", stacklineerrors.NewValidationError(reason, "Use --allow-global to override.")
		}
		splog.Warn("Installing to external/global hooks path (allowed by --allow-global): %s", hooksDir)
	}

	return hooksDir, nil
}

// canonicalize resolves symlinks when the path exists, falling back to the
// cleaned absolute path when it does not.
func canonicalize(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
