package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stacklineerrors "stackline.dev/stackline/internal/errors"
)

// RefUpdate is one compare-and-swap ref write: push NewValue to Name provided
// the remote still holds OldValue. An empty OldValue means the ref must not
// exist yet (create-only). Name is a full refname.
type RefUpdate struct {
	Name     string
	OldValue string
	NewValue string
}

// PushAtomic applies a batch of ref updates as a single all-or-nothing push.
// Every update carries its own lease; if any one ref moved since its lease
// was read, git rejects the whole batch and the remote is untouched.
func PushAtomic(ctx context.Context, remote string, updates []RefUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	args := []string{"push", "--quiet", "--no-verify", "--atomic"}
	for _, u := range updates {
		args = append(args, fmt.Sprintf("--force-with-lease=%s:%s", u.Name, u.OldValue))
	}
	args = append(args, remote)
	for _, u := range updates {
		args = append(args, fmt.Sprintf("%s:%s", u.NewValue, u.Name))
	}

	_, err := RunGitCommandWithContext(ctx, args...)
	if err == nil {
		return nil
	}

	var cmdErr *stacklineerrors.GitCommandError
	if errors.As(err, &cmdErr) {
		combined := cmdErr.Stdout + "\n" + cmdErr.Stderr
		if strings.Contains(combined, "stale info") ||
			strings.Contains(combined, "[rejected]") ||
			strings.Contains(combined, "[remote rejected]") {
			return stacklineerrors.NewConflictError(remote, FilterRemoteBanner(cmdErr.Stderr))
		}
		return stacklineerrors.NewTransportError("push to "+remote, err)
	}
	return stacklineerrors.NewTransportError("push to "+remote, err)
}

// FilterRemoteBanner strips the host's "Create a pull request" banner from
// push stderr. Phantom branches get their pull requests from the sync step,
// so the banner is pure noise; everything else passes through untouched.
func FilterRemoteBanner(stderr string) string {
	lines := strings.Split(stderr, "\n")
	var kept []string
	skipURL := false
	for _, line := range lines {
		content := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "remote:"))
		switch {
		case strings.Contains(line, "Create a pull request"):
			skipURL = true
			continue
		case skipURL && strings.Contains(content, "://"):
			skipURL = false
			continue
		case strings.TrimSpace(line) == "remote:":
			continue
		}
		skipURL = false
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
