package git

import (
	"context"
	"strings"
)

// LsRemote queries the remote for refs matching the given patterns and
// returns a refname -> SHA map. Patterns follow git's ls-remote matching
// rules (full ref paths, trailing globs allowed). No patterns means all refs.
func LsRemote(ctx context.Context, remote string, patterns ...string) (map[string]string, error) {
	args := append([]string{"ls-remote", remote}, patterns...)
	lines, err := RunGitCommandLinesWithContext(ctx, args...)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]string, len(lines))
	for _, line := range lines {
		sha, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		refs[name] = sha
	}
	return refs, nil
}
