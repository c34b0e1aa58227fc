// Package stack implements the commit stack model: extraction from the
// repository, version allocation against remote history, and planning of the
// atomic ref batch that publishes it.
package stack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"stackline.dev/stackline/internal/changeid"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
)

// trailerPattern matches change id trailer lines anywhere in a commit
// message. Extraction scans the raw message instead of shelling out to
// git interpret-trailers once per commit.
var trailerPattern = regexp.MustCompile(`(?m)^` + changeid.TrailerKey + `: (.*)$`)

// autosquashPrefixes are the subject markers git rebase --autosquash folds
// away. Commits carrying them are transient and must never be published.
var autosquashPrefixes = []string{"fixup! ", "squash! ", "amend! "}

// Commit is one stack entry, derived fresh on every run
type Commit struct {
	SHA      string
	ID       changeid.ID
	Message  string
	Position int
}

// Subject returns the first line of the commit message
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

// Body returns the commit message below the subject line, with the change id
// trailer stripped. This is the text a pull request description starts from.
func (c *Commit) Body() string {
	_, body, found := strings.Cut(c.Message, "\n")
	if !found {
		return ""
	}
	body = git.StripTrailer(body, changeid.TrailerKey)
	return strings.TrimSpace(body)
}

// ShortSHA returns an abbreviated SHA for messages
func (c *Commit) ShortSHA() string {
	if len(c.SHA) < 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// Stack is an ordered sequence of commits from bottom (adjacent to the
// upstream) to top (the current head). An empty stack is valid and means
// there is nothing to sync.
type Stack []*Commit

// IDs returns the change ids in stack order
func (s Stack) IDs() []changeid.ID {
	ids := make([]changeid.ID, len(s))
	for i, c := range s {
		ids[i] = c.ID
	}
	return ids
}

// IsEmpty reports whether the stack has no commits
func (s Stack) IsEmpty() bool {
	return len(s) == 0
}

// Extract walks upstream..head oldest first and builds the stack. Every
// commit must carry exactly one well-formed change id trailer and ids must
// be unique within the stack; any violation aborts before anything is
// published.
func Extract(ctx context.Context, upstream, head string) (Stack, error) {
	mergeBase, err := git.GetMergeBaseByRef(upstream, head)
	if err != nil {
		return nil, fmt.Errorf("failed to find merge base of %s and %s: %w", upstream, head, err)
	}

	commits, err := git.CommitsInRange(mergeBase, head)
	if err != nil {
		return nil, err
	}

	if err := checkAutosquash(commits); err != nil {
		return nil, err
	}

	stack := make(Stack, 0, len(commits))
	seen := make(map[changeid.ID]string, len(commits))

	for i, info := range commits {
		id, err := parseCommitID(info)
		if err != nil {
			return nil, err
		}

		if prior, ok := seen[id]; ok {
			return nil, stacklineerrors.NewValidationError(
				fmt.Sprintf("change id %s appears on multiple commits (%s and %s)", id, prior[:8], info.SHA[:8]),
				"Each commit needs its own id. Amend the duplicated commits so the hook assigns fresh ones.",
			)
		}
		seen[id] = info.SHA

		stack = append(stack, &Commit{
			SHA:      info.SHA,
			ID:       id,
			Message:  info.Message,
			Position: i,
		})
	}

	return stack, nil
}

// checkAutosquash rejects stacks that still contain fixup/squash/amend
// commits. Publishing them would create pull requests for commits that are
// about to be folded away.
func checkAutosquash(commits []git.CommitInfo) error {
	var pending []string
	for _, info := range commits {
		subject := info.Subject()
		for _, prefix := range autosquashPrefixes {
			if strings.HasPrefix(subject, prefix) {
				pending = append(pending, fmt.Sprintf("%s %s", info.SHA[:8], subject))
				break
			}
		}
	}

	if len(pending) == 0 {
		return nil
	}

	return stacklineerrors.NewValidationError(
		fmt.Sprintf("the stack contains %d autosquash commit(s):\n  %s", len(pending), strings.Join(pending, "\n  ")),
		"Run 'git rebase -i --autosquash' to fold them before pushing.",
	)
}

// parseCommitID extracts and validates the single change id trailer of a
// commit.
func parseCommitID(info git.CommitInfo) (changeid.ID, error) {
	matches := trailerPattern.FindAllStringSubmatch(info.Message, -1)

	switch len(matches) {
	case 0:
		return "", stacklineerrors.NewValidationError(
			fmt.Sprintf("commit %s (%s) is missing the %s trailer", info.SHA[:8], info.Subject(), changeid.TrailerKey),
			"Install the commit-msg hook with 'stackline install', then amend the commit to pick up an id.",
		)
	case 1:
		value := strings.TrimSpace(matches[0][1])
		id, err := changeid.Parse(value)
		if err != nil {
			return "", stacklineerrors.NewValidationError(
				fmt.Sprintf("commit %s has a malformed %s trailer: %q", info.SHA[:8], changeid.TrailerKey, value),
				"Remove the bad trailer and amend the commit so the hook assigns a fresh id.",
			)
		}
		return id, nil
	default:
		return "", stacklineerrors.NewValidationError(
			fmt.Sprintf("commit %s has %d %s trailers; exactly one is required", info.SHA[:8], len(matches), changeid.TrailerKey),
			"Remove the extra trailers and amend the commit.",
		)
	}
}
