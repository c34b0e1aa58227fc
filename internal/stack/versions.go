package stack

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"stackline.dev/stackline/internal/changeid"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
)

// TagNamespace is the ref prefix under which version tags live
const TagNamespace = "refs/tags/stackline"

// maxSpecificPatterns caps the per-id patterns passed to ls-remote. Each
// pattern is ~70 characters and some platforms limit command lines to ~32k,
// so beyond the cap one wildcard query is cheaper than risking the shell.
const maxSpecificPatterns = 50

// tagRefPattern parses "refs/tags/stackline/<id>/v<N>"
var tagRefPattern = regexp.MustCompile(`^refs/tags/stackline/([^/]+)/v(\d+)$`)

// PhantomBranchRef returns the remote branch ref publishing a change
func PhantomBranchRef(id changeid.ID) string {
	return "refs/heads/" + id.String()
}

// VersionTagRef returns the immutable tag ref for one published version
func VersionTagRef(id changeid.ID, version int) string {
	return fmt.Sprintf("%s/%s/v%d", TagNamespace, id, version)
}

// VersionEntry is one observed published version of a change
type VersionEntry struct {
	Version int
	SHA     string
}

// History is the append-only version log observed for one change id,
// ordered by ascending version. It is a snapshot of remote state; version
// allocation is a pure function of it.
type History struct {
	Entries []VersionEntry
}

// Latest returns the highest published version, if any
func (h *History) Latest() (VersionEntry, bool) {
	if h == nil || len(h.Entries) == 0 {
		return VersionEntry{}, false
	}
	return h.Entries[len(h.Entries)-1], true
}

// NextVersion returns the version the next publish would create
func (h *History) NextVersion() int {
	latest, ok := h.Latest()
	if !ok {
		return 1
	}
	return latest.Version + 1
}

// RemoteState is one coherent read of the remote's phantom namespace: the
// version history per change id plus the current phantom branch heads, which
// become the leases the atomic push is conditioned on.
type RemoteState struct {
	Histories map[changeid.ID]*History
	Branches  map[changeid.ID]string
}

// FetchRemoteState reads version tags and phantom branch heads for the given
// ids in a single ls-remote round trip.
func FetchRemoteState(ctx context.Context, remote string, ids []changeid.ID) (*RemoteState, error) {
	state := &RemoteState{
		Histories: make(map[changeid.ID]*History),
		Branches:  make(map[changeid.ID]string),
	}
	if len(ids) == 0 {
		return state, nil
	}

	var patterns []string
	if len(ids) > maxSpecificPatterns {
		// Ids share no usable prefix, so past the cap we list everything
		patterns = []string{TagNamespace + "/*", "refs/heads/*"}
	} else {
		for _, id := range ids {
			patterns = append(patterns, fmt.Sprintf("%s/%s/*", TagNamespace, id))
			patterns = append(patterns, PhantomBranchRef(id))
		}
	}

	refs, err := git.LsRemote(ctx, remote, patterns...)
	if err != nil {
		return nil, stacklineerrors.NewTransportError(fmt.Sprintf("list refs on %s", remote), err)
	}

	wanted := make(map[changeid.ID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	for refName, sha := range refs {
		if m := tagRefPattern.FindStringSubmatch(refName); m != nil {
			id := changeid.ID(m[1])
			if !wanted[id] {
				continue
			}
			version, err := strconv.Atoi(m[2])
			if err != nil || version < 1 {
				continue
			}
			hist := state.Histories[id]
			if hist == nil {
				hist = &History{}
				state.Histories[id] = hist
			}
			hist.Entries = append(hist.Entries, VersionEntry{Version: version, SHA: sha})
			continue
		}

		if name, ok := strings.CutPrefix(refName, "refs/heads/"); ok {
			id := changeid.ID(name)
			if wanted[id] {
				state.Branches[id] = sha
			}
		}
	}

	for _, hist := range state.Histories {
		sort.Slice(hist.Entries, func(i, j int) bool {
			return hist.Entries[i].Version < hist.Entries[j].Version
		})
	}

	return state, nil
}

// Allocation is the publish decision for one stack commit
type Allocation struct {
	Commit *Commit

	// Version the content is (or will be) published as. For an unchanged
	// commit this is the existing latest version.
	Version int

	// Unchanged means the latest published version already holds exactly
	// this commit, so no new tag is needed.
	Unchanged bool

	// BranchLease is the phantom branch SHA observed during allocation,
	// empty when the branch does not exist yet. The push is conditioned
	// on it.
	BranchLease string
}

// Allocate decides for every stack commit which version its content would be
// published as and whether publishing is needed at all. It is pure: the only
// inputs are the stack and the observed remote state.
func Allocate(s Stack, state *RemoteState) []Allocation {
	allocs := make([]Allocation, 0, len(s))
	for _, c := range s {
		alloc := Allocation{
			Commit:      c,
			BranchLease: state.Branches[c.ID],
		}

		hist := state.Histories[c.ID]
		if latest, ok := hist.Latest(); ok && latest.SHA == c.SHA {
			alloc.Version = latest.Version
			alloc.Unchanged = true
		} else {
			alloc.Version = hist.NextVersion()
		}

		allocs = append(allocs, alloc)
	}
	return allocs
}
