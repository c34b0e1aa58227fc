package prsync

import (
	"context"
	"fmt"
	"strings"

	"stackline.dev/stackline/internal/changeid"
	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/github"
	"stackline.dev/stackline/internal/output"
	"stackline.dev/stackline/internal/stack"
)

// Index maps phantom head branches to their pull request. When a head has
// several PRs the open one wins, then a merged one, so the reuse and gate
// logic always sees the most relevant record.
type Index map[string]*github.PullRequestInfo

// BuildIndex folds a full PR listing into the per-head index
func BuildIndex(prs []*github.PullRequestInfo) Index {
	idx := make(Index, len(prs))
	for _, pr := range prs {
		existing, ok := idx[pr.Head]
		if !ok || prRank(pr) > prRank(existing) ||
			(prRank(pr) == prRank(existing) && pr.Number > existing.Number) {
			idx[pr.Head] = pr
		}
	}
	return idx
}

func prRank(pr *github.PullRequestInfo) int {
	switch {
	case pr.IsOpen():
		return 2
	case pr.Merged:
		return 1
	default:
		return 0
	}
}

// CheckReusable rejects the run when a stack commit maps to a pull request
// that can no longer take pushes. This runs before any ref is published.
func CheckReusable(idx Index, s stack.Stack) error {
	for _, c := range s {
		pr, ok := idx[c.ID.String()]
		if !ok || pr.IsOpen() {
			continue
		}

		if pr.Merged {
			return stacklineerrors.NewValidationError(
				fmt.Sprintf("Cannot push to merged PR #%d (change %s)", pr.Number, c.ID),
				"The change already landed. Rebase your stack onto the trunk to drop it, or amend the commit so it gets a fresh id.",
			)
		}
		return stacklineerrors.NewValidationError(
			fmt.Sprintf("Cannot push to closed PR #%d (change %s)", pr.Number, c.ID),
			fmt.Sprintf("Reopen PR #%d, or amend the commit so it gets a fresh id.", pr.Number),
		)
	}
	return nil
}

// Options configures one synchronization run
type Options struct {
	// Upstream is the real base branch of the bottom PR, usually the trunk
	Upstream string

	// SourceBranch is the local branch the stack lives on; rendered into
	// bodies only when Private is false
	SourceBranch string

	Private bool
}

// ItemResult records the outcome for one stack commit
type ItemResult struct {
	ID      changeid.ID
	Number  int
	URL     string
	Created bool
	Updated bool
	Err     error
}

// Result is the per-commit outcome of a synchronization run
type Result struct {
	Items []ItemResult
}

// CreatedCount returns how many PRs were created
func (r *Result) CreatedCount() int {
	n := 0
	for _, item := range r.Items {
		if item.Created && item.Err == nil {
			n++
		}
	}
	return n
}

// UpdatedCount returns how many existing PRs had field changes pushed.
// Freshly created PRs count toward CreatedCount only, even though the
// update pass fills in their rendered bodies.
func (r *Result) UpdatedCount() int {
	n := 0
	for _, item := range r.Items {
		if item.Updated && !item.Created && item.Err == nil {
			n++
		}
	}
	return n
}

// Synchronizer drives PR creation and updates for one stack
type Synchronizer struct {
	client   github.Client
	splog    *output.Splog
	progress output.SyncProgressUI
}

// New creates a Synchronizer
func New(client github.Client, splog *output.Splog, progress output.SyncProgressUI) *Synchronizer {
	return &Synchronizer{client: client, splog: splog, progress: progress}
}

// Sync reconciles one PR per stack commit, strictly bottom to top. Existing
// PRs are found through the index; missing ones are created first so every
// body can reference the full sibling list. Updates send only fields that
// differ from the listed remote state, so a no-change rerun is silent on the
// host. A failing PR does not stop the others; failures are aggregated into
// a PartialSyncError.
func (s *Synchronizer) Sync(ctx context.Context, idx Index, allocs []stack.Allocation, opts Options) (*Result, error) {
	result := &Result{Items: make([]ItemResult, len(allocs))}
	if len(allocs) == 0 {
		return result, nil
	}

	items := make([]output.SyncItem, len(allocs))
	for i, alloc := range allocs {
		action := "update"
		if _, ok := idx[alloc.Commit.ID.String()]; !ok {
			action = "create"
		}
		items[i] = output.SyncItem{
			ChangeID: alloc.Commit.ID.String(),
			Title:    alloc.Commit.Subject(),
			Action:   action,
			Status:   "pending",
		}
	}
	s.progress.Start(items)

	// Pass 1: make sure every commit has a PR. Bases chain bottom to top;
	// every phantom branch was already published by the atomic push.
	for i, alloc := range allocs {
		c := alloc.Commit
		result.Items[i].ID = c.ID

		if pr, ok := idx[c.ID.String()]; ok {
			s.splog.Debug("Found existing PR #%d for %s", pr.Number, c.ID)
			result.Items[i].Number = pr.Number
			result.Items[i].URL = pr.HTMLURL
			continue
		}

		s.progress.UpdateItem(i, "syncing", "", nil)
		s.splog.Debug("No PR exists for %s; creating one", c.ID)

		created, err := s.client.CreatePullRequest(ctx, github.CreatePROptions{
			Title: c.Subject(),
			Body:  c.Body(),
			Head:  c.ID.String(),
			Base:  s.baseFor(i, allocs, opts),
		})
		if err != nil {
			result.Items[i].Err = err
			s.progress.UpdateItem(i, "error", "", err)
			continue
		}

		result.Items[i].Created = true
		result.Items[i].Number = created.Number
		result.Items[i].URL = created.HTMLURL
		idx[c.ID.String()] = created
	}

	// Pass 2: bring base, title and body of every PR up to date
	repoURL := deriveRepoURL(result.Items)
	numbers := make([]int, len(allocs))
	for i := range result.Items {
		numbers[i] = result.Items[i].Number
	}

	for i, alloc := range allocs {
		c := alloc.Commit
		if result.Items[i].Err != nil {
			continue
		}

		pr := idx[c.ID.String()]
		base := s.baseFor(i, allocs, opts)

		meta := MetaBlock{ID: c.ID}
		if i > 0 {
			meta.Parent = allocs[i-1].Commit.ID
		}
		if i < len(allocs)-1 {
			meta.Child = allocs[i+1].Commit.ID
		}

		sourceBranch := ""
		if !opts.Private {
			sourceBranch = opts.SourceBranch
		}

		body := RenderBody(BodyInput{
			Commit:       c,
			Version:      alloc.Version,
			BaseBranch:   base,
			RepoURL:      repoURL,
			SourceBranch: sourceBranch,
			Navigation:   renderNavigation(numbers, i),
			Meta:         meta,
		})

		update := github.UpdatePROptions{}
		if pr.Title != c.Subject() {
			title := c.Subject()
			update.Title = &title
		}
		if pr.Body != body {
			update.Body = &body
		}
		// Only touch the base when it moved; some hosts reject base
		// edits on queued PRs
		if pr.Base != base {
			update.Base = &base
		}

		if update.IsEmpty() {
			s.splog.Debug("PR #%d for %s is up to date", pr.Number, c.ID)
			s.progress.UpdateItem(i, "skipped", pr.HTMLURL, nil)
			continue
		}

		s.progress.UpdateItem(i, "syncing", "", nil)
		updated, err := s.client.UpdatePullRequest(ctx, pr.Number, update)
		if err != nil {
			result.Items[i].Err = err
			s.progress.UpdateItem(i, "error", "", err)
			continue
		}

		result.Items[i].Updated = true
		idx[c.ID.String()] = updated
		s.progress.UpdateItem(i, "done", updated.HTMLURL, nil)
	}

	var succeeded, failed []string
	var causes []error
	for _, item := range result.Items {
		if item.Err != nil {
			failed = append(failed, item.ID.String())
			causes = append(causes, item.Err)
		} else {
			succeeded = append(succeeded, item.ID.String())
		}
	}
	if len(failed) > 0 {
		return result, stacklineerrors.NewPartialSyncError(succeeded, failed, causes)
	}

	return result, nil
}

// baseFor returns the desired base branch of PR i: the previous commit's
// phantom branch, or the upstream for the bottom of the stack.
func (s *Synchronizer) baseFor(i int, allocs []stack.Allocation, opts Options) string {
	if i == 0 {
		return opts.Upstream
	}
	return allocs[i-1].Commit.ID.String()
}

// deriveRepoURL recovers the repository web URL from any known PR URL
func deriveRepoURL(items []ItemResult) string {
	for _, item := range items {
		if item.URL != "" {
			if base, _, found := strings.Cut(item.URL, "/pull/"); found {
				return base
			}
		}
	}
	return ""
}
