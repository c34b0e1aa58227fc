package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	githubpkg "stackline.dev/stackline/internal/github"
)

// FakeGitHub is an in-memory githubpkg.Client for tests that need precise
// control over pull request state and failure injection without going
// through HTTP.
type FakeGitHub struct {
	// CreateErr, when set, is consulted before every create; a non-nil
	// return fails that create.
	CreateErr func(opts githubpkg.CreatePROptions) error
	// UpdateErr, when set, is consulted before every update.
	UpdateErr func(number int) error

	mu         sync.Mutex
	owner      string
	repo       string
	nextNumber int
	prs        map[int]*githubpkg.PullRequestInfo
	creates    []githubpkg.CreatePROptions
	updates    map[int][]githubpkg.UpdatePROptions
}

// NewFakeGitHub creates an empty fake for owner/repo "octocat/widgets".
func NewFakeGitHub() *FakeGitHub {
	return &FakeGitHub{
		owner:      "octocat",
		repo:       "widgets",
		nextNumber: 1,
		prs:        make(map[int]*githubpkg.PullRequestInfo),
		updates:    make(map[int][]githubpkg.UpdatePROptions),
	}
}

// Seed preloads a pull request as pre-existing state. A zero number is
// assigned the next free one; an empty state defaults to open.
func (f *FakeGitHub) Seed(pr githubpkg.PullRequestInfo) *githubpkg.PullRequestInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pr.Number == 0 {
		pr.Number = f.nextNumber
	}
	if pr.Number >= f.nextNumber {
		f.nextNumber = pr.Number + 1
	}
	if pr.State == "" {
		pr.State = "open"
	}
	if pr.HTMLURL == "" {
		pr.HTMLURL = f.prURL(pr.Number)
	}

	stored := pr
	f.prs[pr.Number] = &stored
	return &stored
}

// GetOwnerRepo returns the repository owner and name.
func (f *FakeGitHub) GetOwnerRepo() (string, string) {
	return f.owner, f.repo
}

// CreatePullRequest records the create and stores a new open PR.
func (f *FakeGitHub) CreatePullRequest(_ context.Context, opts githubpkg.CreatePROptions) (*githubpkg.PullRequestInfo, error) {
	if f.CreateErr != nil {
		if err := f.CreateErr(opts); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	number := f.nextNumber
	f.nextNumber++

	pr := &githubpkg.PullRequestInfo{
		Number:  number,
		HTMLURL: f.prURL(number),
		Title:   opts.Title,
		Body:    opts.Body,
		State:   "open",
		Draft:   opts.Draft,
		Base:    opts.Base,
		Head:    opts.Head,
	}
	f.prs[number] = pr
	f.creates = append(f.creates, opts)

	copied := *pr
	return &copied, nil
}

// UpdatePullRequest applies the non-nil fields to the stored PR.
func (f *FakeGitHub) UpdatePullRequest(_ context.Context, number int, opts githubpkg.UpdatePROptions) (*githubpkg.PullRequestInfo, error) {
	if f.UpdateErr != nil {
		if err := f.UpdateErr(number); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.prs[number]
	if !ok {
		return nil, fmt.Errorf("no pull request #%d", number)
	}

	if opts.Title != nil {
		pr.Title = *opts.Title
	}
	if opts.Body != nil {
		pr.Body = *opts.Body
	}
	if opts.Base != nil {
		pr.Base = *opts.Base
	}
	f.updates[number] = append(f.updates[number], opts)

	copied := *pr
	return &copied, nil
}

// ListPullRequests returns copies of every PR, ordered by number.
func (f *FakeGitHub) ListPullRequests(_ context.Context) ([]*githubpkg.PullRequestInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	numbers := make([]int, 0, len(f.prs))
	for n := range f.prs {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	out := make([]*githubpkg.PullRequestInfo, 0, len(numbers))
	for _, n := range numbers {
		copied := *f.prs[n]
		out = append(out, &copied)
	}
	return out, nil
}

// PR returns a copy of the stored PR, or nil.
func (f *FakeGitHub) PR(number int) *githubpkg.PullRequestInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	pr, ok := f.prs[number]
	if !ok {
		return nil
	}
	copied := *pr
	return &copied
}

// PRByHead returns a copy of the PR whose head branch matches, or nil.
func (f *FakeGitHub) PRByHead(head string) *githubpkg.PullRequestInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, pr := range f.prs {
		if pr.Head == head {
			copied := *pr
			return &copied
		}
	}
	return nil
}

// Creates returns the recorded create calls in order.
func (f *FakeGitHub) Creates() []githubpkg.CreatePROptions {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]githubpkg.CreatePROptions, len(f.creates))
	copy(out, f.creates)
	return out
}

// Updates returns the recorded update calls for one PR in order.
func (f *FakeGitHub) Updates(number int) []githubpkg.UpdatePROptions {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]githubpkg.UpdatePROptions, len(f.updates[number]))
	copy(out, f.updates[number])
	return out
}

func (f *FakeGitHub) prURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", f.owner, f.repo, number)
}
