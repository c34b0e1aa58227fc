package testhelpers

import (
	"time"

	"github.com/google/go-github/v62/github"
)

// SamplePRData holds the fields tests commonly vary when seeding the mock
// GitHub server.
type SamplePRData struct {
	Number int
	Title  string
	Body   string
	Head   string
	Base   string
	State  string
	Merged bool
	Draft  bool
}

// NewSamplePullRequest builds a go-github pull request from sample data.
// Merged PRs get a MergedAt timestamp, which is how the list endpoint
// reports merges.
func NewSamplePullRequest(data SamplePRData) *github.PullRequest {
	state := data.State
	if state == "" {
		state = "open"
	}

	pr := &github.PullRequest{
		Title: github.String(data.Title),
		Body:  github.String(data.Body),
		Head:  &github.PullRequestBranch{Ref: github.String(data.Head)},
		Base:  &github.PullRequestBranch{Ref: github.String(data.Base)},
		State: github.String(state),
		Draft: github.Bool(data.Draft),
	}
	if data.Number != 0 {
		pr.Number = github.Int(data.Number)
	}
	if data.Merged {
		mergedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		pr.MergedAt = &github.Timestamp{Time: mergedAt}
	}
	return pr
}
