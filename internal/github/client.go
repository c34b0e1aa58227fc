// Package github provides a client for interacting with the GitHub API.
package github

import (
	"context"
)

// PullRequestInfo contains information about a pull request
// This is a simplified struct to avoid coupling to go-github library
type PullRequestInfo struct {
	Number  int
	HTMLURL string
	Title   string
	Body    string
	State   string // "open" or "closed"
	Merged  bool
	Draft   bool
	Base    string
	Head    string
}

// IsOpen reports whether the pull request is still open
func (p *PullRequestInfo) IsOpen() bool {
	return p.State == "open"
}

// CreatePROptions contains options for creating a pull request
type CreatePROptions struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// UpdatePROptions contains options for updating a pull request.
// Nil fields are left untouched on the remote side.
type UpdatePROptions struct {
	Title *string
	Body  *string
	Base  *string
}

// IsEmpty reports whether the update carries no field changes
func (o UpdatePROptions) IsEmpty() bool {
	return o.Title == nil && o.Body == nil && o.Base == nil
}

// Client is an interface for GitHub API interactions
type Client interface {
	// CreatePullRequest creates a new pull request
	CreatePullRequest(ctx context.Context, opts CreatePROptions) (*PullRequestInfo, error)

	// UpdatePullRequest updates fields of an existing pull request
	UpdatePullRequest(ctx context.Context, number int, opts UpdatePROptions) (*PullRequestInfo, error)

	// ListPullRequests returns every pull request of the repository,
	// open and closed, across all pages
	ListPullRequests(ctx context.Context) ([]*PullRequestInfo, error)

	// GetOwnerRepo returns the repository owner and name
	GetOwnerRepo() (owner, repo string)
}
