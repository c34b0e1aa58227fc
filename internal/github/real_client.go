package github

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	stacklineerrors "stackline.dev/stackline/internal/errors"
	"stackline.dev/stackline/internal/git"
)

// prListPageSize is the page size used when enumerating pull requests
const prListPageSize = 100

// RealClient talks to the GitHub REST API through go-github
type RealClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates an authenticated GitHub client for the repository behind
// the given remote. The token comes from GITHUB_TOKEN or, failing that, from
// the gh CLI.
func NewClient(ctx context.Context, remote string) (*RealClient, error) {
	remoteURL, err := git.GetRemoteURL(ctx, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote URL: %w", err)
	}

	repoInfo, err := ParseGitHubRemoteURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote URL %q: %w", remoteURL, err)
	}

	token, err := getGitHubToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	client, err := createGitHubClient(ctx, repoInfo.Hostname, token)
	if err != nil {
		return nil, err
	}

	return &RealClient{
		client: client,
		owner:  repoInfo.Owner,
		repo:   repoInfo.Repo,
	}, nil
}

// CreatePullRequest creates a new pull request
func (c *RealClient) CreatePullRequest(ctx context.Context, opts CreatePROptions) (*PullRequestInfo, error) {
	pr := &github.NewPullRequest{
		Title: github.String(opts.Title),
		Head:  github.String(opts.Head),
		Base:  github.String(opts.Base),
		Draft: github.Bool(opts.Draft),
	}

	if opts.Body != "" {
		pr.Body = github.String(opts.Body)
	}

	createdPR, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, pr)
	if err != nil {
		return nil, stacklineerrors.NewTransportError(fmt.Sprintf("create pull request for %s", opts.Head), err)
	}

	return toPullRequestInfo(createdPR), nil
}

// UpdatePullRequest updates an existing pull request. Only the fields set in
// opts are sent; the others keep their remote values.
func (c *RealClient) UpdatePullRequest(ctx context.Context, number int, opts UpdatePROptions) (*PullRequestInfo, error) {
	update := &github.PullRequest{}

	if opts.Title != nil {
		update.Title = opts.Title
	}
	if opts.Body != nil {
		update.Body = opts.Body
	}
	if opts.Base != nil {
		update.Base = &github.PullRequestBranch{
			Ref: opts.Base,
		}
	}

	updatedPR, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, update)
	if err != nil {
		return nil, stacklineerrors.NewTransportError(fmt.Sprintf("update pull request #%d", number), err)
	}

	return toPullRequestInfo(updatedPR), nil
}

// ListPullRequests returns every pull request of the repository, following
// pagination until the API reports no further pages.
func (c *RealClient) ListPullRequests(ctx context.Context) ([]*PullRequestInfo, error) {
	opts := &github.PullRequestListOptions{
		State: "all",
		ListOptions: github.ListOptions{
			PerPage: prListPageSize,
		},
	}

	var all []*PullRequestInfo
	for {
		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, stacklineerrors.NewTransportError("list pull requests", err)
		}

		for _, pr := range prs {
			all = append(all, toPullRequestInfo(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetOwnerRepo returns the repository owner and name
func (c *RealClient) GetOwnerRepo() (owner, repo string) {
	return c.owner, c.repo
}

// toPullRequestInfo converts a go-github pull request into our simplified
// view. The list endpoint does not populate Merged, so merged state is
// derived from MergedAt.
func toPullRequestInfo(pr *github.PullRequest) *PullRequestInfo {
	if pr == nil {
		return nil
	}

	info := &PullRequestInfo{
		Number:  pr.GetNumber(),
		HTMLURL: pr.GetHTMLURL(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   pr.GetState(),
		Merged:  pr.GetMerged() || pr.MergedAt != nil,
		Draft:   pr.GetDraft(),
	}
	if pr.Base != nil {
		info.Base = pr.Base.GetRef()
	}
	if pr.Head != nil {
		info.Head = pr.Head.GetRef()
	}
	return info
}

// createGitHubClient creates a GitHub client configured for the given hostname
// Supports both github.com and GitHub Enterprise instances
func createGitHubClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	// An explicit API URL wins over anything derived from the remote.
	// Integration tests point this at a local server.
	if override := os.Getenv("STACKLINE_GITHUB_API_URL"); override != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(override, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse STACKLINE_GITHUB_API_URL %q: %w", override, err)
		}
		client.BaseURL = baseURL
		return client, nil
	}

	// Configure for GitHub Enterprise if not github.com
	if hostname != "github.com" {
		// GitHub Enterprise API endpoints
		// REST API: https://hostname/api/v3/
		// Upload API: https://hostname/api/uploads/
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
		}

		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}
	// For github.com, the default URLs are already correct

	return client, nil
}

// getGitHubToken gets GitHub token from environment or gh CLI
func getGitHubToken(ctx context.Context) (string, error) {
	// Try environment variable first
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	// Try gh CLI
	output, err := git.RunGHCommandWithContext(ctx, "auth", "token")
	if err != nil {
		return "", fmt.Errorf("no GITHUB_TOKEN set and gh CLI has no token: %w", err)
	}

	token := strings.TrimSpace(output)
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}

	return token, nil
}
