package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig configures and records the behavior of a mock
// GitHub API server.
type MockGitHubServerConfig struct {
	Owner string
	Repo  string

	// PageSize caps how many pull requests a single list page returns. The
	// server emits Link headers for further pages, so clients exercise
	// their pagination loops for real.
	PageSize int

	mu         sync.Mutex
	prs        []*github.PullRequest
	nextNumber int

	// CreatedPRs records every pull request created through the API, in
	// creation order.
	CreatedPRs []*github.PullRequest
	// UpdatedPRs records the latest PATCHed state per PR number.
	UpdatedPRs map[int]*github.PullRequest
}

// NewMockGitHubServerConfig creates a config with defaults.
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		Owner:      "octocat",
		Repo:       "widgets",
		PageSize:   100,
		nextNumber: 1,
		UpdatedPRs: make(map[int]*github.PullRequest),
	}
}

// SeedPR preloads a pull request as if it existed before the test began. A
// zero number is assigned the next free one; state defaults to open.
func (c *MockGitHubServerConfig) SeedPR(pr *github.PullRequest) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pr.Number == nil || *pr.Number == 0 {
		pr.Number = github.Int(c.nextNumber)
	}
	if pr.GetNumber() >= c.nextNumber {
		c.nextNumber = pr.GetNumber() + 1
	}
	if pr.State == nil {
		pr.State = github.String("open")
	}
	if pr.HTMLURL == nil {
		pr.HTMLURL = github.String(c.prURL(pr.GetNumber()))
	}
	c.prs = append(c.prs, pr)
	return pr
}

// PullRequests returns a snapshot of all pull requests the server holds.
func (c *MockGitHubServerConfig) PullRequests() []*github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*github.PullRequest, len(c.prs))
	copy(out, c.prs)
	return out
}

// FindPR returns the pull request whose head is the given branch, or nil.
func (c *MockGitHubServerConfig) FindPR(head string) *github.PullRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pr := range c.prs {
		if pr.Head.GetRef() == head {
			return pr
		}
	}
	return nil
}

func (c *MockGitHubServerConfig) prURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/%s/pull/%d", c.Owner, c.Repo, number)
}

// NewMockGitHubServer starts an httptest server speaking enough of the GitHub
// REST API for stackline: paginated PR listing, PR creation and PR edits.
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	t.Helper()
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	basePath := "/repos/" + config.Owner + "/" + config.Repo + "/pulls"

	mux := http.NewServeMux()
	mux.HandleFunc(basePath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			config.handleList(w, r)
		case http.MethodPost:
			config.handleCreate(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc(basePath+"/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		number, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, basePath+"/"))
		if err != nil {
			http.Error(w, "invalid PR number", http.StatusBadRequest)
			return
		}
		config.handleEdit(w, r, number)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// handleList serves GET /repos/{owner}/{repo}/pulls with state filtering and
// Link-header pagination.
func (c *MockGitHubServerConfig) handleList(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
	}

	var filtered []*github.PullRequest
	for _, pr := range c.prs {
		if state == "all" || pr.GetState() == state {
			filtered = append(filtered, pr)
		}
	}

	perPage := c.PageSize
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < perPage {
			perPage = n
		}
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	lastPage := (len(filtered) + perPage - 1) / perPage
	if page < lastPage {
		pageURL := func(p int) string {
			return fmt.Sprintf("<http://%s%s?state=%s&per_page=%d&page=%d>", r.Host, r.URL.Path, state, perPage, p)
		}
		w.Header().Set("Link", fmt.Sprintf("%s; rel=\"next\", %s; rel=\"last\"", pageURL(page+1), pageURL(lastPage)))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(filtered[start:end])
}

// handleCreate serves POST /repos/{owner}/{repo}/pulls.
func (c *MockGitHubServerConfig) handleCreate(w http.ResponseWriter, r *http.Request) {
	var newPR github.NewPullRequest
	if err := json.NewDecoder(r.Body).Decode(&newPR); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	number := c.nextNumber
	c.nextNumber++

	pr := &github.PullRequest{
		Number:  github.Int(number),
		Title:   newPR.Title,
		Body:    newPR.Body,
		Head:    &github.PullRequestBranch{Ref: newPR.Head},
		Base:    &github.PullRequestBranch{Ref: newPR.Base},
		Draft:   newPR.Draft,
		State:   github.String("open"),
		HTMLURL: github.String(c.prURL(number)),
	}

	c.prs = append(c.prs, pr)
	c.CreatedPRs = append(c.CreatedPRs, pr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(pr)
}

// handleEdit serves PATCH /repos/{owner}/{repo}/pulls/{number}. go-github
// sends base as a plain branch name, not an object.
func (c *MockGitHubServerConfig) handleEdit(w http.ResponseWriter, r *http.Request, number int) {
	var update struct {
		Title *string `json:"title"`
		Body  *string `json:"body"`
		State *string `json:"state"`
		Base  *string `json:"base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var pr *github.PullRequest
	for _, candidate := range c.prs {
		if candidate.GetNumber() == number {
			pr = candidate
			break
		}
	}
	if pr == nil {
		http.Error(w, "PR not found", http.StatusNotFound)
		return
	}

	if update.Title != nil {
		pr.Title = update.Title
	}
	if update.Body != nil {
		pr.Body = update.Body
	}
	if update.State != nil {
		pr.State = update.State
	}
	if update.Base != nil {
		pr.Base = &github.PullRequestBranch{Ref: update.Base}
	}

	c.UpdatedPRs[number] = pr

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pr)
}
