/*
github.go - GitHub commit source for description prefill

PURPOSE:
  Implements CommitSource against the GitHub REST commits API. Read-only,
  unauthenticated by default; an optional token raises the rate limit and
  unlocks private repositories.
*/
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	githubBaseURL     = "https://api.github.com"
	githubCommitsPath = "/repos/%s/commits"
)

// GitHubClient implements CommitSource for github.com repositories.
type GitHubClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewGitHubClient creates a commit source. Token may be empty for public
// repositories.
func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{
		token:   token,
		baseURL: githubBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type githubCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// Commits lists commits by author on repo/branch within [from, to].
// repo is "owner/name".
func (c *GitHubClient) Commits(ctx context.Context, repo, author, branch string, from, to time.Time) ([]Commit, error) {
	query := url.Values{}
	query.Set("author", author)
	query.Set("since", from.Format(time.RFC3339))
	query.Set("until", to.Format(time.RFC3339))
	query.Set("per_page", "100")
	if branch != "" {
		query.Set("sha", branch)
	}

	endpoint := c.baseURL + fmt.Sprintf(githubCommitsPath, repo) + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build commits request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch commits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch commits: status %d", resp.StatusCode)
	}

	var raw []githubCommit
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode commits: %w", err)
	}

	commits := make([]Commit, len(raw))
	for i, gc := range raw {
		short := gc.SHA
		if len(short) > 7 {
			short = short[:7]
		}
		commits[i] = Commit{
			ShortHash: short,
			Message:   gc.Commit.Message,
			Timestamp: gc.Commit.Author.Date,
			URL:       gc.HTMLURL,
		}
	}
	return commits, nil
}

var _ CommitSource = (*GitHubClient)(nil)
