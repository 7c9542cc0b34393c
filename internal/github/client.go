// internal/github/client.go
package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"devsprint-service/internal/model"
)

// Client is a wrapper around the go-github client, reduced to the two
// calls the activity poller needs.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. The
// provided token is used to create an authenticated http.Client; an
// empty token falls back to unauthenticated requests.
func NewClient(token string, logger *slog.Logger) *Client {
	httpClient := oauth2.NewClient(context.Background(), nil)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}
}

// OverrideBaseURL points the client at a different API host; used by
// tests to target an httptest server.
func (c *Client) OverrideBaseURL(url string) error {
	gh, err := c.gh.WithEnterpriseURLs(url, url)
	if err != nil {
		return err
	}
	c.gh = gh
	return nil
}

// GetCommits fetches all commits for a repository since a given time,
// handling API pagination transparently.
func (c *Client) GetCommits(ctx context.Context, owner, name string, since time.Time) ([]model.Commit, error) {
	var allCommits []model.Commit

	opts := &github.CommitsListOptions{
		Since: since,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)

		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, err
		}

		for _, commit := range commits {
			allCommits = append(allCommits, toInternalCommit(commit))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allCommits, nil
}

// GetPullRequests fetches pull requests updated since a given time,
// newest first. Pagination stops at the first page that falls fully
// behind the cutoff.
func (c *Client) GetPullRequests(ctx context.Context, owner, name string, since time.Time) ([]model.PullRequest, error) {
	var prs []model.PullRequest

	opts := &github.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		c.logger.Debug("Fetching pull requests page", "owner", owner, "repo", name, "page", opts.Page)

		page, resp, err := c.gh.PullRequests.List(ctx, owner, name, opts)
		if err != nil {
			return nil, err
		}

		stale := false
		for _, pr := range page {
			if !pr.GetUpdatedAt().Time.After(since) {
				stale = true
				break
			}
			prs = append(prs, toInternalPullRequest(pr))
		}

		if stale || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return prs, nil
}

// toInternalCommit translates a github.RepositoryCommit to our model.
func toInternalCommit(c *github.RepositoryCommit) model.Commit {
	return model.Commit{
		SHA:        c.GetSHA(),
		AuthorName: c.GetCommit().GetAuthor().GetName(),
		Message:    c.GetCommit().GetMessage(),
		URL:        c.GetHTMLURL(),
		CommitDate: c.GetCommit().GetAuthor().GetDate().Time,
	}
}

// toInternalPullRequest translates a github.PullRequest to our model.
func toInternalPullRequest(pr *github.PullRequest) model.PullRequest {
	return model.PullRequest{
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		URL:       pr.GetHTMLURL(),
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}
