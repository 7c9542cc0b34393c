// internal/github/client_test.go
package github

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, client.OverrideBaseURL(server.URL))
	return client
}

func TestGetCommits(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WithEnterpriseURLs prefixes /api/v3.
		if r.URL.Path != "/api/v3/repos/acme/app/commits" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[
			{"sha": "abc", "commit": {"author": {"name": "alice", "date": "2024-06-01T12:00:00Z"}, "message": "Ref #7 start work"}, "html_url": "url1"},
			{"sha": "def", "commit": {"author": {"name": "bob", "date": "2024-06-02T12:00:00Z"}, "message": "fix: a bug"}, "html_url": "url2"}
		]`))
	})
	client := newTestClient(t, handler)

	commits, err := client.GetCommits(context.Background(), "acme", "app", time.Time{})
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc", commits[0].SHA)
	assert.Equal(t, "Ref #7 start work", commits[0].Message)
	assert.Equal(t, "alice", commits[0].AuthorName)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), commits[0].CommitDate)
}

func TestGetPullRequestsStopsAtCutoff(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/repos/acme/app/pulls" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[
			{"title": "new PR", "body": "Ref #7", "html_url": "https://github.com/acme/app/pull/2", "updated_at": "2024-06-05T00:00:00Z"},
			{"title": "old PR", "body": "", "html_url": "https://github.com/acme/app/pull/1", "updated_at": "2024-05-01T00:00:00Z"}
		]`))
	})
	client := newTestClient(t, handler)

	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	prs, err := client.GetPullRequests(context.Background(), "acme", "app", since)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, "new PR", prs[0].Title)
	assert.Equal(t, "https://github.com/acme/app/pull/2", prs[0].URL)
}
