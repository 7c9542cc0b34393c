// internal/poller/poller_test.go
package poller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database/databasetest"
	"devsprint-service/internal/model"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetCommits(ctx context.Context, owner, name string, since time.Time) ([]model.Commit, error) {
	args := m.Called(ctx, owner, name, since)
	return args.Get(0).([]model.Commit), args.Error(1)
}

func (m *MockSource) GetPullRequests(ctx context.Context, owner, name string, since time.Time) ([]model.PullRequest, error) {
	args := m.Called(ctx, owner, name, since)
	return args.Get(0).([]model.PullRequest), args.Error(1)
}

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, event model.ActivityEvent) (correlator.Result, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(correlator.Result), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPollerRejectsBadRepoFormat(t *testing.T) {
	for _, repo := range []string{"acme", "acme/", "/app", "a/b/c"} {
		_, err := NewPoller(nil, nil, nil, testLogger(), []string{repo}, time.Hour, time.Time{})
		var formatErr *apperrors.ErrInvalidRepoFormat
		assert.ErrorAs(t, err, &formatErr, "repo=%q", repo)
	}
}

func TestSyncRepoBuildsEventsAndAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	source := new(MockSource)
	ingester := new(MockIngester)

	defaultSince := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewPoller(fake, source, ingester, testLogger(), []string{"acme/app"}, time.Hour, defaultSince)
	require.NoError(t, err)

	commitDate := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	prDate := time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)

	source.On("GetCommits", ctx, "acme", "app", defaultSince).Return([]model.Commit{
		{SHA: "abc", Message: "Ref #7 start", CommitDate: commitDate},
	}, nil).Once()
	source.On("GetPullRequests", ctx, "acme", "app", defaultSince).Return([]model.PullRequest{
		{Title: "Fix", Body: "Ref #7", URL: "https://github.com/acme/app/pull/1", UpdatedAt: prDate},
	}, nil).Once()

	ingester.On("Ingest", ctx, model.ActivityEvent{
		RepoName: "acme/app",
		Commits:  []model.CommitEvent{{Hash: "abc", Message: "Ref #7 start"}},
	}).Return(correlator.Result{LinksCreated: 1, TasksTransitioned: 1}, nil).Once()
	ingester.On("Ingest", ctx, model.ActivityEvent{
		RepoName: "acme/app",
		PullRequest: &model.PullRequestEvent{
			Title: "Fix",
			Body:  "Ref #7",
			URL:   "https://github.com/acme/app/pull/1",
		},
	}).Return(correlator.Result{LinksCreated: 1}, nil).Once()

	require.NoError(t, p.syncRepo(ctx, RepoIdentifier{Owner: "acme", Name: "app"}))

	source.AssertExpectations(t)
	ingester.AssertExpectations(t)

	cursor, err := fake.GetRepoCursor(ctx, "acme/app")
	require.NoError(t, err)
	assert.Equal(t, prDate.Add(time.Second), cursor)
}

func TestSyncRepoNoActivityLeavesCursorAlone(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	source := new(MockSource)
	ingester := new(MockIngester)

	p, err := NewPoller(fake, source, ingester, testLogger(), []string{"acme/app"}, time.Hour, time.Time{})
	require.NoError(t, err)

	source.On("GetCommits", ctx, "acme", "app", mock.Anything).Return([]model.Commit{}, nil).Once()
	source.On("GetPullRequests", ctx, "acme", "app", mock.Anything).Return([]model.PullRequest{}, nil).Once()

	require.NoError(t, p.syncRepo(ctx, RepoIdentifier{Owner: "acme", Name: "app"}))

	ingester.AssertNotCalled(t, "Ingest")
	cursor, err := fake.GetRepoCursor(ctx, "acme/app")
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())
}

func TestSyncRepoUsesStoredCursor(t *testing.T) {
	ctx := context.Background()
	fake := databasetest.New()
	source := new(MockSource)
	ingester := new(MockIngester)

	stored := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fake.UpsertRepoCursor(ctx, "acme/app", stored))

	p, err := NewPoller(fake, source, ingester, testLogger(), []string{"acme/app"}, time.Hour, time.Time{})
	require.NoError(t, err)

	source.On("GetCommits", ctx, "acme", "app", stored).Return([]model.Commit{}, nil).Once()
	source.On("GetPullRequests", ctx, "acme", "app", stored).Return([]model.PullRequest{}, nil).Once()

	require.NoError(t, p.syncRepo(ctx, RepoIdentifier{Owner: "acme", Name: "app"}))
	source.AssertExpectations(t)
}
