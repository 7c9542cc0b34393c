// internal/poller/poller.go

// Package poller periodically pulls commit and pull-request activity
// from GitHub for the configured repositories and feeds it to the
// activity correlator, so task correlation works even without webhook
// delivery. All network fetching happens before the correlator's
// serialized ingestion transaction.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"devsprint-service/internal/apperrors"
	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database"
	"devsprint-service/internal/model"
)

// Number of repositories to poll in parallel.
const concurrency = 5

// ActivitySource yields repository activity since a cursor; the
// GitHub client implements it.
type ActivitySource interface {
	GetCommits(ctx context.Context, owner, name string, since time.Time) ([]model.Commit, error)
	GetPullRequests(ctx context.Context, owner, name string, since time.Time) ([]model.PullRequest, error)
}

// Ingester consumes activity events; the correlator implements it.
type Ingester interface {
	Ingest(ctx context.Context, event model.ActivityEvent) (correlator.Result, error)
}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

func (r RepoIdentifier) FullName() string {
	return r.Owner + "/" + r.Name
}

// Poller orchestrates the fetch-and-correlate cycle.
type Poller struct {
	db           database.Querier
	source       ActivitySource
	ingester     Ingester
	logger       *slog.Logger
	repos        []RepoIdentifier
	interval     time.Duration
	defaultSince time.Time
}

// NewPoller creates a new Poller instance.
func NewPoller(db database.Querier, source ActivitySource, ingester Ingester, logger *slog.Logger, repos []string, interval time.Duration, defaultSince time.Time) (*Poller, error) {
	parsedRepos, err := parseRepoIdentifiers(repos)
	if err != nil {
		return nil, err
	}

	return &Poller{
		db:           db,
		source:       source,
		ingester:     ingester,
		logger:       logger,
		repos:        parsedRepos,
		interval:     interval,
		defaultSince: defaultSince,
	}, nil
}

// Start begins the continuous polling process.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting activity poller", "interval", p.interval.String(), "concurrency", concurrency)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runCycle(ctx) // Initial poll

	for {
		select {
		case <-ticker.C:
			p.runCycle(ctx)
		case <-ctx.Done():
			p.logger.Info("Activity poller shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runCycle polls all configured repositories concurrently.
func (p *Poller) runCycle(ctx context.Context) {
	p.logger.Info("Starting new poll cycle")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, repo := range p.repos {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			err := p.syncRepo(gctx, repo)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("Failed to poll repository", "owner", repo.Owner, "repo", repo.Name, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Error("Poll cycle finished with an error", "error", err)
	} else {
		p.logger.Info("Poll cycle finished")
	}
}

// syncRepo fetches activity newer than the repo's cursor, feeds it to
// the correlator and advances the cursor past the newest item seen.
func (p *Poller) syncRepo(ctx context.Context, repo RepoIdentifier) error {
	logger := p.logger.With("owner", repo.Owner, "repo", repo.Name)

	since, err := p.sinceTimestamp(ctx, repo)
	if err != nil {
		return err
	}
	logger.Info("Fetching activity since", "timestamp", since.Format(time.RFC3339))

	commits, err := p.source.GetCommits(ctx, repo.Owner, repo.Name, since)
	if err != nil {
		return fmt.Errorf("fetching commits: %w", err)
	}
	prs, err := p.source.GetPullRequests(ctx, repo.Owner, repo.Name, since)
	if err != nil {
		return fmt.Errorf("fetching pull requests: %w", err)
	}

	if len(commits) == 0 && len(prs) == 0 {
		logger.Info("No new activity found")
		return nil
	}

	newest := since
	if len(commits) > 0 {
		event := model.ActivityEvent{RepoName: repo.FullName()}
		for _, commit := range commits {
			event.Commits = append(event.Commits, model.CommitEvent{
				Hash:    commit.SHA,
				Message: commit.Message,
			})
			if commit.CommitDate.After(newest) {
				newest = commit.CommitDate
			}
		}
		res, err := p.ingester.Ingest(ctx, event)
		if err != nil {
			return fmt.Errorf("ingesting commits: %w", err)
		}
		logger.Info("Ingested commit activity",
			"commits", len(commits), "links_created", res.LinksCreated, "tasks_transitioned", res.TasksTransitioned)
	}

	for _, pr := range prs {
		event := model.ActivityEvent{
			RepoName: repo.FullName(),
			PullRequest: &model.PullRequestEvent{
				Title: pr.Title,
				Body:  pr.Body,
				URL:   pr.URL,
			},
		}
		if _, err := p.ingester.Ingest(ctx, event); err != nil {
			return fmt.Errorf("ingesting pull request %s: %w", pr.URL, err)
		}
		if pr.UpdatedAt.After(newest) {
			newest = pr.UpdatedAt
		}
	}

	// Move the cursor just past the newest item so replays stop.
	return p.db.UpsertRepoCursor(ctx, repo.FullName(), newest.Add(time.Second))
}

func (p *Poller) sinceTimestamp(ctx context.Context, repo RepoIdentifier) (time.Time, error) {
	cursor, err := p.db.GetRepoCursor(ctx, repo.FullName())
	if err != nil {
		return time.Time{}, err
	}
	if cursor.IsZero() {
		p.logger.Info("No cursor for repository, using default start date",
			"repo", repo.FullName(), "default_since", p.defaultSince)
		return p.defaultSince, nil
	}
	return cursor, nil
}

func parseRepoIdentifiers(repos []string) ([]RepoIdentifier, error) {
	var identifiers []RepoIdentifier
	for _, r := range repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &apperrors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}
