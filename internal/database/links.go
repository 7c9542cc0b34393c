// internal/database/links.go
package database

import (
	"context"

	"devsprint-service/internal/model"

	"github.com/jackc/pgx/v5"
)

const linkColumns = `id, task_id, commit_hash, pr_url, repo_name, created_at`

func scanLink(row pgx.Row) (model.GithubLink, error) {
	var l model.GithubLink
	err := row.Scan(&l.ID, &l.TaskID, &l.CommitHash, &l.PRURL, &l.RepoName, &l.CreatedAt)
	return l, err
}

type CreateCommitLinkParams struct {
	TaskID     int64
	CommitHash string
	RepoName   *string
}

// CreateCommitLink inserts a (task, commit) link. Replayed payloads
// hit the partial unique index and insert nothing; the bool reports
// whether a new row actually landed.
func (q *Queries) CreateCommitLink(ctx context.Context, arg CreateCommitLinkParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO github_links (task_id, commit_hash, repo_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id, commit_hash) WHERE commit_hash IS NOT NULL DO NOTHING`,
		arg.TaskID, arg.CommitHash, arg.RepoName)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type CreatePRLinkParams struct {
	TaskID   int64
	PRURL    string
	RepoName *string
}

// CreatePRLink inserts a (task, pull request) link with the same
// idempotency contract as CreateCommitLink.
func (q *Queries) CreatePRLink(ctx context.Context, arg CreatePRLinkParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO github_links (task_id, pr_url, repo_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id, pr_url) WHERE pr_url IS NOT NULL DO NOTHING`,
		arg.TaskID, arg.PRURL, arg.RepoName)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) ListLinksByTask(ctx context.Context, taskID int64) ([]model.GithubLink, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+linkColumns+` FROM github_links
		WHERE task_id = $1
		ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.GithubLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
