// internal/database/db.go

// Package database is the PostgreSQL persistence layer. Queries run
// against a DBTX so the same code serves both pool-level calls and
// calls inside a transaction (database.New(tx)).
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx behavior the queries need. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New wraps a connection pool or transaction in a Queries instance.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries is the concrete Querier backed by Postgres.
type Queries struct {
	db DBTX
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// AcquireSprintLock takes the transaction-scoped advisory lock that
// serializes all pipeline-state mutation for one sprint. It must be
// called inside a transaction; the lock releases on commit/rollback.
// Different sprints use different lock keys and never block each other.
func (q *Queries) AcquireSprintLock(ctx context.Context, sprintID int64) error {
	_, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, sprintID)
	return err
}
