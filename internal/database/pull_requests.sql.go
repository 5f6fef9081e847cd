// internal/database/pull_requests.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const deletePullRequestsBefore = `-- name: DeletePullRequestsBefore :execrows
DELETE FROM pull_requests
WHERE repository_id = $1 AND created_at < $2
`

func (q *Queries) DeletePullRequestsBefore(ctx context.Context, arg PruneParams) (int64, error) {
	result, err := q.db.Exec(ctx, deletePullRequestsBefore, arg.RepositoryID, arg.Before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listPullRequestsByRepo = `-- name: ListPullRequestsByRepo :many
SELECT id, repository_id, title, author, created_at, state, number, created_at_internal FROM pull_requests
WHERE repository_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListPullRequestsByRepo(ctx context.Context, repositoryID int64) ([]PullRequest, error) {
	rows, err := q.db.Query(ctx, listPullRequestsByRepo, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[PullRequest])
}

const deletePullRequestsByID = `-- name: DeletePullRequestsByID :execrows
DELETE FROM pull_requests
WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeletePullRequestsByID(ctx context.Context, ids []int64) (int64, error) {
	result, err := q.db.Exec(ctx, deletePullRequestsByID, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLatestPullRequestDate = `-- name: GetLatestPullRequestDate :one
SELECT MAX(created_at)::timestamptz FROM pull_requests
WHERE repository_id = $1
`

func (q *Queries) GetLatestPullRequestDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error) {
	row := q.db.QueryRow(ctx, getLatestPullRequestDate, repositoryID)
	var latest pgtype.Timestamptz
	err := row.Scan(&latest)
	return latest, err
}

const listPullRequestStates = `-- name: ListPullRequestStates :many
SELECT number, state FROM pull_requests
WHERE repository_id = $1 AND number = ANY($2::integer[])
`

type PullRequestStateRow struct {
	Number int32  `db:"number"`
	State  string `db:"state"`
}

func (q *Queries) ListPullRequestStates(ctx context.Context, arg ListByNumbersParams) ([]PullRequestStateRow, error) {
	rows, err := q.db.Query(ctx, listPullRequestStates, arg.RepositoryID, arg.Numbers)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[PullRequestStateRow])
}

const updatePullRequestState = `-- name: UpdatePullRequestState :execrows
UPDATE pull_requests
SET state = $3
WHERE repository_id = $1 AND number = $2
`

type UpdatePullRequestStateParams struct {
	RepositoryID int64
	Number       int32
	State        string
}

func (q *Queries) UpdatePullRequestState(ctx context.Context, arg UpdatePullRequestStateParams) (int64, error) {
	result, err := q.db.Exec(ctx, updatePullRequestState, arg.RepositoryID, arg.Number, arg.State)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type CreatePullRequestParams struct {
	RepositoryID      int64
	Title             string
	Author            string
	CreatedAt         time.Time
	State             string
	Number            int32
	CreatedAtInternal time.Time
}

var pullRequestColumns = []string{"repository_id", "title", "author", "created_at", "state", "number", "created_at_internal"}

func (p CreatePullRequestParams) values() []any {
	return []any{p.RepositoryID, p.Title, p.Author, p.CreatedAt, p.State, p.Number, p.CreatedAtInternal}
}

func (q *Queries) CreatePullRequests(ctx context.Context, arg []CreatePullRequestParams) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"pull_requests"}, pullRequestColumns,
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return arg[i].values(), nil
		}))
}

const createPullRequest = `-- name: CreatePullRequest :exec
INSERT INTO pull_requests (repository_id, title, author, created_at, state, number, created_at_internal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) CreatePullRequest(ctx context.Context, arg CreatePullRequestParams) error {
	_, err := q.db.Exec(ctx, createPullRequest, arg.values()...)
	return err
}
