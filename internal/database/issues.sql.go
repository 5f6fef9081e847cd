// internal/database/issues.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const deleteIssuesBefore = `-- name: DeleteIssuesBefore :execrows
DELETE FROM issues
WHERE repository_id = $1 AND created_at < $2
`

func (q *Queries) DeleteIssuesBefore(ctx context.Context, arg PruneParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteIssuesBefore, arg.RepositoryID, arg.Before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listIssuesByRepo = `-- name: ListIssuesByRepo :many
SELECT id, repository_id, title, author, created_at, number FROM issues
WHERE repository_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListIssuesByRepo(ctx context.Context, repositoryID int64) ([]Issue, error) {
	rows, err := q.db.Query(ctx, listIssuesByRepo, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Issue])
}

const deleteIssuesByID = `-- name: DeleteIssuesByID :execrows
DELETE FROM issues
WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeleteIssuesByID(ctx context.Context, ids []int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteIssuesByID, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLatestIssueDate = `-- name: GetLatestIssueDate :one
SELECT MAX(created_at)::timestamptz FROM issues
WHERE repository_id = $1
`

func (q *Queries) GetLatestIssueDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error) {
	row := q.db.QueryRow(ctx, getLatestIssueDate, repositoryID)
	var latest pgtype.Timestamptz
	err := row.Scan(&latest)
	return latest, err
}

const listIssueNumbers = `-- name: ListIssueNumbers :many
SELECT number FROM issues
WHERE repository_id = $1 AND number = ANY($2::integer[])
`

func (q *Queries) ListIssueNumbers(ctx context.Context, arg ListByNumbersParams) ([]int32, error) {
	rows, err := q.db.Query(ctx, listIssueNumbers, arg.RepositoryID, arg.Numbers)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

type CreateIssueParams struct {
	RepositoryID int64
	Title        string
	Author       string
	CreatedAt    time.Time
	Number       int32
}

var issueColumns = []string{"repository_id", "title", "author", "created_at", "number"}

func (p CreateIssueParams) values() []any {
	return []any{p.RepositoryID, p.Title, p.Author, p.CreatedAt, p.Number}
}

func (q *Queries) CreateIssues(ctx context.Context, arg []CreateIssueParams) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"issues"}, issueColumns,
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return arg[i].values(), nil
		}))
}

const createIssue = `-- name: CreateIssue :exec
INSERT INTO issues (repository_id, title, author, created_at, number)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) CreateIssue(ctx context.Context, arg CreateIssueParams) error {
	_, err := q.db.Exec(ctx, createIssue, arg.values()...)
	return err
}
