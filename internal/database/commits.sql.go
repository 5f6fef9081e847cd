// internal/database/commits.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const deleteCommitsBefore = `-- name: DeleteCommitsBefore :execrows
DELETE FROM commits
WHERE repository_id = $1 AND committed_at < $2
`

func (q *Queries) DeleteCommitsBefore(ctx context.Context, arg PruneParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCommitsBefore, arg.RepositoryID, arg.Before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listCommitsByRepo = `-- name: ListCommitsByRepo :many
SELECT id, repository_id, message, author, committed_at, branch, created_at FROM commits
WHERE repository_id = $1
ORDER BY committed_at DESC
`

func (q *Queries) ListCommitsByRepo(ctx context.Context, repositoryID int64) ([]Commit, error) {
	rows, err := q.db.Query(ctx, listCommitsByRepo, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Commit])
}

const deleteCommitsByID = `-- name: DeleteCommitsByID :execrows
DELETE FROM commits
WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeleteCommitsByID(ctx context.Context, ids []int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCommitsByID, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLatestCommitDate = `-- name: GetLatestCommitDate :one
SELECT MAX(committed_at)::timestamptz FROM commits
WHERE repository_id = $1
`

func (q *Queries) GetLatestCommitDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error) {
	row := q.db.QueryRow(ctx, getLatestCommitDate, repositoryID)
	var latest pgtype.Timestamptz
	err := row.Scan(&latest)
	return latest, err
}

type CreateCommitParams struct {
	RepositoryID int64
	Message      string
	Author       string
	CommittedAt  time.Time
	Branch       string
	CreatedAt    time.Time
}

var commitColumns = []string{"repository_id", "message", "author", "committed_at", "branch", "created_at"}

func (p CreateCommitParams) values() []any {
	return []any{p.RepositoryID, p.Message, p.Author, p.CommittedAt, p.Branch, p.CreatedAt}
}

// CreateCommits bulk inserts commits with COPY. The whole batch fails or succeeds.
func (q *Queries) CreateCommits(ctx context.Context, arg []CreateCommitParams) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"commits"}, commitColumns,
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return arg[i].values(), nil
		}))
}

const createCommit = `-- name: CreateCommit :exec
INSERT INTO commits (repository_id, message, author, committed_at, branch, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (q *Queries) CreateCommit(ctx context.Context, arg CreateCommitParams) error {
	_, err := q.db.Exec(ctx, createCommit, arg.values()...)
	return err
}

const getTopCommitAuthors = `-- name: GetTopCommitAuthors :many
SELECT author, COUNT(*) AS commit_count FROM commits
WHERE repository_id = $1
GROUP BY author
ORDER BY commit_count DESC, author
LIMIT $2
`

type GetTopCommitAuthorsParams struct {
	RepositoryID int64
	Limit        int32
}

type GetTopCommitAuthorsRow struct {
	Author      string `db:"author" json:"author"`
	CommitCount int64  `db:"commit_count" json:"commit_count"`
}

func (q *Queries) GetTopCommitAuthors(ctx context.Context, arg GetTopCommitAuthorsParams) ([]GetTopCommitAuthorsRow, error) {
	rows, err := q.db.Query(ctx, getTopCommitAuthors, arg.RepositoryID, arg.Limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[GetTopCommitAuthorsRow])
}
