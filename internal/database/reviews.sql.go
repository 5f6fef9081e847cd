// internal/database/reviews.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const deleteReviewsBefore = `-- name: DeleteReviewsBefore :execrows
DELETE FROM reviews
WHERE repository_id = $1 AND created_at < $2
`

func (q *Queries) DeleteReviewsBefore(ctx context.Context, arg PruneParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReviewsBefore, arg.RepositoryID, arg.Before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listReviewsByRepo = `-- name: ListReviewsByRepo :many
SELECT id, repository_id, comment, author, created_at, review_id, pr_number FROM reviews
WHERE repository_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListReviewsByRepo(ctx context.Context, repositoryID int64) ([]Review, error) {
	rows, err := q.db.Query(ctx, listReviewsByRepo, repositoryID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Review])
}

const deleteReviewsByID = `-- name: DeleteReviewsByID :execrows
DELETE FROM reviews
WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeleteReviewsByID(ctx context.Context, ids []int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReviewsByID, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLatestReviewDate = `-- name: GetLatestReviewDate :one
SELECT MAX(created_at)::timestamptz FROM reviews
WHERE repository_id = $1
`

func (q *Queries) GetLatestReviewDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error) {
	row := q.db.QueryRow(ctx, getLatestReviewDate, repositoryID)
	var latest pgtype.Timestamptz
	err := row.Scan(&latest)
	return latest, err
}

const listReviewIDsForPullRequest = `-- name: ListReviewIDsForPullRequest :many
SELECT review_id FROM reviews
WHERE repository_id = $1 AND pr_number = $2
`

func (q *Queries) ListReviewIDsForPullRequest(ctx context.Context, arg ListReviewIDsParams) ([]string, error) {
	rows, err := q.db.Query(ctx, listReviewIDsForPullRequest, arg.RepositoryID, arg.PrNumber)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type CreateReviewParams struct {
	RepositoryID int64
	Comment      string
	Author       string
	CreatedAt    time.Time
	ReviewID     string
	PrNumber     int32
}

var reviewColumns = []string{"repository_id", "comment", "author", "created_at", "review_id", "pr_number"}

func (p CreateReviewParams) values() []any {
	return []any{p.RepositoryID, p.Comment, p.Author, p.CreatedAt, p.ReviewID, p.PrNumber}
}

func (q *Queries) CreateReviews(ctx context.Context, arg []CreateReviewParams) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"reviews"}, reviewColumns,
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return arg[i].values(), nil
		}))
}

const createReview = `-- name: CreateReview :exec
INSERT INTO reviews (repository_id, comment, author, created_at, review_id, pr_number)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) error {
	_, err := q.db.Exec(ctx, createReview, arg.values()...)
	return err
}
