// internal/database/querier.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the full set of store operations used by the syncer and the read API.
type Querier interface {
	GetRepositoryByName(ctx context.Context, name string) (Repository, error)
	CreateRepository(ctx context.Context, name string) (Repository, error)

	DeleteCommitsBefore(ctx context.Context, arg PruneParams) (int64, error)
	DeletePullRequestsBefore(ctx context.Context, arg PruneParams) (int64, error)
	DeleteIssuesBefore(ctx context.Context, arg PruneParams) (int64, error)
	DeleteReviewsBefore(ctx context.Context, arg PruneParams) (int64, error)

	ListCommitsByRepo(ctx context.Context, repositoryID int64) ([]Commit, error)
	ListPullRequestsByRepo(ctx context.Context, repositoryID int64) ([]PullRequest, error)
	ListIssuesByRepo(ctx context.Context, repositoryID int64) ([]Issue, error)
	ListReviewsByRepo(ctx context.Context, repositoryID int64) ([]Review, error)

	DeleteCommitsByID(ctx context.Context, ids []int64) (int64, error)
	DeletePullRequestsByID(ctx context.Context, ids []int64) (int64, error)
	DeleteIssuesByID(ctx context.Context, ids []int64) (int64, error)
	DeleteReviewsByID(ctx context.Context, ids []int64) (int64, error)

	GetLatestCommitDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error)
	GetLatestPullRequestDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error)
	GetLatestIssueDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error)
	GetLatestReviewDate(ctx context.Context, repositoryID int64) (pgtype.Timestamptz, error)

	ListPullRequestStates(ctx context.Context, arg ListByNumbersParams) ([]PullRequestStateRow, error)
	UpdatePullRequestState(ctx context.Context, arg UpdatePullRequestStateParams) (int64, error)
	ListIssueNumbers(ctx context.Context, arg ListByNumbersParams) ([]int32, error)
	ListReviewIDsForPullRequest(ctx context.Context, arg ListReviewIDsParams) ([]string, error)

	CreateCommits(ctx context.Context, arg []CreateCommitParams) (int64, error)
	CreateCommit(ctx context.Context, arg CreateCommitParams) error
	CreatePullRequests(ctx context.Context, arg []CreatePullRequestParams) (int64, error)
	CreatePullRequest(ctx context.Context, arg CreatePullRequestParams) error
	CreateIssues(ctx context.Context, arg []CreateIssueParams) (int64, error)
	CreateIssue(ctx context.Context, arg CreateIssueParams) error
	CreateReviews(ctx context.Context, arg []CreateReviewParams) (int64, error)
	CreateReview(ctx context.Context, arg CreateReviewParams) error

	GetTopCommitAuthors(ctx context.Context, arg GetTopCommitAuthorsParams) ([]GetTopCommitAuthorsRow, error)
}

var _ Querier = (*Queries)(nil)

// PruneParams selects a repository's rows whose primary date is before Before.
type PruneParams struct {
	RepositoryID int64
	Before       time.Time
}

type ListByNumbersParams struct {
	RepositoryID int64
	Numbers      []int32
}

type ListReviewIDsParams struct {
	RepositoryID int64
	PrNumber     int32
}
