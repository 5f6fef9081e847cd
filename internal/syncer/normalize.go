// internal/syncer/normalize.go
package syncer

import (
	"strconv"
	"time"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

// noReviewComment is stored for reviews submitted without a body.
const noReviewComment = "No comment"

// normalizeTime truncates t to whole seconds in UTC so rows fetched in different runs
// compare equal. A zero time (absent in the payload) is replaced by fallback.
func normalizeTime(t, fallback time.Time) time.Time {
	if t.IsZero() {
		t = fallback
	}
	return t.UTC().Truncate(time.Second)
}

func toCommitParams(repoID int64, c model.Commit, ingestedAt time.Time) database.CreateCommitParams {
	return database.CreateCommitParams{
		RepositoryID: repoID,
		Message:      c.Message,
		Author:       c.AuthorName,
		CommittedAt:  normalizeTime(c.AuthoredAt, ingestedAt),
		Branch:       c.Branch,
		CreatedAt:    ingestedAt,
	}
}

func toPullRequestParams(repoID int64, p model.PullRequest, ingestedAt time.Time) database.CreatePullRequestParams {
	return database.CreatePullRequestParams{
		RepositoryID:      repoID,
		Title:             p.Title,
		Author:            p.Author,
		CreatedAt:         normalizeTime(p.CreatedAt, ingestedAt),
		State:             p.State,
		Number:            int32(p.Number),
		CreatedAtInternal: ingestedAt,
	}
}

func toIssueParams(repoID int64, i model.Issue, ingestedAt time.Time) database.CreateIssueParams {
	return database.CreateIssueParams{
		RepositoryID: repoID,
		Title:        i.Title,
		Author:       i.Author,
		CreatedAt:    normalizeTime(i.CreatedAt, ingestedAt),
		Number:       int32(i.Number),
	}
}

func toReviewParams(repoID int64, r model.Review, ingestedAt time.Time) database.CreateReviewParams {
	comment := r.Body
	if comment == "" {
		comment = noReviewComment
	}
	return database.CreateReviewParams{
		RepositoryID: repoID,
		Comment:      comment,
		Author:       r.Author,
		CreatedAt:    normalizeTime(r.SubmittedAt, ingestedAt),
		ReviewID:     strconv.FormatInt(r.ID, 10),
		PrNumber:     int32(r.PRNumber),
	}
}
