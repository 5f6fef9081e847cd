// internal/syncer/dedup.go
package syncer

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

// Logical identities. Two rows with equal keys are the same record.
type (
	commitKey struct {
		repositoryID int64
		message      string
		author       string
		committedAt  int64
		branch       string
	}
	numberKey struct {
		repositoryID int64
		number       int32
	}
	reviewKey struct {
		repositoryID int64
		reviewID     string
		author       string
		prNumber     int32
	}
)

func commitParamsKey(p database.CreateCommitParams) commitKey {
	return commitKey{p.RepositoryID, p.Message, p.Author, p.CommittedAt.Unix(), p.Branch}
}

func pullRequestParamsKey(p database.CreatePullRequestParams) numberKey {
	return numberKey{p.RepositoryID, p.Number}
}

func issueParamsKey(p database.CreateIssueParams) numberKey {
	return numberKey{p.RepositoryID, p.Number}
}

func reviewParamsKey(p database.CreateReviewParams) reviewKey {
	return reviewKey{p.RepositoryID, p.ReviewID, p.Author, p.PrNumber}
}

// storedRow is the projection of a stored row needed to collapse duplicates.
type storedRow[K comparable] struct {
	id         int64
	key        K
	ingestedAt time.Time
}

// duplicateIDs groups rows by key and returns the ids of every row except the most
// recently ingested one in each group. Equal ingestion times keep the highest id.
func duplicateIDs[K comparable](rows []storedRow[K]) []int64 {
	groups := make(map[K][]storedRow[K], len(rows))
	var order []K
	for _, r := range rows {
		if _, ok := groups[r.key]; !ok {
			order = append(order, r.key)
		}
		groups[r.key] = append(groups[r.key], r)
	}

	var ids []int64
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		slices.SortFunc(group, func(a, b storedRow[K]) int {
			if c := b.ingestedAt.Compare(a.ingestedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.id, a.id)
		})
		for _, r := range group[1:] {
			ids = append(ids, r.id)
		}
	}
	return ids
}

// filterNew drops rows whose key is already in seen, including keys accepted earlier in
// the same call. seen is updated in place.
func filterNew[T any, K comparable](rows []T, seen map[K]struct{}, key func(T) K) (accepted []T, skipped int) {
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			skipped++
			continue
		}
		seen[k] = struct{}{}
		accepted = append(accepted, r)
	}
	return accepted, skipped
}

type insertOutcome struct {
	Inserted int
	Failed   int
}

// insertWithFallback bulk inserts rows and, if the bulk insert fails, inserts them one at
// a time. Individual failures are logged and counted, never returned.
func insertWithFallback[T any](
	ctx context.Context,
	logger *slog.Logger,
	kind model.Kind,
	rows []T,
	bulk func(context.Context, []T) (int64, error),
	single func(context.Context, T) error,
) insertOutcome {
	if len(rows) == 0 {
		return insertOutcome{}
	}

	n, err := bulk(ctx, rows)
	if err == nil {
		logger.Info("Stored new rows", "kind", kind, "count", n)
		return insertOutcome{Inserted: int(n)}
	}
	logger.Warn("Bulk insert failed, inserting individually", "kind", kind, "count", len(rows), "error", err)

	var out insertOutcome
	for _, r := range rows {
		if err := single(ctx, r); err != nil {
			out.Failed++
			logger.Error("Error inserting individual row", "kind", kind, "error", err)
			continue
		}
		out.Inserted++
	}
	logger.Info("Individually inserted rows", "kind", kind, "inserted", out.Inserted, "total", len(rows))
	return out
}

// cleanDuplicates collapses stored rows sharing a logical identity down to the most
// recently ingested copy, for every resource kind of the repository.
func (s *Syncer) cleanDuplicates(ctx context.Context, run *repoRun) error {
	commits, err := s.q.ListCommitsByRepo(ctx, run.repoID)
	if err != nil {
		return fmt.Errorf("list commits: %w", err)
	}
	commitRows := make([]storedRow[commitKey], len(commits))
	for i, c := range commits {
		commitRows[i] = storedRow[commitKey]{
			id:         c.ID,
			key:        commitKey{c.RepositoryID, c.Message, c.Author, c.CommittedAt.Unix(), c.Branch},
			ingestedAt: c.CreatedAt,
		}
	}
	s.deleteDuplicates(ctx, run, model.KindCommit, duplicateIDs(commitRows), s.q.DeleteCommitsByID)

	prs, err := s.q.ListPullRequestsByRepo(ctx, run.repoID)
	if err != nil {
		return fmt.Errorf("list pull requests: %w", err)
	}
	prRows := make([]storedRow[numberKey], len(prs))
	for i, p := range prs {
		prRows[i] = storedRow[numberKey]{id: p.ID, key: numberKey{p.RepositoryID, p.Number}, ingestedAt: p.CreatedAtInternal}
	}
	s.deleteDuplicates(ctx, run, model.KindPullRequest, duplicateIDs(prRows), s.q.DeletePullRequestsByID)

	// Issues and reviews carry no ingestion timestamp; their created_at stands in, with
	// the id as tie-breaker.
	issues, err := s.q.ListIssuesByRepo(ctx, run.repoID)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}
	issueRows := make([]storedRow[numberKey], len(issues))
	for i, is := range issues {
		issueRows[i] = storedRow[numberKey]{id: is.ID, key: numberKey{is.RepositoryID, is.Number}, ingestedAt: is.CreatedAt}
	}
	s.deleteDuplicates(ctx, run, model.KindIssue, duplicateIDs(issueRows), s.q.DeleteIssuesByID)

	reviews, err := s.q.ListReviewsByRepo(ctx, run.repoID)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	reviewRows := make([]storedRow[reviewKey], len(reviews))
	for i, r := range reviews {
		reviewRows[i] = storedRow[reviewKey]{
			id:         r.ID,
			key:        reviewKey{r.RepositoryID, r.ReviewID, r.Author, r.PrNumber},
			ingestedAt: r.CreatedAt,
		}
	}
	s.deleteDuplicates(ctx, run, model.KindReview, duplicateIDs(reviewRows), s.q.DeleteReviewsByID)
	return nil
}

// deleteDuplicates removes the given rows. A failed delete is logged and left for the
// next run's cleanup.
func (s *Syncer) deleteDuplicates(
	ctx context.Context,
	run *repoRun,
	kind model.Kind,
	ids []int64,
	del func(context.Context, []int64) (int64, error),
) {
	if len(ids) == 0 {
		run.logger.Debug("No duplicates to clean", "kind", kind)
		return
	}
	n, err := del(ctx, ids)
	if err != nil {
		run.logger.Error("Error deleting duplicate rows", "kind", kind, "count", len(ids), "error", err)
		return
	}
	run.stats(kind).Collapsed += int(n)
	run.logger.Info("Deleted duplicate rows", "kind", kind, "count", n)
}
