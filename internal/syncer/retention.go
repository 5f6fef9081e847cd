// internal/syncer/retention.go
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

// DefaultRetention is the rolling window of history kept in the store.
const DefaultRetention = 30 * 24 * time.Hour

// prune deletes every row of the repository whose primary date is before the run's
// cutoff. A failed delete is logged; the rows are retried on the next run.
func (s *Syncer) prune(ctx context.Context, run *repoRun) {
	arg := database.PruneParams{RepositoryID: run.repoID, Before: run.cutoff}
	deletes := []struct {
		kind model.Kind
		del  func(context.Context, database.PruneParams) (int64, error)
	}{
		{model.KindCommit, s.q.DeleteCommitsBefore},
		{model.KindPullRequest, s.q.DeletePullRequestsBefore},
		{model.KindIssue, s.q.DeleteIssuesBefore},
		{model.KindReview, s.q.DeleteReviewsBefore},
	}
	for _, d := range deletes {
		n, err := d.del(ctx, arg)
		if err != nil {
			run.logger.Error("Error deleting old rows", "kind", d.kind, "before", run.cutoff, "error", err)
			continue
		}
		run.stats(d.kind).Pruned += int(n)
		run.logger.Info("Deleted old rows", "kind", d.kind, "count", n)
	}
}

// windowStart returns the earliest instant this run must fetch back to for kind: the
// earlier of the latest stored row and the retention cutoff. It is never later than the
// cutoff.
func (s *Syncer) windowStart(ctx context.Context, run *repoRun, kind model.Kind) (time.Time, error) {
	var latestFn func(context.Context, int64) (pgtype.Timestamptz, error)
	switch kind {
	case model.KindCommit:
		latestFn = s.q.GetLatestCommitDate
	case model.KindPullRequest:
		latestFn = s.q.GetLatestPullRequestDate
	case model.KindIssue:
		latestFn = s.q.GetLatestIssueDate
	case model.KindReview:
		latestFn = s.q.GetLatestReviewDate
	default:
		return time.Time{}, fmt.Errorf("unknown resource kind %q", kind)
	}

	latest, err := latestFn(ctx, run.repoID)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest %s date: %w", kind, err)
	}
	if !latest.Valid {
		run.logger.Info("No stored rows, using retention cutoff", "kind", kind, "since", run.cutoff)
		return run.cutoff, nil
	}

	run.logger.Info("Found latest stored row", "kind", kind, "timestamp", latest.Time)
	if latest.Time.Before(run.cutoff) {
		return latest.Time, nil
	}
	return run.cutoff, nil
}

// computeWindows fills run.windows for every resource kind.
func (s *Syncer) computeWindows(ctx context.Context, run *repoRun) error {
	for _, kind := range model.Kinds {
		start, err := s.windowStart(ctx, run, kind)
		if err != nil {
			return err
		}
		run.windows[kind] = start
	}
	return nil
}
