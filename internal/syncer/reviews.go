// internal/syncer/reviews.go
package syncer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

type reviewFetch struct {
	rows     []database.CreateReviewParams
	existing int
}

// syncReviews fetches reviews for open pull requests and for closed ones updated inside
// the review window. Pull requests are processed in batches, with a quota check before
// each batch.
func (s *Syncer) syncReviews(ctx context.Context, run *repoRun) error {
	since := run.windows[model.KindReview]

	var recent []model.PullRequest
	for _, state := range pullRequestStates {
		prs, ok := run.pullRequests[state]
		if !ok {
			var err error
			prs, err = s.remote.ListPullRequests(ctx, run.id, state)
			if err != nil {
				return fmt.Errorf("list %s pull requests: %w", state, err)
			}
			run.pullRequests[state] = prs
		}
		for _, p := range prs {
			if state == "closed" && normalizeTime(p.UpdatedAt, p.CreatedAt).Before(since) {
				continue
			}
			recent = append(recent, p)
		}
	}
	run.logger.Info("Fetching reviews", "pull_requests", len(recent), "since", since)

	var all []database.CreateReviewParams
	st := run.stats(model.KindReview)
	for start := 0; start < len(recent); start += s.opts.ReviewBatchSize {
		batch := recent[start:min(start+s.opts.ReviewBatchSize, len(recent))]
		if err := s.throttle.ThrottleIfLow(ctx); err != nil {
			return fmt.Errorf("wait for rate limit: %w", err)
		}

		fetched := make([]reviewFetch, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for i, pr := range batch {
			g.Go(guard(run.logger, func() error {
				f, err := s.fetchReviews(gctx, run, pr)
				if err != nil {
					return err
				}
				fetched[i] = f
				return nil
			}))
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, f := range fetched {
			st.Skipped += f.existing
			all = append(all, f.rows...)
		}
	}

	keepFrom := run.keepFrom(model.KindReview)
	var kept []database.CreateReviewParams
	for _, r := range all {
		if !r.CreatedAt.Before(keepFrom) {
			kept = append(kept, r)
		}
	}
	fresh, skipped := filterNew(kept, make(map[reviewKey]struct{}, len(kept)), reviewParamsKey)
	st.Skipped += skipped
	if len(fresh) == 0 {
		run.logger.Info("No new reviews found")
		return nil
	}

	for start := 0; start < len(fresh); start += s.opts.ReviewInsertBatchSize {
		chunk := fresh[start:min(start+s.opts.ReviewInsertBatchSize, len(fresh))]
		st.add(insertWithFallback(ctx, run.logger, model.KindReview, chunk, s.q.CreateReviews, s.q.CreateReview))
	}
	return nil
}

// fetchReviews lists the reviews of one pull request and drops the ones already stored.
func (s *Syncer) fetchReviews(ctx context.Context, run *repoRun, pr model.PullRequest) (reviewFetch, error) {
	reviews, err := s.remote.ListReviews(ctx, run.id, pr.Number)
	if err != nil {
		return reviewFetch{}, fmt.Errorf("list reviews for pull request %d: %w", pr.Number, err)
	}
	if len(reviews) == 0 {
		return reviewFetch{}, nil
	}

	ids, err := s.q.ListReviewIDsForPullRequest(ctx, database.ListReviewIDsParams{
		RepositoryID: run.repoID,
		PrNumber:     int32(pr.Number),
	})
	if err != nil {
		return reviewFetch{}, fmt.Errorf("list stored reviews for pull request %d: %w", pr.Number, err)
	}
	stored := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		stored[id] = struct{}{}
	}

	ingestedAt := s.now().UTC()
	var f reviewFetch
	for _, r := range reviews {
		p := toReviewParams(run.repoID, r, ingestedAt)
		if _, ok := stored[p.ReviewID]; ok {
			f.existing++
			continue
		}
		f.rows = append(f.rows, p)
	}
	run.logger.Debug("Fetched reviews for pull request", "number", pr.Number, "total", len(reviews), "new", len(f.rows))
	return f, nil
}
