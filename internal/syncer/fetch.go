// internal/syncer/fetch.go
package syncer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

var pullRequestStates = []string{"open", "closed"}

// syncCommits fetches commits on every branch since the commit window and stores the
// ones not already present.
func (s *Syncer) syncCommits(ctx context.Context, run *repoRun) error {
	since := run.windows[model.KindCommit]

	branches, err := s.remote.ListBranches(ctx, run.id)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	run.logger.Info("Processing branches", "count", len(branches))

	perBranch := make([][]model.Commit, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, b := range branches {
		g.Go(guard(run.logger, func() error {
			commits, err := s.remote.ListCommits(gctx, run.id, b.Name, since)
			if err != nil {
				return fmt.Errorf("list commits on branch %s: %w", b.Name, err)
			}
			perBranch[i] = commits
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	keepFrom := run.keepFrom(model.KindCommit)
	ingestedAt := s.now().UTC()
	var rows []database.CreateCommitParams
	for _, commits := range perBranch {
		for _, c := range commits {
			p := toCommitParams(run.repoID, c, ingestedAt)
			if p.CommittedAt.Before(keepFrom) {
				continue
			}
			rows = append(rows, p)
		}
	}
	if len(rows) == 0 {
		run.logger.Info("No new commits found")
		return nil
	}

	existing, err := s.q.ListCommitsByRepo(ctx, run.repoID)
	if err != nil {
		return fmt.Errorf("list stored commits: %w", err)
	}
	seen := make(map[commitKey]struct{}, len(existing))
	for _, c := range existing {
		seen[commitKey{c.RepositoryID, c.Message, c.Author, c.CommittedAt.Unix(), c.Branch}] = struct{}{}
	}

	fresh, skipped := filterNew(rows, seen, commitParamsKey)
	st := run.stats(model.KindCommit)
	st.Skipped += skipped
	st.add(insertWithFallback(ctx, run.logger, model.KindCommit, fresh, s.q.CreateCommits, s.q.CreateCommit))
	return nil
}

// syncPullRequests fetches open then closed pull requests, applies state changes to rows
// already stored and inserts the rest. The fetched lists are kept for the review phase.
func (s *Syncer) syncPullRequests(ctx context.Context, run *repoRun) error {
	keepFrom := run.keepFrom(model.KindPullRequest)

	for _, state := range pullRequestStates {
		prs, err := s.remote.ListPullRequests(ctx, run.id, state)
		if err != nil {
			return fmt.Errorf("list %s pull requests: %w", state, err)
		}
		run.pullRequests[state] = prs

		ingestedAt := s.now().UTC()
		var rows []database.CreatePullRequestParams
		for _, p := range prs {
			params := toPullRequestParams(run.repoID, p, ingestedAt)
			if params.CreatedAt.Before(keepFrom) {
				continue
			}
			rows = append(rows, params)
		}
		run.logger.Info("Filtered pull requests by date", "state", state, "fetched", len(prs), "kept", len(rows))
		if len(rows) == 0 {
			continue
		}

		if err := s.storePullRequests(ctx, run, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) storePullRequests(ctx context.Context, run *repoRun, rows []database.CreatePullRequestParams) error {
	numbers := make([]int32, len(rows))
	for i, p := range rows {
		numbers[i] = p.Number
	}
	existing, err := s.q.ListPullRequestStates(ctx, database.ListByNumbersParams{RepositoryID: run.repoID, Numbers: numbers})
	if err != nil {
		return fmt.Errorf("list stored pull requests: %w", err)
	}

	st := run.stats(model.KindPullRequest)
	seen := make(map[numberKey]struct{}, len(existing))
	states := make(map[int32]string, len(existing))
	for _, e := range existing {
		seen[numberKey{run.repoID, e.Number}] = struct{}{}
		states[e.Number] = e.State
	}

	for _, p := range rows {
		old, ok := states[p.Number]
		if !ok || old == p.State {
			continue
		}
		n, err := s.q.UpdatePullRequestState(ctx, database.UpdatePullRequestStateParams{
			RepositoryID: run.repoID,
			Number:       p.Number,
			State:        p.State,
		})
		if err != nil {
			run.logger.Error("Error updating pull request state", "number", p.Number, "state", p.State, "error", err)
			continue
		}
		states[p.Number] = p.State
		st.Updated += int(n)
	}

	fresh, skipped := filterNew(rows, seen, pullRequestParamsKey)
	st.Skipped += skipped
	st.add(insertWithFallback(ctx, run.logger, model.KindPullRequest, fresh, s.q.CreatePullRequests, s.q.CreatePullRequest))
	return nil
}

// syncIssues fetches issues updated since the issue window. Pull requests returned by the
// issues endpoint are dropped.
func (s *Syncer) syncIssues(ctx context.Context, run *repoRun) error {
	since := run.windows[model.KindIssue]

	issues, err := s.remote.ListIssues(ctx, run.id, since)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	keepFrom := run.keepFrom(model.KindIssue)
	ingestedAt := s.now().UTC()
	var rows []database.CreateIssueParams
	excluded := 0
	for _, i := range issues {
		if i.IsPullRequest {
			excluded++
			continue
		}
		p := toIssueParams(run.repoID, i, ingestedAt)
		if p.CreatedAt.Before(keepFrom) {
			continue
		}
		rows = append(rows, p)
	}
	run.logger.Info("Filtered issues", "fetched", len(issues), "pull_requests", excluded, "kept", len(rows))
	if len(rows) == 0 {
		return nil
	}

	numbers := make([]int32, len(rows))
	for i, p := range rows {
		numbers[i] = p.Number
	}
	stored, err := s.q.ListIssueNumbers(ctx, database.ListByNumbersParams{RepositoryID: run.repoID, Numbers: numbers})
	if err != nil {
		return fmt.Errorf("list stored issues: %w", err)
	}
	seen := make(map[numberKey]struct{}, len(stored))
	for _, n := range stored {
		seen[numberKey{run.repoID, n}] = struct{}{}
	}

	fresh, skipped := filterNew(rows, seen, issueParamsKey)
	st := run.stats(model.KindIssue)
	st.Skipped += skipped
	st.add(insertWithFallback(ctx, run.logger, model.KindIssue, fresh, s.q.CreateIssues, s.q.CreateIssue))
	return nil
}
