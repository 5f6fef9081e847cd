// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github-activity-mirror/internal/database"
	custom_errors "github-activity-mirror/internal/errors"
	"github-activity-mirror/internal/model"
)

const (
	defaultConcurrency           = 5
	defaultReviewBatchSize       = 5
	defaultReviewInsertBatchSize = 20
)

// Remote is the subset of the GitHub client the syncer fetches from.
type Remote interface {
	ListBranches(ctx context.Context, repo model.RepoIdentifier) ([]model.Branch, error)
	ListCommits(ctx context.Context, repo model.RepoIdentifier, branch string, since time.Time) ([]model.Commit, error)
	ListPullRequests(ctx context.Context, repo model.RepoIdentifier, state string) ([]model.PullRequest, error)
	ListIssues(ctx context.Context, repo model.RepoIdentifier, since time.Time) ([]model.Issue, error)
	ListReviews(ctx context.Context, repo model.RepoIdentifier, number int) ([]model.Review, error)
}

// Throttler waits before a batch of requests when the API quota is nearly spent.
type Throttler interface {
	ThrottleIfLow(ctx context.Context) error
}

// Options tunes a Syncer. Zero values select the defaults.
type Options struct {
	// Interval between sync passes in Start. Zero runs a single pass.
	Interval time.Duration
	// Retention is the rolling window of history kept in the store.
	Retention time.Duration
	// Concurrency bounds in-flight branch and review fetches.
	Concurrency           int
	ReviewBatchSize       int
	ReviewInsertBatchSize int
}

func (o *Options) setDefaults() {
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.ReviewBatchSize <= 0 {
		o.ReviewBatchSize = defaultReviewBatchSize
	}
	if o.ReviewInsertBatchSize <= 0 {
		o.ReviewInsertBatchSize = defaultReviewInsertBatchSize
	}
}

// Phase is a step of a repository sync.
type Phase string

const (
	PhasePruning              Phase = "pruning"
	PhaseDeduping             Phase = "deduping"
	PhaseWindowComputation    Phase = "window_computation"
	PhaseFetchingCommits      Phase = "fetching_commits"
	PhaseFetchingPullRequests Phase = "fetching_pull_requests"
	PhaseFetchingIssues       Phase = "fetching_issues"
	PhaseFetchingReviews      Phase = "fetching_reviews"
	PhaseDone                 Phase = "done"
	PhaseErrored              Phase = "errored"
)

// KindStats counts what a sync did to one resource kind.
type KindStats struct {
	Pruned    int
	Collapsed int
	Skipped   int
	Updated   int
	Inserted  int
	Failed    int
}

func (k *KindStats) add(o insertOutcome) {
	k.Inserted += o.Inserted
	k.Failed += o.Failed
}

// RepoResult is the outcome of syncing one repository.
type RepoResult struct {
	Repo     string
	RepoID   int64
	Phase    Phase
	FailedIn Phase
	Err      error
	Stats    map[model.Kind]*KindStats
}

// Syncer orchestrates the fetching and storing of data.
type Syncer struct {
	q           database.Querier
	remote      Remote
	throttle    Throttler
	logger      *slog.Logger
	reposToSync []model.RepoIdentifier
	opts        Options
	now         func() time.Time
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(q database.Querier, remote Remote, throttle Throttler, logger *slog.Logger, repos []string, opts Options) (*Syncer, error) {
	parsedRepos, err := parseRepoIdentifiers(repos)
	if err != nil {
		return nil, err
	}
	opts.setDefaults()

	return &Syncer{
		q:           q,
		remote:      remote,
		throttle:    throttle,
		logger:      logger,
		reposToSync: parsedRepos,
		opts:        opts,
		now:         time.Now,
	}, nil
}

// Start runs sync passes until ctx is cancelled, one every Interval. With no Interval it
// runs a single pass and returns.
func (s *Syncer) Start(ctx context.Context) {
	if s.opts.Interval <= 0 {
		s.RunOnce(ctx)
		return
	}

	s.logger.Info("Starting syncer", "interval", s.opts.Interval.String(), "concurrency", s.opts.Concurrency)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// RunOnce performs one sequential synchronization pass over all configured repositories.
// A failing repository is logged and does not stop the pass.
func (s *Syncer) RunOnce(ctx context.Context) []RepoResult {
	logger := s.logger.With("run_id", uuid.NewString())
	logger.Info("Starting new sync cycle", "repositories", len(s.reposToSync))

	results := make([]RepoResult, 0, len(s.reposToSync))
	failed := 0
	for _, id := range s.reposToSync {
		if ctx.Err() != nil {
			logger.Info("Sync cycle interrupted", "reason", ctx.Err())
			break
		}
		res := s.syncRepo(ctx, logger, id)
		if res.Err != nil {
			failed++
		}
		results = append(results, res)
	}

	logger.Info("Sync cycle finished", "repositories", len(results), "failed", failed)
	return results
}

// repoRun is the state threaded through the phases of one repository sync.
type repoRun struct {
	id           model.RepoIdentifier
	repoID       int64
	cutoff       time.Time
	windows      map[model.Kind]time.Time
	pullRequests map[string][]model.PullRequest
	logger       *slog.Logger
	result       *RepoResult
}

// keepFrom is the earliest instant a fetched row of kind may have to be stored. Rows
// before the retention cutoff are never inserted, even when the fetch window reaches
// further back.
func (r *repoRun) keepFrom(kind model.Kind) time.Time {
	if w := r.windows[kind]; w.After(r.cutoff) {
		return w
	}
	return r.cutoff
}

func (r *repoRun) stats(kind model.Kind) *KindStats {
	st, ok := r.result.Stats[kind]
	if !ok {
		st = &KindStats{}
		r.result.Stats[kind] = st
	}
	return st
}

// syncRepo handles the full synchronization logic for a single repository.
func (s *Syncer) syncRepo(ctx context.Context, logger *slog.Logger, id model.RepoIdentifier) (res RepoResult) {
	res = RepoResult{Repo: id.String(), Stats: make(map[model.Kind]*KindStats)}
	run := &repoRun{
		id:           id,
		cutoff:       s.now().UTC().Add(-s.opts.Retention),
		windows:      make(map[model.Kind]time.Time, len(model.Kinds)),
		pullRequests: make(map[string][]model.PullRequest, 2),
		logger:       logger.With("repo", id.String()),
		result:       &res,
	}
	run.logger.Info("Syncing repository", "cutoff", run.cutoff)

	defer func() {
		if r := recover(); r != nil {
			res.FailedIn = res.Phase
			res.Phase = PhaseErrored
			res.Err = fmt.Errorf("panic: %v", r)
			run.logger.Error("Failed to sync repository", "phase", res.FailedIn, "error", res.Err, "stack", string(debug.Stack()))
		}
	}()

	steps := []struct {
		phase Phase
		run   func(context.Context, *repoRun) error
	}{
		{PhasePruning, s.resolveAndPrune},
		{PhaseDeduping, s.cleanDuplicates},
		{PhaseWindowComputation, s.computeWindows},
		{PhaseFetchingCommits, s.syncCommits},
		{PhaseFetchingPullRequests, s.syncPullRequests},
		{PhaseFetchingIssues, s.syncIssues},
		{PhaseFetchingReviews, s.syncReviews},
	}
	for _, step := range steps {
		res.Phase = step.phase
		run.logger.Debug("Entering phase", "phase", step.phase)
		start := time.Now()
		if err := step.run(ctx, run); err != nil {
			res.FailedIn = step.phase
			res.Phase = PhaseErrored
			res.Err = err
			run.logger.Error("Failed to sync repository", "phase", step.phase, "error", err)
			return res
		}
		run.logger.Info("Finished phase", "phase", step.phase, "duration", time.Since(start).String())
	}

	res.Phase = PhaseDone
	run.logger.Info("Processed repository")
	return res
}

// guard wraps a worker body so that a panic in its goroutine fails the repository
// instead of the process.
func guard(logger *slog.Logger, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Recovered panic in worker", "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}
}

func (s *Syncer) resolveAndPrune(ctx context.Context, run *repoRun) error {
	repo, err := s.upsertRepository(ctx, run.id.String())
	if err != nil {
		return fmt.Errorf("resolve repository: %w", err)
	}
	run.repoID = repo.ID
	run.result.RepoID = repo.ID
	run.logger = run.logger.With("repo_id", repo.ID)

	s.prune(ctx, run)
	return nil
}

// upsertRepository returns the stored repository named name, creating it on first sight.
func (s *Syncer) upsertRepository(ctx context.Context, name string) (database.Repository, error) {
	repo, err := s.q.GetRepositoryByName(ctx, name)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Repository{}, err
	}

	s.logger.Info("Repository not found in DB, creating new entry", "repo", name)
	repo, err = s.q.CreateRepository(ctx, name)
	if err != nil {
		// Another process may have created it in the meantime.
		if existing, getErr := s.q.GetRepositoryByName(ctx, name); getErr == nil {
			return existing, nil
		}
		return database.Repository{}, err
	}
	return repo, nil
}

func parseRepoIdentifiers(repos []string) ([]model.RepoIdentifier, error) {
	var identifiers []model.RepoIdentifier
	for _, r := range repos {
		parts := strings.Split(strings.TrimSpace(r), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, model.RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}
