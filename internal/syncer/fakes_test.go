// internal/syncer/fakes_test.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var errCopyFailed = errors.New("copy failed")

// memStore is an in-memory database.Querier with the same semantics as the SQL queries.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	repos   map[string]database.Repository
	commits []database.Commit
	prs     []database.PullRequest
	issues  []database.Issue
	reviews []database.Review

	failBulk   map[model.Kind]bool
	failSingle func(row any) bool
	deleteErr  error

	// reviewBulkSizes records the size of every CreateReviews call; failReviewBulk names
	// the 1-based calls that fail.
	reviewBulkSizes   []int
	failReviewBulk    map[int]bool
	singleReviewCalls int
}

func newMemStore() *memStore {
	return &memStore{repos: make(map[string]database.Repository), failBulk: make(map[model.Kind]bool)}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) GetRepositoryByName(_ context.Context, name string) (database.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.repos[name]
	if !ok {
		return database.Repository{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memStore) CreateRepository(_ context.Context, name string) (database.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[name]; ok {
		return database.Repository{}, fmt.Errorf("duplicate repository %s", name)
	}
	r := database.Repository{ID: m.id(), Name: name, CreatedAt: time.Now()}
	m.repos[name] = r
	return r, nil
}

func deleteWhere[T any](m *memStore, rows *[]T, match func(T) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	before := len(*rows)
	*rows = slices.DeleteFunc(*rows, match)
	return int64(before - len(*rows)), nil
}

func (m *memStore) DeleteCommitsBefore(_ context.Context, arg database.PruneParams) (int64, error) {
	return deleteWhere(m, &m.commits, func(c database.Commit) bool {
		return c.RepositoryID == arg.RepositoryID && c.CommittedAt.Before(arg.Before)
	})
}

func (m *memStore) DeletePullRequestsBefore(_ context.Context, arg database.PruneParams) (int64, error) {
	return deleteWhere(m, &m.prs, func(p database.PullRequest) bool {
		return p.RepositoryID == arg.RepositoryID && p.CreatedAt.Before(arg.Before)
	})
}

func (m *memStore) DeleteIssuesBefore(_ context.Context, arg database.PruneParams) (int64, error) {
	return deleteWhere(m, &m.issues, func(i database.Issue) bool {
		return i.RepositoryID == arg.RepositoryID && i.CreatedAt.Before(arg.Before)
	})
}

func (m *memStore) DeleteReviewsBefore(_ context.Context, arg database.PruneParams) (int64, error) {
	return deleteWhere(m, &m.reviews, func(r database.Review) bool {
		return r.RepositoryID == arg.RepositoryID && r.CreatedAt.Before(arg.Before)
	})
}

func listWhere[T any](m *memStore, rows []T, match func(T) bool) []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for _, r := range rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) ListCommitsByRepo(_ context.Context, repoID int64) ([]database.Commit, error) {
	return listWhere(m, m.commits, func(c database.Commit) bool { return c.RepositoryID == repoID }), nil
}

func (m *memStore) ListPullRequestsByRepo(_ context.Context, repoID int64) ([]database.PullRequest, error) {
	return listWhere(m, m.prs, func(p database.PullRequest) bool { return p.RepositoryID == repoID }), nil
}

func (m *memStore) ListIssuesByRepo(_ context.Context, repoID int64) ([]database.Issue, error) {
	return listWhere(m, m.issues, func(i database.Issue) bool { return i.RepositoryID == repoID }), nil
}

func (m *memStore) ListReviewsByRepo(_ context.Context, repoID int64) ([]database.Review, error) {
	return listWhere(m, m.reviews, func(r database.Review) bool { return r.RepositoryID == repoID }), nil
}

func (m *memStore) DeleteCommitsByID(_ context.Context, ids []int64) (int64, error) {
	return deleteWhere(m, &m.commits, func(c database.Commit) bool { return slices.Contains(ids, c.ID) })
}

func (m *memStore) DeletePullRequestsByID(_ context.Context, ids []int64) (int64, error) {
	return deleteWhere(m, &m.prs, func(p database.PullRequest) bool { return slices.Contains(ids, p.ID) })
}

func (m *memStore) DeleteIssuesByID(_ context.Context, ids []int64) (int64, error) {
	return deleteWhere(m, &m.issues, func(i database.Issue) bool { return slices.Contains(ids, i.ID) })
}

func (m *memStore) DeleteReviewsByID(_ context.Context, ids []int64) (int64, error) {
	return deleteWhere(m, &m.reviews, func(r database.Review) bool { return slices.Contains(ids, r.ID) })
}

func latest(times []time.Time) pgtype.Timestamptz {
	if len(times) == 0 {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: slices.MaxFunc(times, func(a, b time.Time) int { return a.Compare(b) }), Valid: true}
}

func (m *memStore) GetLatestCommitDate(_ context.Context, repoID int64) (pgtype.Timestamptz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []time.Time
	for _, c := range m.commits {
		if c.RepositoryID == repoID {
			ts = append(ts, c.CommittedAt)
		}
	}
	return latest(ts), nil
}

func (m *memStore) GetLatestPullRequestDate(_ context.Context, repoID int64) (pgtype.Timestamptz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []time.Time
	for _, p := range m.prs {
		if p.RepositoryID == repoID {
			ts = append(ts, p.CreatedAt)
		}
	}
	return latest(ts), nil
}

func (m *memStore) GetLatestIssueDate(_ context.Context, repoID int64) (pgtype.Timestamptz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []time.Time
	for _, i := range m.issues {
		if i.RepositoryID == repoID {
			ts = append(ts, i.CreatedAt)
		}
	}
	return latest(ts), nil
}

func (m *memStore) GetLatestReviewDate(_ context.Context, repoID int64) (pgtype.Timestamptz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts []time.Time
	for _, r := range m.reviews {
		if r.RepositoryID == repoID {
			ts = append(ts, r.CreatedAt)
		}
	}
	return latest(ts), nil
}

func (m *memStore) ListPullRequestStates(_ context.Context, arg database.ListByNumbersParams) ([]database.PullRequestStateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.PullRequestStateRow
	for _, p := range m.prs {
		if p.RepositoryID == arg.RepositoryID && slices.Contains(arg.Numbers, p.Number) {
			out = append(out, database.PullRequestStateRow{Number: p.Number, State: p.State})
		}
	}
	return out, nil
}

func (m *memStore) UpdatePullRequestState(_ context.Context, arg database.UpdatePullRequestStateParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.prs {
		if m.prs[i].RepositoryID == arg.RepositoryID && m.prs[i].Number == arg.Number {
			m.prs[i].State = arg.State
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListIssueNumbers(_ context.Context, arg database.ListByNumbersParams) ([]int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int32
	for _, i := range m.issues {
		if i.RepositoryID == arg.RepositoryID && slices.Contains(arg.Numbers, i.Number) {
			out = append(out, i.Number)
		}
	}
	return out, nil
}

func (m *memStore) ListReviewIDsForPullRequest(_ context.Context, arg database.ListReviewIDsParams) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.reviews {
		if r.RepositoryID == arg.RepositoryID && r.PrNumber == arg.PrNumber {
			out = append(out, r.ReviewID)
		}
	}
	return out, nil
}

func (m *memStore) singleFails(row any) bool {
	return m.failSingle != nil && m.failSingle(row)
}

func (m *memStore) CreateCommits(ctx context.Context, arg []database.CreateCommitParams) (int64, error) {
	if m.failBulk[model.KindCommit] {
		return 0, errCopyFailed
	}
	for _, p := range arg {
		if err := m.CreateCommit(ctx, p); err != nil {
			return 0, err
		}
	}
	return int64(len(arg)), nil
}

func (m *memStore) CreateCommit(_ context.Context, p database.CreateCommitParams) error {
	if m.singleFails(p) {
		return errors.New("insert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, database.Commit{
		ID: m.id(), RepositoryID: p.RepositoryID, Message: p.Message, Author: p.Author,
		CommittedAt: p.CommittedAt, Branch: p.Branch, CreatedAt: p.CreatedAt,
	})
	return nil
}

func (m *memStore) CreatePullRequests(ctx context.Context, arg []database.CreatePullRequestParams) (int64, error) {
	if m.failBulk[model.KindPullRequest] {
		return 0, errCopyFailed
	}
	for _, p := range arg {
		if err := m.CreatePullRequest(ctx, p); err != nil {
			return 0, err
		}
	}
	return int64(len(arg)), nil
}

func (m *memStore) CreatePullRequest(_ context.Context, p database.CreatePullRequestParams) error {
	if m.singleFails(p) {
		return errors.New("insert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prs = append(m.prs, database.PullRequest{
		ID: m.id(), RepositoryID: p.RepositoryID, Title: p.Title, Author: p.Author,
		CreatedAt: p.CreatedAt, State: p.State, Number: p.Number, CreatedAtInternal: p.CreatedAtInternal,
	})
	return nil
}

func (m *memStore) CreateIssues(ctx context.Context, arg []database.CreateIssueParams) (int64, error) {
	if m.failBulk[model.KindIssue] {
		return 0, errCopyFailed
	}
	for _, p := range arg {
		if err := m.CreateIssue(ctx, p); err != nil {
			return 0, err
		}
	}
	return int64(len(arg)), nil
}

func (m *memStore) CreateIssue(_ context.Context, p database.CreateIssueParams) error {
	if m.singleFails(p) {
		return errors.New("insert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append(m.issues, database.Issue{
		ID: m.id(), RepositoryID: p.RepositoryID, Title: p.Title, Author: p.Author,
		CreatedAt: p.CreatedAt, Number: p.Number,
	})
	return nil
}

func (m *memStore) CreateReviews(_ context.Context, arg []database.CreateReviewParams) (int64, error) {
	m.mu.Lock()
	m.reviewBulkSizes = append(m.reviewBulkSizes, len(arg))
	failed := m.failBulk[model.KindReview] || m.failReviewBulk[len(m.reviewBulkSizes)]
	m.mu.Unlock()
	if failed {
		return 0, errCopyFailed
	}
	for _, p := range arg {
		if err := m.insertReview(p); err != nil {
			return 0, err
		}
	}
	return int64(len(arg)), nil
}

func (m *memStore) CreateReview(_ context.Context, p database.CreateReviewParams) error {
	m.mu.Lock()
	m.singleReviewCalls++
	m.mu.Unlock()
	return m.insertReview(p)
}

func (m *memStore) insertReview(p database.CreateReviewParams) error {
	if m.singleFails(p) {
		return errors.New("insert failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, database.Review{
		ID: m.id(), RepositoryID: p.RepositoryID, Comment: p.Comment, Author: p.Author,
		CreatedAt: p.CreatedAt, ReviewID: p.ReviewID, PrNumber: p.PrNumber,
	})
	return nil
}

func (m *memStore) GetTopCommitAuthors(context.Context, database.GetTopCommitAuthorsParams) ([]database.GetTopCommitAuthorsRow, error) {
	return nil, errors.New("not implemented")
}

var _ database.Querier = (*memStore)(nil)

// fakeRepo is the remote state of one repository.
type fakeRepo struct {
	branches []model.Branch
	commits  map[string][]model.Commit
	pulls    map[string][]model.PullRequest
	issues   []model.Issue
	reviews  map[int][]model.Review
	err      error
	panics   bool

	// workerPanic makes ListCommits ("commits") or ListReviews ("reviews") panic.
	workerPanic string
}

type fakeRemote struct {
	repos       map[string]*fakeRepo
	reviewCalls atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{repos: make(map[string]*fakeRepo)}
}

func (f *fakeRemote) repo(id model.RepoIdentifier) (*fakeRepo, error) {
	r, ok := f.repos[id.String()]
	if !ok {
		return nil, fmt.Errorf("repository %s not found", id)
	}
	if r.panics {
		panic("remote exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return r, nil
}

func (f *fakeRemote) ListBranches(_ context.Context, id model.RepoIdentifier) ([]model.Branch, error) {
	r, err := f.repo(id)
	if err != nil {
		return nil, err
	}
	return r.branches, nil
}

func (f *fakeRemote) ListCommits(_ context.Context, id model.RepoIdentifier, branch string, _ time.Time) ([]model.Commit, error) {
	r, err := f.repo(id)
	if err != nil {
		return nil, err
	}
	if r.workerPanic == "commits" {
		panic("branch fetch exploded")
	}
	return r.commits[branch], nil
}

func (f *fakeRemote) ListPullRequests(_ context.Context, id model.RepoIdentifier, state string) ([]model.PullRequest, error) {
	r, err := f.repo(id)
	if err != nil {
		return nil, err
	}
	return r.pulls[state], nil
}

func (f *fakeRemote) ListIssues(_ context.Context, id model.RepoIdentifier, _ time.Time) ([]model.Issue, error) {
	r, err := f.repo(id)
	if err != nil {
		return nil, err
	}
	return r.issues, nil
}

func (f *fakeRemote) ListReviews(_ context.Context, id model.RepoIdentifier, number int) ([]model.Review, error) {
	f.reviewCalls.Add(1)
	r, err := f.repo(id)
	if err != nil {
		return nil, err
	}
	if r.workerPanic == "reviews" {
		panic("review fetch exploded")
	}
	return r.reviews[number], nil
}

type countingThrottler struct {
	calls atomic.Int32
}

func (c *countingThrottler) ThrottleIfLow(context.Context) error {
	c.calls.Add(1)
	return nil
}
