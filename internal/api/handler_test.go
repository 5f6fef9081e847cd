// internal/api/handler_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-activity-mirror/internal/database"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) GetRepositoryByName(ctx context.Context, name string) (database.Repository, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *MockReader) ListCommitsByRepo(ctx context.Context, repositoryID int64) ([]database.Commit, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.Commit), args.Error(1)
}

func (m *MockReader) ListPullRequestsByRepo(ctx context.Context, repositoryID int64) ([]database.PullRequest, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.PullRequest), args.Error(1)
}

func (m *MockReader) ListIssuesByRepo(ctx context.Context, repositoryID int64) ([]database.Issue, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.Issue), args.Error(1)
}

func (m *MockReader) ListReviewsByRepo(ctx context.Context, repositoryID int64) ([]database.Review, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]database.Review), args.Error(1)
}

func (m *MockReader) GetTopCommitAuthors(ctx context.Context, arg database.GetTopCommitAuthorsParams) ([]database.GetTopCommitAuthorsRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.GetTopCommitAuthorsRow), args.Error(1)
}

func newTestServer(t *testing.T, db Reader) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(db, logger))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, new(MockReader))

	status, body := get(t, srv, "/health")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, new(MockReader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestListCommits(t *testing.T) {
	committed := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	t.Run("returns stored commits", func(t *testing.T) {
		db := new(MockReader)
		db.On("GetRepositoryByName", mock.Anything, "octo/repo").Return(database.Repository{ID: 7, Name: "octo/repo"}, nil)
		db.On("ListCommitsByRepo", mock.Anything, int64(7)).Return([]database.Commit{
			{ID: 1, RepositoryID: 7, Message: "fix", Author: "octocat", CommittedAt: committed, Branch: "main"},
		}, nil)
		srv := newTestServer(t, db)

		status, body := get(t, srv, "/v1/repos/octo/repo/commits")

		require.Equal(t, http.StatusOK, status)
		var commits []database.Commit
		require.NoError(t, json.Unmarshal(body, &commits))
		require.Len(t, commits, 1)
		assert.Equal(t, "fix", commits[0].Message)
		assert.True(t, committed.Equal(commits[0].CommittedAt))
		db.AssertExpectations(t)
	})

	t.Run("unknown repository", func(t *testing.T) {
		db := new(MockReader)
		db.On("GetRepositoryByName", mock.Anything, "octo/missing").Return(database.Repository{}, pgx.ErrNoRows)
		srv := newTestServer(t, db)

		status, body := get(t, srv, "/v1/repos/octo/missing/commits")

		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"error":"Repository not found"}`, string(body))
		db.AssertNotCalled(t, "ListCommitsByRepo", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		db := new(MockReader)
		db.On("GetRepositoryByName", mock.Anything, "octo/repo").Return(database.Repository{ID: 7}, nil)
		db.On("ListCommitsByRepo", mock.Anything, int64(7)).Return([]database.Commit(nil), errors.New("connection reset"))
		srv := newTestServer(t, db)

		status, _ := get(t, srv, "/v1/repos/octo/repo/commits")

		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestListOtherKinds(t *testing.T) {
	db := new(MockReader)
	db.On("GetRepositoryByName", mock.Anything, "octo/repo").Return(database.Repository{ID: 7}, nil)
	db.On("ListPullRequestsByRepo", mock.Anything, int64(7)).Return([]database.PullRequest{{Number: 3, State: "open"}}, nil)
	db.On("ListIssuesByRepo", mock.Anything, int64(7)).Return([]database.Issue(nil), nil)
	db.On("ListReviewsByRepo", mock.Anything, int64(7)).Return([]database.Review{{ReviewID: "99", PrNumber: 3}}, nil)
	srv := newTestServer(t, db)

	status, body := get(t, srv, "/v1/repos/octo/repo/pulls")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"number":3`)

	status, body = get(t, srv, "/v1/repos/octo/repo/issues")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = get(t, srv, "/v1/repos/octo/repo/reviews")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"review_id":"99"`)
}

func TestGetTopCommitters(t *testing.T) {
	t.Run("uses the default limit", func(t *testing.T) {
		db := new(MockReader)
		db.On("GetRepositoryByName", mock.Anything, "octo/repo").Return(database.Repository{ID: 7}, nil)
		db.On("GetTopCommitAuthors", mock.Anything, database.GetTopCommitAuthorsParams{RepositoryID: 7, Limit: 10}).
			Return([]database.GetTopCommitAuthorsRow{{Author: "octocat", CommitCount: 12}}, nil)
		srv := newTestServer(t, db)

		status, body := get(t, srv, "/v1/repos/octo/repo/stats/top-committers")

		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[{"author":"octocat","commit_count":12}]`, string(body))
		db.AssertExpectations(t)
	})

	t.Run("honours an explicit limit", func(t *testing.T) {
		db := new(MockReader)
		db.On("GetRepositoryByName", mock.Anything, "octo/repo").Return(database.Repository{ID: 7}, nil)
		db.On("GetTopCommitAuthors", mock.Anything, database.GetTopCommitAuthorsParams{RepositoryID: 7, Limit: 3}).
			Return([]database.GetTopCommitAuthorsRow(nil), nil)
		srv := newTestServer(t, db)

		status, body := get(t, srv, "/v1/repos/octo/repo/stats/top-committers?limit=3")

		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, string(body))
	})

	for _, limit := range []string{"0", "101", "ten"} {
		t.Run("rejects limit "+limit, func(t *testing.T) {
			db := new(MockReader)
			srv := newTestServer(t, db)

			status, _ := get(t, srv, "/v1/repos/octo/repo/stats/top-committers?limit="+limit)

			assert.Equal(t, http.StatusBadRequest, status)
			db.AssertNotCalled(t, "GetRepositoryByName", mock.Anything, mock.Anything)
		})
	}
}
