// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"

	"github-activity-mirror/internal/database"
	"github-activity-mirror/internal/model"
)

const (
	defaultTopCommitters = 10
	maxTopCommitters     = 100
)

// Reader is the read side of the store served by the API.
type Reader interface {
	GetRepositoryByName(ctx context.Context, name string) (database.Repository, error)
	ListCommitsByRepo(ctx context.Context, repositoryID int64) ([]database.Commit, error)
	ListPullRequestsByRepo(ctx context.Context, repositoryID int64) ([]database.PullRequest, error)
	ListIssuesByRepo(ctx context.Context, repositoryID int64) ([]database.Issue, error)
	ListReviewsByRepo(ctx context.Context, repositoryID int64) ([]database.Review, error)
	GetTopCommitAuthors(ctx context.Context, arg database.GetTopCommitAuthorsParams) ([]database.GetTopCommitAuthorsRow, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db     Reader
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db Reader, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:     db,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "X-Request-ID"},
		MaxAge:         300,
	}))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1/repos/{owner}/{name}", func(r chi.Router) {
		r.Get("/commits", listHandler(h, model.KindCommit, h.db.ListCommitsByRepo))
		r.Get("/pulls", listHandler(h, model.KindPullRequest, h.db.ListPullRequestsByRepo))
		r.Get("/issues", listHandler(h, model.KindIssue, h.db.ListIssuesByRepo))
		r.Get("/reviews", listHandler(h, model.KindReview, h.db.ListReviewsByRepo))
		r.Get("/stats/top-committers", h.getTopCommitters)
	})

	return r
}

// requestLogger logs each request through the application logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("Served request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// repository resolves the {owner}/{name} URL parameters. It writes the error response
// itself and reports whether the handler should continue.
func (h *Handler) repository(w http.ResponseWriter, r *http.Request) (database.Repository, bool) {
	id := model.RepoIdentifier{Owner: chi.URLParam(r, "owner"), Name: chi.URLParam(r, "name")}

	repo, err := h.db.GetRepositoryByName(r.Context(), id.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Repository not found")
			return database.Repository{}, false
		}
		h.logger.Error("Failed to get repository", "repo", id.String(), "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return database.Repository{}, false
	}
	return repo, true
}

// listHandler serves every stored row of one kind for a repository, newest first.
// GET /v1/repos/{owner}/{name}/{commits,pulls,issues,reviews}
func listHandler[T any](h *Handler, kind model.Kind, list func(context.Context, int64) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo, ok := h.repository(w, r)
		if !ok {
			return
		}

		rows, err := list(r.Context(), repo.ID)
		if err != nil {
			h.logger.Error("Failed to list rows", "kind", kind, "repo_id", repo.ID, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if rows == nil {
			rows = []T{}
		}

		respondWithJSON(w, http.StatusOK, rows)
	}
}

// getTopCommitters handles the request for top commit authors.
// GET /v1/repos/{owner}/{name}/stats/top-committers?limit=N
func (h *Handler) getTopCommitters(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopCommitters
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 || n > maxTopCommitters {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
			return
		}
		limit = n
	}

	repo, ok := h.repository(w, r)
	if !ok {
		return
	}

	authors, err := h.db.GetTopCommitAuthors(r.Context(), database.GetTopCommitAuthorsParams{
		RepositoryID: repo.ID,
		Limit:        int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get top commit authors", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if authors == nil {
		authors = []database.GetTopCommitAuthorsRow{}
	}

	respondWithJSON(w, http.StatusOK, authors)
}
