// internal/github/endpoints.go
package github

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/go-github/v62/github"

	"github-activity-mirror/internal/model"
)

func repoPath(repo model.RepoIdentifier, suffix string) string {
	return fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(repo.Owner), url.PathEscape(repo.Name), suffix)
}

// ListBranches returns every branch of the repository.
func (c *Client) ListBranches(ctx context.Context, repo model.RepoIdentifier) ([]model.Branch, error) {
	raw, err := fetchAll[*github.Branch](ctx, c, repoPath(repo, "branches"), nil)
	branches := make([]model.Branch, 0, len(raw))
	for _, b := range raw {
		if b.GetName() == "" {
			continue
		}
		branches = append(branches, model.Branch{Name: b.GetName()})
	}
	return branches, err
}

// ListCommits returns the commits reachable from branch that were made at or after since.
func (c *Client) ListCommits(ctx context.Context, repo model.RepoIdentifier, branch string, since time.Time) ([]model.Commit, error) {
	q := url.Values{}
	q.Set("sha", branch)
	q.Set("since", since.UTC().Format(time.RFC3339))

	raw, err := fetchAll[*github.RepositoryCommit](ctx, c, repoPath(repo, "commits"), q)
	commits := make([]model.Commit, 0, len(raw))
	for _, rc := range raw {
		commit, perr := toInternalCommit(rc, branch)
		if perr != nil {
			c.logger.Warn("Skipping commit", "repo", repo.String(), "branch", branch, "error", perr)
			continue
		}
		commits = append(commits, commit)
	}
	return commits, err
}

// ListPullRequests returns the pull requests in state ("open" or "closed"), most recently
// updated first. The endpoint has no date filter.
func (c *Client) ListPullRequests(ctx context.Context, repo model.RepoIdentifier, state string) ([]model.PullRequest, error) {
	q := url.Values{}
	q.Set("state", state)
	q.Set("sort", "updated")
	q.Set("direction", "desc")

	raw, err := fetchAll[*github.PullRequest](ctx, c, repoPath(repo, "pulls"), q)
	prs := make([]model.PullRequest, 0, len(raw))
	for _, p := range raw {
		pr, perr := toInternalPullRequest(p)
		if perr != nil {
			c.logger.Warn("Skipping pull request", "repo", repo.String(), "error", perr)
			continue
		}
		prs = append(prs, pr)
	}
	return prs, err
}

// ListIssues returns issues updated at or after since. Pull-request-backed issues are
// included and flagged; callers decide whether to keep them.
func (c *Client) ListIssues(ctx context.Context, repo model.RepoIdentifier, since time.Time) ([]model.Issue, error) {
	q := url.Values{}
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	q.Set("since", since.UTC().Format(time.RFC3339))

	raw, err := fetchAll[*github.Issue](ctx, c, repoPath(repo, "issues"), q)
	issues := make([]model.Issue, 0, len(raw))
	for _, i := range raw {
		issue, perr := toInternalIssue(i)
		if perr != nil {
			c.logger.Warn("Skipping issue", "repo", repo.String(), "error", perr)
			continue
		}
		issues = append(issues, issue)
	}
	return issues, err
}

// ListReviews returns every review on pull request number.
func (c *Client) ListReviews(ctx context.Context, repo model.RepoIdentifier, number int) ([]model.Review, error) {
	raw, err := fetchAll[*github.PullRequestReview](ctx, c, repoPath(repo, fmt.Sprintf("pulls/%d/reviews", number)), nil)
	reviews := make([]model.Review, 0, len(raw))
	for _, r := range raw {
		review, perr := toInternalReview(r, number)
		if perr != nil {
			c.logger.Warn("Skipping review", "repo", repo.String(), "pr", number, "error", perr)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, err
}
