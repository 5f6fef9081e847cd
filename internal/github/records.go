// internal/github/records.go
package github

import (
	"github.com/google/go-github/v62/github"

	custom_errors "github-activity-mirror/internal/errors"
	"github-activity-mirror/internal/model"
)

// toInternalCommit translates a github.RepositoryCommit listed on branch to our internal model.Commit.
func toInternalCommit(c *github.RepositoryCommit, branch string) (model.Commit, error) {
	if c == nil || c.Commit == nil {
		return model.Commit{}, &custom_errors.ErrMalformedRecord{Kind: "commit", Reason: "missing commit payload"}
	}
	return model.Commit{
		SHA:        c.GetSHA(),
		Branch:     branch,
		Message:    c.GetCommit().GetMessage(),
		AuthorName: c.GetCommit().GetAuthor().GetName(),
		AuthoredAt: c.GetCommit().GetAuthor().GetDate().Time,
	}, nil
}

func toInternalPullRequest(p *github.PullRequest) (model.PullRequest, error) {
	if p == nil || p.GetNumber() == 0 {
		return model.PullRequest{}, &custom_errors.ErrMalformedRecord{Kind: "pull request", Reason: "missing number"}
	}
	return model.PullRequest{
		Number:    p.GetNumber(),
		Title:     p.GetTitle(),
		Author:    p.GetUser().GetLogin(),
		State:     p.GetState(),
		CreatedAt: p.GetCreatedAt().Time,
		UpdatedAt: p.GetUpdatedAt().Time,
	}, nil
}

func toInternalIssue(i *github.Issue) (model.Issue, error) {
	if i == nil || i.GetNumber() == 0 {
		return model.Issue{}, &custom_errors.ErrMalformedRecord{Kind: "issue", Reason: "missing number"}
	}
	return model.Issue{
		Number:        i.GetNumber(),
		Title:         i.GetTitle(),
		Author:        i.GetUser().GetLogin(),
		CreatedAt:     i.GetCreatedAt().Time,
		IsPullRequest: i.IsPullRequest(),
	}, nil
}

func toInternalReview(r *github.PullRequestReview, prNumber int) (model.Review, error) {
	if r == nil || r.GetID() == 0 {
		return model.Review{}, &custom_errors.ErrMalformedRecord{Kind: "review", Reason: "missing id"}
	}
	return model.Review{
		ID:          r.GetID(),
		PRNumber:    prNumber,
		Body:        r.GetBody(),
		Author:      r.GetUser().GetLogin(),
		SubmittedAt: r.GetSubmittedAt().Time,
	}, nil
}
