// internal/model/models.go
package model

import (
	"fmt"
	"time"
)

// Kind identifies one of the mirrored resource kinds. The value doubles as the table name.
type Kind string

const (
	KindCommit      Kind = "commits"
	KindPullRequest Kind = "pull_requests"
	KindIssue       Kind = "issues"
	KindReview      Kind = "reviews"
)

// Kinds lists every mirrored resource kind in sync order.
var Kinds = []Kind{KindCommit, KindPullRequest, KindIssue, KindReview}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

// String returns the "owner/name" form used as the repository's natural key.
func (r RepoIdentifier) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

type Branch struct {
	Name string
}

// Commit is a commit as listed on one branch.
type Commit struct {
	SHA        string
	Branch     string
	Message    string
	AuthorName string
	AuthoredAt time.Time
}

type PullRequest struct {
	Number    int
	Title     string
	Author    string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Issue is a repository issue. GitHub lists pull requests on the issues endpoint too;
// IsPullRequest marks those records.
type Issue struct {
	Number        int
	Title         string
	Author        string
	CreatedAt     time.Time
	IsPullRequest bool
}

type Review struct {
	ID          int64
	PRNumber    int
	Body        string
	Author      string
	SubmittedAt time.Time
}
