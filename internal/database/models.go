// internal/database/models.go
package database

import (
	"time"
)

type Repository struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Commit struct {
	ID           int64     `db:"id" json:"id"`
	RepositoryID int64     `db:"repository_id" json:"repository_id"`
	Message      string    `db:"message" json:"message"`
	Author       string    `db:"author" json:"author"`
	CommittedAt  time.Time `db:"committed_at" json:"committed_at"`
	Branch       string    `db:"branch" json:"branch"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type PullRequest struct {
	ID                int64     `db:"id" json:"id"`
	RepositoryID      int64     `db:"repository_id" json:"repository_id"`
	Title             string    `db:"title" json:"title"`
	Author            string    `db:"author" json:"author"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	State             string    `db:"state" json:"state"`
	Number            int32     `db:"number" json:"number"`
	CreatedAtInternal time.Time `db:"created_at_internal" json:"created_at_internal"`
}

type Issue struct {
	ID           int64     `db:"id" json:"id"`
	RepositoryID int64     `db:"repository_id" json:"repository_id"`
	Title        string    `db:"title" json:"title"`
	Author       string    `db:"author" json:"author"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	Number       int32     `db:"number" json:"number"`
}

type Review struct {
	ID           int64     `db:"id" json:"id"`
	RepositoryID int64     `db:"repository_id" json:"repository_id"`
	Comment      string    `db:"comment" json:"comment"`
	Author       string    `db:"author" json:"author"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ReviewID     string    `db:"review_id" json:"review_id"`
	PrNumber     int32     `db:"pr_number" json:"pr_number"`
}
