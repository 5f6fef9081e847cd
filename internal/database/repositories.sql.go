// internal/database/repositories.sql.go
package database

import (
	"context"
)

const getRepositoryByName = `-- name: GetRepositoryByName :one
SELECT id, name, created_at FROM repositories
WHERE name = $1
LIMIT 1
`

func (q *Queries) GetRepositoryByName(ctx context.Context, name string) (Repository, error) {
	row := q.db.QueryRow(ctx, getRepositoryByName, name)
	var i Repository
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const createRepository = `-- name: CreateRepository :one
INSERT INTO repositories (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateRepository(ctx context.Context, name string) (Repository, error) {
	row := q.db.QueryRow(ctx, createRepository, name)
	var i Repository
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}
