package database

import (
	"database/sql"
	"errors"

	"ecocollect-backend/internal/lifecycle"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the sqlx-backed implementation of the lifecycle store contracts.
// Writes are optimistic: every UPDATE carries WHERE version = $n and bumps
// the version; zero rows affected means either the row vanished or someone
// else wrote first, which resolveWriteMiss tells apart.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// resolveWriteMiss classifies a version-checked UPDATE that matched no rows:
// conflict when the row still exists, not-found when it does not. exists
// should query by primary key only.
func (s *Store) resolveWriteMiss(kind lifecycle.EntityKind, table, idColumn, id string) error {
	var one int
	err := s.db.Get(&one, "SELECT 1 FROM "+table+" WHERE "+idColumn+" = $1", id)
	if err == nil {
		return &lifecycle.ConflictError{Entity: kind, ID: id}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &lifecycle.NotFoundError{Entity: kind, ID: id}
	}
	return err
}
