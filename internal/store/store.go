package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres SQLSTATE codes
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *sqlx.DB and *sqlx.Tx
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Queries implements Tx on top of a connection or a transaction
type Queries struct {
	q querier
}

// Store is the Postgres Repository. Outside a transaction it runs Queries
// against the pool; WithTx scopes them to one transaction.
type Store struct {
	*Queries
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{Queries: &Queries{q: db}, db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a single database transaction, rolling back on error
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// getOne runs a single-row query, mapping sql.ErrNoRows to ErrNotFound
func (q *Queries) getOne(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := q.q.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
		return ErrNotFound
	}
	return err
}

// isMalformedID reports an id that Postgres could not parse as a UUID; no
// record can have it.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

// execOne runs a statement that must affect exactly one row
func (q *Queries) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := q.q.ExecContext(ctx, query, args...)
	if isMalformedID(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// where accumulates filter clauses written with ? placeholders
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) addTimeRange(column string, from, to *time.Time) {
	if from != nil {
		w.add(column+" >= ?", *from)
	}
	if to != nil {
		w.add(column+" <= ?", *to)
	}
}

// build appends the WHERE clause and suffix, expands IN lists and rebinds to $n placeholders
func (w *where) build(base, suffix string) (string, []interface{}, error) {
	query := base
	if len(w.clauses) > 0 {
		query += " WHERE " + strings.Join(w.clauses, " AND ")
	}
	if suffix != "" {
		query += " " + suffix
	}
	query, args, err := sqlx.In(query, w.args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args, nil
}

func likePattern(search string) string {
	return "%" + search + "%"
}
