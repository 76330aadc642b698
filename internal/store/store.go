package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/google/uuid"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store handles all database operations. Lookups that find nothing return
// a nil record and a nil error; callers decide what absence means.
type Store struct {
	db      dbtx
	conn    *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// New creates a new store instance
func New(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, conn: db, dialect: dialect, now: time.Now}
}

// FromDB is a convenience for callers holding a *database.DB.
func FromDB(db *database.DB) *Store {
	return New(db.DB, db.Dialect)
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// WithTx runs fn against a store bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.conn == nil {
		// Already inside a transaction.
		return fn(s)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &Store{db: tx, dialect: s.dialect, now: s.now}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// timestamp normalises times before they are written so SQLite's text
// comparison orders them correctly.
func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func newID() string {
	return uuid.NewString()
}

// rowsAffected returns whether the statement touched at least one row.
func rowsAffected(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// notFound folds sql.ErrNoRows into the nil/nil absence convention.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type scanner interface {
	Scan(dest ...any) error
}
