package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pavohq/folio/internal/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
	ttl time.Duration

	// now is swapped out by tests to control cache staleness.
	now func() time.Time
}

func NewStore(dsn string, cacheTTL time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Serialize writers instead of failing fast on a locked database.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cacheTTL <= 0 {
		cacheTTL = store.DefaultCacheTTL
	}

	return &Store{
		db:  db,
		dsn: dsn,
		ttl: cacheTTL,
		now: time.Now,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Sessions() store.Sessions { return &sessionsRepo{s: s} }
func (s *Store) Cache() store.Cache       { return &cacheRepo{s: s} }

// withTx executes fn within a transaction, automatically handling
// commit/rollback.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
