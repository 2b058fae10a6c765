package sqlite

import (
	"context"

	"github.com/pavohq/folio/internal/store"
)

type cacheRepo struct {
	s *Store
}

func (r *cacheRepo) Get(ctx context.Context, endpoint string) ([]byte, error) {
	var (
		payload   []byte
		fetchedAt int64
	)
	err := r.s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM cache_entries WHERE endpoint = ?`, endpoint,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	// Lazy eviction: a stale entry is deleted on read rather than by a
	// background sweeper.
	if r.s.now().UnixMilli()-fetchedAt > r.s.ttl.Milliseconds() {
		_, _ = r.s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE endpoint = ?`, endpoint)
		return nil, store.ErrNotFound
	}

	return payload, nil
}

func (r *cacheRepo) Put(ctx context.Context, endpoint string, payload []byte) error {
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (endpoint, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, endpoint, payload, r.s.now().UnixMilli())
	return err
}

func (r *cacheRepo) Invalidate(ctx context.Context, prefix string) error {
	// substr comparison instead of LIKE so endpoint metacharacters cannot
	// widen the match.
	_, err := r.s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE substr(endpoint, 1, ?) = ?`,
		len(prefix), prefix)
	return err
}

func (r *cacheRepo) InvalidateAll(ctx context.Context) error {
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}
