package sqlite

import (
	"context"
	"database/sql"
)

// The two durable session keys. Everything else in the database is derived
// cache state.
const (
	tokenKey   = "auth_token"
	profileKey = "user_profile"
)

type sessionsRepo struct {
	s *Store
}

func (r *sessionsRepo) Token(ctx context.Context) (string, error) {
	var value string
	err := r.s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, tokenKey,
	).Scan(&value)
	if err != nil {
		return "", mapNotFound(err)
	}
	return value, nil
}

func (r *sessionsRepo) User(ctx context.Context) ([]byte, error) {
	var value []byte
	err := r.s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?`, profileKey,
	).Scan(&value)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return value, nil
}

// SetSession writes the profile row before the token row so a torn commit can
// never leave a bare token behind.
func (r *sessionsRepo) SetSession(ctx context.Context, token string, user []byte) error {
	updatedAt := r.s.now().UnixMilli()

	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertState(ctx, tx, profileKey, user, updatedAt); err != nil {
			return err
		}
		return upsertState(ctx, tx, tokenKey, []byte(token), updatedAt)
	})
}

// Clear removes the token first so no intermediate state authorizes requests,
// then the profile, then every cache entry (the cache is session-scoped).
func (r *sessionsRepo) Clear(ctx context.Context) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_state WHERE key = ?`, tokenKey); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_state WHERE key = ?`, profileKey); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`)
		return err
	})
}

func upsertState(ctx context.Context, tx *sql.Tx, key string, value []byte, updatedAt int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, updatedAt)
	return err
}
