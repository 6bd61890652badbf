package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/flagkit/pkg/pg"
)

// PostgresStore persists keys in the api_keys table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const keyColumns = `id, name, prefix, secret_hash, last_used_at, revoked_at, created_at`

func scanKey(row interface{ Scan(dest ...any) error }) (Key, error) {
	var key Key
	err := row.Scan(&key.ID, &key.Name, &key.Prefix, &key.Hash, &key.LastUsedAt, &key.RevokedAt, &key.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Key{}, ErrKeyNotFound
		}
		return Key{}, errors.Join(ErrStoreInternal, err)
	}
	return key, nil
}

func (s *PostgresStore) CreateKey(ctx context.Context, key Key) error {
	const query = `
		INSERT INTO api_keys (id, name, prefix, secret_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query, key.ID, key.Name, key.Prefix, key.Hash, key.CreatedAt)
	if err != nil {
		return errors.Join(ErrStoreInternal, err)
	}
	return nil
}

func (s *PostgresStore) GetKey(ctx context.Context, id string) (Key, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE id = $1`
	return scanKey(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetKeyByHash(ctx context.Context, hash string) (Key, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE secret_hash = $1`
	return scanKey(s.pool.QueryRow(ctx, query, hash))
}

func (s *PostgresStore) ListKeys(ctx context.Context) ([]Key, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Join(ErrStoreInternal, err)
	}
	defer rows.Close()

	keys := make([]Key, 0)
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreInternal, err)
	}
	return keys, nil
}

func (s *PostgresStore) TouchKey(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, usedAt)
	if err != nil {
		return errors.Join(ErrStoreInternal, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (s *PostgresStore) RevokeKey(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE api_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`

	tag, err := s.pool.Exec(ctx, query, id, revokedAt)
	if err != nil {
		return errors.Join(ErrStoreInternal, err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already revoked; distinguish for the caller.
		if _, err := s.GetKey(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
