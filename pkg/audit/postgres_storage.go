package audit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage persists events in the audit_events table.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

var _ Storage = (*PostgresStorage)(nil)

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Store(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (id, actor_key_id, action, entity_type, entity_id, metadata, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		event.ID, event.ActorKeyID, event.Action,
		event.EntityType, event.EntityID, event.Metadata, event.CreatedAt)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (s *PostgresStorage) List(ctx context.Context, filter Filter) ([]Event, error) {
	const query = `
		SELECT id, COALESCE(actor_key_id, ''), action, entity_type, entity_id, metadata, created_at
		FROM audit_events
		WHERE ($1 = '' OR entity_type = $1)
		  AND ($2 = '' OR entity_id = $2)
		  AND ($3 = '' OR action = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`

	rows, err := s.pool.Query(ctx, query,
		filter.EntityType, filter.EntityID, filter.Action,
		filter.limit(), filter.Offset)
	if err != nil {
		return nil, errors.Join(ErrListFailed, err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ActorKeyID, &e.Action, &e.EntityType, &e.EntityID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, errors.Join(ErrListFailed, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrListFailed, err)
	}
	return events, nil
}
