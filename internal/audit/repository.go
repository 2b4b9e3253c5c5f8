package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buildmart/buildmart/internal/platform/db"
)

// chainLockKey serialises appends so every event sees its predecessor.
const chainLockKey int64 = 0x6175646974 // "audit"

const uniqueViolation = "23505"

const selectEvents = `
	SELECT event_id, actor_profile_id, resource_type, resource_id, action,
	       fields_accessed, justification, occurred_at, sequence, prev_hash, hash
	FROM audit_events
`

// Repository is the PostgreSQL audit_events store. It only inserts and reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append seals e onto the chain and inserts it in one transaction.
func (r *Repository) Append(ctx context.Context, e Event) (Event, error) {
	var stored Event
	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
			return fmt.Errorf("audit: lock chain: %w", err)
		}
		var head ChainState
		err := tx.QueryRow(ctx, `SELECT sequence, hash FROM audit_events ORDER BY sequence DESC LIMIT 1`).Scan(&head.Sequence, &head.Hash)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("audit: read chain head: %w", err)
		}
		sealed, err := Seal(e, head.Sequence, head.Hash)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_events (event_id, actor_profile_id, resource_type, resource_id, action,
			                          fields_accessed, justification, occurred_at, sequence, prev_hash, hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			sealed.EventID, sealed.ActorProfileID, sealed.ResourceType, sealed.ResourceID, string(sealed.Action),
			sealed.FieldsAccessed, sealed.Justification, sealed.OccurredAt, sealed.Sequence, sealed.PrevHash, sealed.Hash,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrDuplicateEvent
			}
			return fmt.Errorf("audit: insert event: %w", err)
		}
		stored = sealed
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	return stored, nil
}

// ListByResource returns events for one resource, newest first.
func (r *Repository) ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]Event, error) {
	return r.query(ctx, selectEvents+`WHERE resource_type = $1 AND resource_id = $2 ORDER BY sequence DESC LIMIT $3 OFFSET $4`,
		resourceType, resourceID, limit, offset)
}

// ListByActor returns events for one actor, newest first.
func (r *Repository) ListByActor(ctx context.Context, actorProfileID string, limit, offset int) ([]Event, error) {
	return r.query(ctx, selectEvents+`WHERE actor_profile_id = $1 ORDER BY sequence DESC LIMIT $2 OFFSET $3`,
		actorProfileID, limit, offset)
}

// ListAfter returns up to limit events with sequence greater than after, in
// chain order.
func (r *Repository) ListAfter(ctx context.Context, after int64, limit int) ([]Event, error) {
	return r.query(ctx, selectEvents+`WHERE sequence > $1 ORDER BY sequence ASC LIMIT $2`, after, limit)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Event, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(
			&e.EventID, &e.ActorProfileID, &e.ResourceType, &e.ResourceID, &action,
			&e.FieldsAccessed, &e.Justification, &e.OccurredAt, &e.Sequence, &e.PrevHash, &e.Hash,
		); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
