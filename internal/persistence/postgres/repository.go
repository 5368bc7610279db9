// Package postgres provides pgx-backed persistence for challenges and their
// outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prouhet/reformed-fit-sub000/internal/domain"
	"github.com/prouhet/reformed-fit-sub000/internal/observability"
)

// Repository stores the challenge aggregate as JSONB documents keyed by
// tenant and challenge ID. Update holds a row lock for the duration of the
// mutation, which is the single-writer guarantee the engine relies on.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const challengeColumns = `challenge_id, tenant_id, user_id, assessment, tier, plan, progress, verdict, status, version, created_at, updated_at`

// FindByIdempotency checks if a challenge already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.Challenge, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + challengeColumns + `
        FROM challenges WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`

	row := r.pool.QueryRow(ctx, query, tenantID, userID, idempotencyKey)
	ch, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

// Create persists the aggregate and records outbox events inside a single transaction.
func (r *Repository) Create(ctx context.Context, challenge domain.Challenge, idempotencyKey string, events []domain.OutboxEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	assessment, tier, plan, progress, verdict, err := marshalDocs(&challenge)
	if err != nil {
		return err
	}

	const insertChallenge = `INSERT INTO challenges
        (challenge_id, tenant_id, user_id, idempotency_key, assessment, tier, plan, progress, verdict, status, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err = tx.Exec(ctx, insertChallenge,
		challenge.ID,
		challenge.TenantID,
		challenge.UserID,
		nullIfEmpty(idempotencyKey),
		assessment,
		tier,
		plan,
		progress,
		verdict,
		challenge.Progress.Status,
		challenge.Version,
		challenge.CreatedAt,
		challenge.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, &challenge, events); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordChallengePersisted(challenge.UpdatedAt)
	return nil
}

// Get retrieves a challenge by ID.
func (r *Repository) Get(ctx context.Context, tenantID, challengeID string) (*domain.Challenge, error) {
	query := `SELECT ` + challengeColumns + `
        FROM challenges WHERE tenant_id=$1 AND challenge_id=$2`

	row := r.pool.QueryRow(ctx, query, tenantID, challengeID)
	ch, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

// Update loads the challenge under a row lock, applies mutate, and persists
// the new state together with the returned events.
func (r *Repository) Update(ctx context.Context, tenantID, challengeID string, mutate func(*domain.Challenge) ([]domain.OutboxEvent, error)) (*domain.Challenge, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	query := `SELECT ` + challengeColumns + `
        FROM challenges WHERE tenant_id=$1 AND challenge_id=$2 FOR UPDATE`

	row := tx.QueryRow(ctx, query, tenantID, challengeID)
	ch, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrChallengeNotFound
		}
		return nil, err
	}

	events, err := mutate(ch)
	if err != nil {
		return nil, err
	}

	_, _, _, progress, verdict, err := marshalDocs(ch)
	if err != nil {
		return nil, err
	}

	const updateChallenge = `UPDATE challenges
        SET progress=$3, verdict=$4, status=$5, updated_at=$6
        WHERE tenant_id=$1 AND challenge_id=$2`

	if _, err = tx.Exec(ctx, updateChallenge,
		tenantID,
		challengeID,
		progress,
		verdict,
		ch.Progress.Status,
		ch.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err = insertOutbox(ctx, tx, ch, events); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordChallengePersisted(ch.UpdatedAt)
	return ch, nil
}

// ListByUser returns challenges for a user ordered by creation time.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Challenge, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + challengeColumns + `
        FROM challenges WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (created_at, challenge_id) < ($4, $5)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, challenge_id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	challenges := make([]domain.Challenge, 0, limit)
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, nil, err
		}
		challenges = append(challenges, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(challenges) == limit {
		last := challenges[len(challenges)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return challenges, next, nil
}

// EventMetadata describes routing for an outbox event type.
type EventMetadata struct {
	Topic string
}

var eventCatalog = map[string]EventMetadata{
	domain.EventChallengeStarted:      {Topic: "challenge_events"},
	domain.EventChallengeStateChanged: {Topic: "challenge_events"},
	domain.EventChallengeCompleted:    {Topic: "challenge_events"},
	domain.EventCheckInRecorded:       {Topic: "challenge_checkins"},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, challenge *domain.Challenge, events []domain.OutboxEvent) error {
	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	for _, event := range events {
		meta := eventCatalog[event.EventType]
		if meta.Topic == "" {
			return fmt.Errorf("unknown event type: %s", event.EventType)
		}

		body, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, stmt,
			challenge.TenantID,
			"challenge",
			challenge.ID,
			event.EventType,
			meta.Topic,
			event.PartitionKey,
			body,
			event.DedupeKey,
		); err != nil {
			return err
		}
	}
	return nil
}

func marshalDocs(ch *domain.Challenge) (assessment, tier, plan, progress, verdict []byte, err error) {
	if assessment, err = json.Marshal(ch.Assessment); err != nil {
		return
	}
	if tier, err = json.Marshal(ch.Tier); err != nil {
		return
	}
	if plan, err = json.Marshal(ch.Plan); err != nil {
		return
	}
	if progress, err = json.Marshal(ch.Progress); err != nil {
		return
	}
	if ch.Verdict != nil {
		verdict, err = json.Marshal(ch.Verdict)
	}
	return
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var (
		ch         domain.Challenge
		assessment []byte
		tier       []byte
		plan       []byte
		progress   []byte
		verdict    []byte
		status     string
	)
	if err := row.Scan(&ch.ID, &ch.TenantID, &ch.UserID, &assessment, &tier, &plan, &progress, &verdict, &status, &ch.Version, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(assessment, &ch.Assessment); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tier, &ch.Tier); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plan, &ch.Plan); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(progress, &ch.Progress); err != nil {
		return nil, err
	}
	if len(verdict) > 0 {
		ch.Verdict = &domain.Verdict{}
		if err := json.Unmarshal(verdict, ch.Verdict); err != nil {
			return nil, err
		}
	}
	if ch.Progress.CheckIns == nil {
		ch.Progress.CheckIns = map[int]domain.CheckIn{}
	}
	return &ch, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
