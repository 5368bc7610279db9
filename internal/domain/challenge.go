package domain

import (
	"context"
	"time"
)

// Challenge is the aggregate stored per participant attempt. Assessment, tier
// and plan are immutable once generated; Progress is the single mutable part.
type Challenge struct {
	ID         string        `json:"challenge_id"`
	TenantID   string        `json:"tenant_id"`
	UserID     string        `json:"user_id"`
	Assessment Assessment    `json:"assessment"`
	Tier       FitnessTier   `json:"tier"`
	Plan       Plan          `json:"plan"`
	Progress   ProgressState `json:"progress"`
	Verdict    *Verdict      `json:"verdict,omitempty"`
	Version    string        `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// OutboxEvent is a domain event recorded in the same transaction as the
// mutation that produced it.
type OutboxEvent struct {
	EventType    string
	PartitionKey string
	DedupeKey    string
	Payload      interface{}
}

// Cursor models the pagination token for challenge listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ChallengeRepository captures persistence operations. Update must hold the
// single-writer lock for the challenge while mutate runs and persist the
// returned events atomically with the new state.
type ChallengeRepository interface {
	FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*Challenge, error)
	Create(ctx context.Context, challenge Challenge, idempotencyKey string, events []OutboxEvent) error
	Get(ctx context.Context, tenantID, challengeID string) (*Challenge, error)
	Update(ctx context.Context, tenantID, challengeID string, mutate func(*Challenge) ([]OutboxEvent, error)) (*Challenge, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Challenge, *Cursor, error)
}
