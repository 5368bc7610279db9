// Package memory stores challenges in memory for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/prouhet/reformed-fit-sub000/internal/domain"
)

type challengeKey struct {
	tenantID    string
	challengeID string
}

type idempotencyKey struct {
	tenantID string
	userID   string
	key      string
}

// Repository is an in-memory domain.ChallengeRepository. A single mutex
// serialises writers, which satisfies the single-writer-per-challenge rule.
type Repository struct {
	mu          sync.RWMutex
	challenges  map[challengeKey]domain.Challenge
	idempotency map[idempotencyKey]string
	events      []domain.OutboxEvent
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		challenges:  make(map[challengeKey]domain.Challenge),
		idempotency: make(map[idempotencyKey]string),
	}
}

// FindByIdempotency returns a previously created challenge for the key, if any.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, userID, key string) (*domain.Challenge, error) {
	if key == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idempotencyKey{tenantID, userID, key}]
	if !ok {
		return nil, nil
	}
	ch := r.challenges[challengeKey{tenantID, id}]
	return cloneChallenge(&ch), nil
}

// Create stores the challenge and buffers its events.
func (r *Repository) Create(ctx context.Context, challenge domain.Challenge, idemKey string, events []domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.challenges[challengeKey{challenge.TenantID, challenge.ID}] = *cloneChallenge(&challenge)
	if idemKey != "" {
		r.idempotency[idempotencyKey{challenge.TenantID, challenge.UserID, idemKey}] = challenge.ID
	}
	r.events = append(r.events, events...)
	return nil
}

// Get retrieves a challenge by ID.
func (r *Repository) Get(ctx context.Context, tenantID, challengeID string) (*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.challenges[challengeKey{tenantID, challengeID}]
	if !ok {
		return nil, nil
	}
	return cloneChallenge(&ch), nil
}

// Update runs mutate while holding the writer lock.
func (r *Repository) Update(ctx context.Context, tenantID, challengeID string, mutate func(*domain.Challenge) ([]domain.OutboxEvent, error)) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := challengeKey{tenantID, challengeID}
	ch, ok := r.challenges[key]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}

	working := cloneChallenge(&ch)
	events, err := mutate(working)
	if err != nil {
		return nil, err
	}

	r.challenges[key] = *cloneChallenge(working)
	r.events = append(r.events, events...)
	return working, nil
}

// ListByUser returns challenges newest-first with cursor pagination.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Challenge, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]domain.Challenge, 0)
	for key, ch := range r.challenges {
		if key.tenantID != tenantID || ch.UserID != userID {
			continue
		}
		matches = append(matches, ch)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	if cursor != nil {
		filtered := matches[:0]
		for _, ch := range matches {
			if ch.CreatedAt.Before(cursor.CreatedAt) ||
				(ch.CreatedAt.Equal(cursor.CreatedAt) && ch.ID < cursor.ID) {
				filtered = append(filtered, ch)
			}
		}
		matches = filtered
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
		last := matches[len(matches)-1]
		next := &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		return cloneSlice(matches), next, nil
	}
	return cloneSlice(matches), nil, nil
}

// Events returns the buffered outbox events, oldest first.
func (r *Repository) Events() []domain.OutboxEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.OutboxEvent, len(r.events))
	copy(out, r.events)
	return out
}

func cloneChallenge(ch *domain.Challenge) *domain.Challenge {
	out := *ch

	out.Plan.Targets = append([]domain.DailyTarget(nil), ch.Plan.Targets...)
	out.Assessment.MobilityFlags = append([]string(nil), ch.Assessment.MobilityFlags...)

	out.Progress.CheckIns = make(map[int]domain.CheckIn, len(ch.Progress.CheckIns))
	for day, ci := range ch.Progress.CheckIns {
		out.Progress.CheckIns[day] = ci
	}
	if ch.Verdict != nil {
		v := *ch.Verdict
		out.Verdict = &v
	}
	return &out
}

func cloneSlice(in []domain.Challenge) []domain.Challenge {
	out := make([]domain.Challenge, 0, len(in))
	for i := range in {
		out = append(out, *cloneChallenge(&in[i]))
	}
	return out
}
