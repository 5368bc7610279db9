// Package domain implements the assessment-to-plan engine and the daily
// progress state machine for the walking challenge.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prouhet/reformed-fit-sub000/internal/events"
)

// Event types recorded through the outbox.
const (
	EventChallengeStarted      = "challenge.started"
	EventCheckInRecorded       = "challenge.checkin_recorded"
	EventChallengeStateChanged = "challenge.state_changed"
	EventChallengeCompleted    = "challenge.completed"
)

// Policies bundles the tunable thresholds of the engine. All numbers are
// product policy and can be changed without touching the algorithms.
type Policies struct {
	Tier    TierPolicy
	Plan    PlanPolicy
	Tracker TrackerPolicy
	Verdict VerdictPolicy
}

// DefaultPolicies returns the launch configuration.
func DefaultPolicies() Policies {
	return Policies{
		Tier:    DefaultTierPolicy,
		Plan:    DefaultPlanPolicy,
		Tracker: DefaultTrackerPolicy,
		Verdict: DefaultVerdictPolicy,
	}
}

// Service orchestrates challenge workflows over a repository.
type Service struct {
	repo     ChallengeRepository
	policies Policies
	now      func() time.Time
}

// NewService constructs a Service with default policies.
func NewService(repo ChallengeRepository) *Service {
	return NewServiceWithPolicies(repo, DefaultPolicies())
}

// NewServiceWithPolicies constructs a Service with explicit policies.
func NewServiceWithPolicies(repo ChallengeRepository, policies Policies) *Service {
	return &Service{repo: repo, policies: policies, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StartChallengeInput captures the payload from the API layer.
type StartChallengeInput struct {
	TenantID           string
	UserID             string
	Assessment         Assessment
	DurationDays       int
	Intensity          GoalIntensity
	AllowFutureLogging bool
	IdempotencyKey     string
}

// StartChallenge evaluates the assessment, generates the plan and persists a
// fresh challenge. Replays are detected via the idempotency key.
func (s *Service) StartChallenge(ctx context.Context, input StartChallengeInput) (*Challenge, bool, error) {
	if existing, err := s.repo.FindByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	tier, err := EvaluateAssessment(input.Assessment, s.policies.Tier)
	if err != nil {
		return nil, false, err
	}
	plan, err := GeneratePlan(tier, input.DurationDays, input.Intensity, s.policies.Plan)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	challenge := Challenge{
		ID:         uuid.NewString(),
		TenantID:   input.TenantID,
		UserID:     input.UserID,
		Assessment: input.Assessment,
		Tier:       tier,
		Plan:       plan,
		Progress:   NewProgressState(input.AllowFutureLogging),
		Version:    "v1",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	started := []OutboxEvent{{
		EventType:    EventChallengeStarted,
		PartitionKey: challenge.UserID,
		DedupeKey:    challenge.ID + ":" + EventChallengeStarted,
		Payload: events.ChallengeStarted{
			ChallengeID:  challenge.ID,
			TenantID:     challenge.TenantID,
			UserID:       challenge.UserID,
			Tier:         string(tier.Level),
			DurationDays: plan.DurationDays,
			Intensity:    string(plan.Intensity),
			StartedAt:    now,
			Version:      challenge.Version,
		},
	}}

	if err := s.repo.Create(ctx, challenge, input.IdempotencyKey, started); err != nil {
		return nil, false, err
	}
	return &challenge, false, nil
}

// RecordCheckIn drives the tracker under the repository's writer lock.
func (s *Service) RecordCheckIn(ctx context.Context, tenantID, challengeID string, dayIndex int, actual ActualWalkData) (*Challenge, error) {
	recordedAt := s.now().UTC()
	return s.repo.Update(ctx, tenantID, challengeID, func(ch *Challenge) ([]OutboxEvent, error) {
		if err := ch.Progress.RecordCheckIn(ch.Plan, dayIndex, actual, recordedAt, s.policies.Tracker); err != nil {
			return nil, err
		}
		ch.UpdatedAt = recordedAt

		ci := ch.Progress.CheckIns[dayIndex]
		out := []OutboxEvent{{
			EventType:    EventCheckInRecorded,
			PartitionKey: ch.UserID,
			DedupeKey:    fmt.Sprintf("%s:checkin:%d:%d", ch.ID, dayIndex, ci.RecordedAt.UnixNano()),
			Payload: events.CheckInRecorded{
				ChallengeID: ch.ID,
				TenantID:    ch.TenantID,
				UserID:      ch.UserID,
				DayIndex:    dayIndex,
				Steps:       ci.Steps,
				DurationMin: ci.DurationMin,
				Met:         ci.Met,
				RecordedAt:  ci.RecordedAt,
			},
		}}
		if ch.Progress.Status == StatusCompleted {
			out = append(out, s.stateChanged(ch, recordedAt, "all plan days resolved"))
		}
		return out, nil
	})
}

// AdvanceDay applies the clock collaborator's "a new day has begun" signal.
func (s *Service) AdvanceDay(ctx context.Context, tenantID, challengeID string, newDayIndex int) (*Challenge, error) {
	occurredAt := s.now().UTC()
	return s.repo.Update(ctx, tenantID, challengeID, func(ch *Challenge) ([]OutboxEvent, error) {
		wasCompleted := ch.Progress.Status == StatusCompleted
		if err := ch.Progress.AdvanceDay(ch.Plan, newDayIndex); err != nil {
			return nil, err
		}
		ch.UpdatedAt = occurredAt
		if !wasCompleted && ch.Progress.Status == StatusCompleted {
			return []OutboxEvent{s.stateChanged(ch, occurredAt, "challenge window elapsed")}, nil
		}
		return nil, nil
	})
}

// AbandonChallenge applies the explicit external cancellation signal.
func (s *Service) AbandonChallenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	occurredAt := s.now().UTC()
	return s.repo.Update(ctx, tenantID, challengeID, func(ch *Challenge) ([]OutboxEvent, error) {
		if err := ch.Progress.Abandon(); err != nil {
			return nil, err
		}
		ch.UpdatedAt = occurredAt
		return []OutboxEvent{s.stateChanged(ch, occurredAt, "abandoned by participant")}, nil
	})
}

// GetRoadmap computes the read-only roadmap projection.
func (s *Service) GetRoadmap(ctx context.Context, tenantID, challengeID string) (*RoadmapView, error) {
	ch, err := s.GetChallenge(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}
	view := ProjectRoadmap(ch.Progress, ch.Plan, s.policies.Verdict)
	return &view, nil
}

// FinalizeChallenge evaluates and persists the verdict. It fails with
// ErrChallengeNotActive while the tracker is still in progress, and returns
// the stored verdict unchanged on repeat calls.
func (s *Service) FinalizeChallenge(ctx context.Context, tenantID, challengeID string) (*Verdict, error) {
	decidedAt := s.now().UTC()
	var verdict *Verdict
	_, err := s.repo.Update(ctx, tenantID, challengeID, func(ch *Challenge) ([]OutboxEvent, error) {
		if ch.Verdict != nil {
			verdict = ch.Verdict
			return nil, nil
		}
		v, err := EvaluateCompletion(ch.Progress, ch.Plan, s.policies.Verdict, decidedAt)
		if err != nil {
			return nil, err
		}
		ch.Verdict = &v
		ch.UpdatedAt = decidedAt
		verdict = &v
		return []OutboxEvent{{
			EventType:    EventChallengeCompleted,
			PartitionKey: ch.UserID,
			DedupeKey:    ch.ID + ":" + EventChallengeCompleted,
			Payload: events.ChallengeCompleted{
				ChallengeID:     ch.ID,
				TenantID:        ch.TenantID,
				UserID:          ch.UserID,
				Outcome:         string(v.Outcome),
				Rule:            string(v.Rule),
				ComplianceRatio: v.ComplianceRatio,
				LongestStreak:   v.LongestStreak,
				DecidedAt:       v.DecidedAt,
			},
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// GetChallenge fetches by ID.
func (s *Service) GetChallenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	ch, err := s.repo.Get(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChallengeNotFound
	}
	return ch, nil
}

// ListChallengesByUser fetches challenges with cursor pagination.
func (s *Service) ListChallengesByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Challenge, *Cursor, error) {
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}

func (s *Service) stateChanged(ch *Challenge, at time.Time, reason string) OutboxEvent {
	return OutboxEvent{
		EventType:    EventChallengeStateChanged,
		PartitionKey: ch.UserID,
		DedupeKey:    ch.ID + ":state:" + string(ch.Progress.Status),
		Payload: events.ChallengeStateChanged{
			ChallengeID: ch.ID,
			TenantID:    ch.TenantID,
			UserID:      ch.UserID,
			Status:      string(ch.Progress.Status),
			OccurredAt:  at,
			Reason:      reason,
		},
	}
}
