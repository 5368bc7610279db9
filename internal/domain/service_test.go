package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prouhet/reformed-fit-sub000/internal/domain"
	"github.com/prouhet/reformed-fit-sub000/internal/persistence/memory"
)

func fixedClock() func() time.Time {
	base := time.Date(2026, time.May, 4, 6, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func startInput() domain.StartChallengeInput {
	return domain.StartChallengeInput{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Assessment: domain.Assessment{
			AverageDailySteps:  4000,
			WalkDurationMin:    30,
			WalkDistanceMeters: 2800,
			Exertion:           domain.ExertionLow,
		},
		DurationDays:   7,
		Intensity:      domain.IntensityMaintain,
		IdempotencyKey: "attempt-1",
	}
}

func TestStartChallengeGeneratesPlan(t *testing.T) {
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	ch, replay, err := service.StartChallenge(context.Background(), startInput())
	require.NoError(t, err)
	require.False(t, replay)
	require.Equal(t, domain.TierBeginner, ch.Tier.Level)
	require.Len(t, ch.Plan.Targets, 7)
	require.Equal(t, domain.StatusNotStarted, ch.Progress.Status)

	events := repo.Events()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventChallengeStarted, events[0].EventType)
}

func TestStartChallengeIdempotentReplay(t *testing.T) {
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	first, _, err := service.StartChallenge(context.Background(), startInput())
	require.NoError(t, err)

	second, replay, err := service.StartChallenge(context.Background(), startInput())
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, first.ID, second.ID)
}

func TestStartChallengeRejectsBadAssessment(t *testing.T) {
	repo := memory.NewRepository()
	service := domain.NewService(repo)

	input := startInput()
	input.Assessment.Exertion = "heroic"
	_, _, err := service.StartChallenge(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrInvalidAssessment)

	input = startInput()
	input.DurationDays = 9
	_, _, err = service.StartChallenge(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrUnsupportedDuration)
}

func TestFullChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	ch, _, err := service.StartChallenge(ctx, startInput())
	require.NoError(t, err)

	// Finalizing before the window closes is rejected.
	_, err = service.FinalizeChallenge(ctx, ch.TenantID, ch.ID)
	require.ErrorIs(t, err, domain.ErrChallengeNotActive)

	for day := 1; day <= ch.Plan.DurationDays; day++ {
		target, ok := ch.Plan.Target(day)
		require.True(t, ok)
		updated, err := service.RecordCheckIn(ctx, ch.TenantID, ch.ID, day, domain.ActualWalkData{
			Steps:       target.Steps,
			DurationMin: target.DurationMin,
		})
		require.NoError(t, err)
		if day < ch.Plan.DurationDays {
			require.Equal(t, domain.StatusInProgress, updated.Progress.Status)
		} else {
			require.Equal(t, domain.StatusCompleted, updated.Progress.Status)
		}
	}

	verdict, err := service.FinalizeChallenge(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, verdict.Outcome)
	require.Equal(t, domain.RuleThresholdsMet, verdict.Rule)
	require.InDelta(t, 1.0, verdict.ComplianceRatio, 1e-9)

	// A second finalize returns the stored verdict unchanged.
	again, err := service.FinalizeChallenge(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)
	require.Equal(t, verdict, again)

	var types []string
	for _, ev := range repo.Events() {
		types = append(types, ev.EventType)
	}
	require.Contains(t, types, domain.EventChallengeStarted)
	require.Contains(t, types, domain.EventChallengeStateChanged)
	require.Contains(t, types, domain.EventChallengeCompleted)
}

func TestAbandonForcesIncompleteVerdict(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	ch, _, err := service.StartChallenge(ctx, startInput())
	require.NoError(t, err)

	// Perfect compliance so far.
	for day := 1; day <= 3; day++ {
		target, _ := ch.Plan.Target(day)
		_, err := service.RecordCheckIn(ctx, ch.TenantID, ch.ID, day, domain.ActualWalkData{
			Steps:       target.Steps,
			DurationMin: target.DurationMin,
		})
		require.NoError(t, err)
	}

	_, err = service.AbandonChallenge(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)

	_, err = service.RecordCheckIn(ctx, ch.TenantID, ch.ID, 4, domain.ActualWalkData{Steps: 10000, DurationMin: 90})
	require.ErrorIs(t, err, domain.ErrChallengeNotActive)

	verdict, err := service.FinalizeChallenge(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeIncomplete, verdict.Outcome)
	require.Equal(t, domain.RuleAbandoned, verdict.Rule)
}

func TestAdvanceDayCompletesChallengeWithMissedDays(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	ch, _, err := service.StartChallenge(ctx, startInput())
	require.NoError(t, err)

	_, err = service.AdvanceDay(ctx, ch.TenantID, ch.ID, 1)
	require.NoError(t, err)
	updated, err := service.AdvanceDay(ctx, ch.TenantID, ch.ID, ch.Plan.DurationDays+1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, updated.Progress.Status)

	verdict, err := service.FinalizeChallenge(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeIncomplete, verdict.Outcome)
	require.Equal(t, domain.RuleComplianceLow, verdict.Rule)
}

func TestGetRoadmapAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	service := domain.NewService(repo).WithClock(fixedClock())

	ch, _, err := service.StartChallenge(ctx, startInput())
	require.NoError(t, err)

	view, err := service.GetRoadmap(ctx, ch.TenantID, ch.ID)
	require.NoError(t, err)
	require.Equal(t, ch.Plan.DurationDays, view.DaysRemaining)

	_, err = service.GetRoadmap(ctx, ch.TenantID, "missing")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestListChallengesByUserPaginates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	service := domain.NewService(repo)

	for i := 0; i < 3; i++ {
		input := startInput()
		input.IdempotencyKey = ""
		_, _, err := service.StartChallenge(ctx, input)
		require.NoError(t, err)
	}

	page, next, err := service.ListChallengesByUser(ctx, "tenant-1", "user-1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)

	rest, _, err := service.ListChallengesByUser(ctx, "tenant-1", "user-1", next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}
