package domain

import (
	"fmt"
	"time"
)

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	StatusNotStarted ChallengeStatus = "not_started"
	StatusInProgress ChallengeStatus = "in_progress"
	StatusCompleted  ChallengeStatus = "completed"
	StatusAbandoned  ChallengeStatus = "abandoned"
)

// Terminal reports whether the lifecycle has finished.
func (s ChallengeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// ActualWalkData is what the participant reports for one day.
type ActualWalkData struct {
	Steps       int `json:"steps"`
	DurationMin int `json:"duration_min"`
}

// CheckIn is one recorded day. At most one exists per day index; a later
// submission for the same day replaces the earlier one.
type CheckIn struct {
	DayIndex    int       `json:"day_index"`
	Steps       int       `json:"steps"`
	DurationMin int       `json:"duration_min"`
	RecordedAt  time.Time `json:"recorded_at"`
	Met         bool      `json:"met"`
}

// ProgressState is the only mutable aggregate in the engine. It is owned by a
// single writer per challenge; the repository enforces that.
type ProgressState struct {
	Status             ChallengeStatus `json:"status"`
	CurrentDayIndex    int             `json:"current_day_index"`
	CheckIns           map[int]CheckIn `json:"check_ins"`
	MetCount           int             `json:"met_count"`
	CurrentStreak      int             `json:"current_streak"`
	LongestStreak      int             `json:"longest_streak"`
	AllowFutureLogging bool            `json:"allow_future_logging"`
}

// NewProgressState returns the initial state for a freshly generated plan.
func NewProgressState(allowFutureLogging bool) ProgressState {
	return ProgressState{
		Status:             StatusNotStarted,
		CurrentDayIndex:    0,
		CheckIns:           map[int]CheckIn{},
		AllowFutureLogging: allowFutureLogging,
	}
}

// TrackerPolicy holds the check-in evaluation knobs. Steps carry no tolerance
// because they are the primary success signal; duration does.
type TrackerPolicy struct {
	DurationTolerance float64
}

// DefaultTrackerPolicy mirrors the launch configuration.
var DefaultTrackerPolicy = TrackerPolicy{DurationTolerance: 0.8}

// Activate moves NotStarted to InProgress at day 1. Recording the first
// check-in activates implicitly; the external collaborator may also call this
// when the challenge window opens.
func (s *ProgressState) Activate() error {
	switch s.Status {
	case StatusNotStarted:
		s.Status = StatusInProgress
		s.CurrentDayIndex = 1
		return nil
	case StatusInProgress:
		return nil
	default:
		return fmt.Errorf("%w: status %s", ErrChallengeNotActive, s.Status)
	}
}

// RecordCheckIn validates and upserts a check-in, then refreshes the derived
// compliance bookkeeping. Recording the same check-in twice is idempotent.
func (s *ProgressState) RecordCheckIn(plan Plan, dayIndex int, actual ActualWalkData, recordedAt time.Time, policy TrackerPolicy) error {
	if s.Status == StatusNotStarted {
		if err := s.Activate(); err != nil {
			return err
		}
	}
	if s.Status != StatusInProgress {
		return fmt.Errorf("%w: status %s", ErrChallengeNotActive, s.Status)
	}
	target, ok := plan.Target(dayIndex)
	if !ok {
		return fmt.Errorf("%w: day %d of %d", ErrDayIndexOutOfRange, dayIndex, plan.DurationDays)
	}
	if dayIndex > s.CurrentDayIndex && !s.AllowFutureLogging {
		return fmt.Errorf("%w: day %d is ahead of day %d", ErrFutureCheckInNotAllowed, dayIndex, s.CurrentDayIndex)
	}

	met := actual.Steps >= target.Steps &&
		float64(actual.DurationMin) >= policy.DurationTolerance*float64(target.DurationMin)

	s.CheckIns[dayIndex] = CheckIn{
		DayIndex:    dayIndex,
		Steps:       actual.Steps,
		DurationMin: actual.DurationMin,
		RecordedAt:  recordedAt.UTC(),
		Met:         met,
	}

	// Only a current-day check-in advances the pointer; out-of-order
	// corrections for past days leave it alone.
	if dayIndex == s.CurrentDayIndex {
		s.CurrentDayIndex = dayIndex + 1
	}

	s.refreshCompliance(plan)
	s.completeIfFinished(plan)
	return nil
}

// AdvanceDay is the clock collaborator's input: the challenge has reached
// newDayIndex. The pointer never moves backwards.
func (s *ProgressState) AdvanceDay(plan Plan, newDayIndex int) error {
	if s.Status == StatusNotStarted && newDayIndex >= 1 {
		if err := s.Activate(); err != nil {
			return err
		}
	}
	if s.Status != StatusInProgress {
		return fmt.Errorf("%w: status %s", ErrChallengeNotActive, s.Status)
	}
	if newDayIndex > s.CurrentDayIndex {
		if newDayIndex > plan.DurationDays+1 {
			newDayIndex = plan.DurationDays + 1
		}
		s.CurrentDayIndex = newDayIndex
	}
	s.refreshCompliance(plan)
	s.completeIfFinished(plan)
	return nil
}

// Abandon is the explicit external cancellation signal.
func (s *ProgressState) Abandon() error {
	if s.Status.Terminal() {
		return fmt.Errorf("%w: status %s", ErrChallengeNotActive, s.Status)
	}
	s.Status = StatusAbandoned
	return nil
}

// DaysElapsed counts the plan days that already have an outcome, recorded or
// implicitly missed.
func (s *ProgressState) DaysElapsed(plan Plan) int {
	elapsed := s.CurrentDayIndex - 1
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > plan.DurationDays {
		elapsed = plan.DurationDays
	}
	return elapsed
}

func (s *ProgressState) completeIfFinished(plan Plan) {
	if s.Status == StatusInProgress && s.CurrentDayIndex > plan.DurationDays {
		s.Status = StatusCompleted
	}
}

// refreshCompliance recomputes met count and streaks from the recorded
// check-ins. Recomputing instead of patching incrementally keeps late
// corrections of past days consistent.
func (s *ProgressState) refreshCompliance(plan Plan) {
	lastEvaluated := s.DaysElapsed(plan)
	for day := range s.CheckIns {
		if day > lastEvaluated {
			lastEvaluated = day
		}
	}

	metCount := 0
	longest := 0
	run := 0
	for day := 1; day <= lastEvaluated; day++ {
		ci, ok := s.CheckIns[day]
		if ok && ci.Met {
			metCount++
			run++
			if run > longest {
				longest = run
			}
		} else {
			// Missed or unmet day breaks the streak.
			run = 0
		}
	}

	s.MetCount = metCount
	s.CurrentStreak = run
	s.LongestStreak = longest
}
