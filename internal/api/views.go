package api

import (
	"errors"
	"strings"
	"time"

	"github.com/prouhet/reformed-fit-sub000/internal/domain"
)

// AssessmentRequest is the self-assessment submitted at onboarding.
type AssessmentRequest struct {
	AverageDailySteps  int      `json:"average_daily_steps"`
	WalkDurationMin    int      `json:"walk_duration_min"`
	WalkDistanceMeters int      `json:"walk_distance_meters"`
	Exertion           string   `json:"exertion"`
	MobilityFlags      []string `json:"mobility_flags,omitempty"`
}

// StartChallengeRequest is the payload for POST /v1/challenges.
type StartChallengeRequest struct {
	UserID             string            `json:"user_id"`
	Assessment         AssessmentRequest `json:"assessment"`
	DurationDays       int               `json:"duration_days"`
	Intensity          string            `json:"intensity"`
	AllowFutureLogging *bool             `json:"allow_future_logging,omitempty"`
}

// Validate ensures request correctness before the engine sees it.
func (r StartChallengeRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.Assessment.Exertion) == "" {
		return errors.New("assessment.exertion is required")
	}
	if r.DurationDays <= 0 {
		return errors.New("duration_days must be > 0")
	}
	if strings.TrimSpace(r.Intensity) == "" {
		return errors.New("intensity is required")
	}
	return nil
}

// RecordCheckInRequest is the payload for POST /v1/challenges/{id}/checkins.
type RecordCheckInRequest struct {
	DayIndex    int `json:"day_index"`
	Steps       int `json:"steps"`
	DurationMin int `json:"duration_min"`
}

// Validate ensures request correctness.
func (r RecordCheckInRequest) Validate() error {
	if r.DayIndex < 1 {
		return errors.New("day_index must be >= 1")
	}
	if r.Steps < 0 {
		return errors.New("steps must be >= 0")
	}
	if r.DurationMin < 0 {
		return errors.New("duration_min must be >= 0")
	}
	return nil
}

// AdvanceDayRequest carries the clock collaborator's new day index.
type AdvanceDayRequest struct {
	DayIndex int `json:"day_index"`
}

// DailyTargetView exposes one plan day.
type DailyTargetView struct {
	DayIndex    int  `json:"day_index"`
	Steps       int  `json:"steps"`
	DurationMin int  `json:"duration_min"`
	Recovery    bool `json:"recovery"`
}

// ProgressView exposes the mutable progress of a challenge.
type ProgressView struct {
	Status          string  `json:"status"`
	CurrentDayIndex int     `json:"current_day_index"`
	MetCount        int     `json:"met_count"`
	CurrentStreak   int     `json:"current_streak"`
	LongestStreak   int     `json:"longest_streak"`
	CheckInCount    int     `json:"check_in_count"`
	Compliance      float64 `json:"compliance"`
}

// ChallengeView exposes full details about a challenge.
type ChallengeView struct {
	ChallengeID  string            `json:"challenge_id"`
	TenantID     string            `json:"tenant_id"`
	UserID       string            `json:"user_id"`
	Tier         string            `json:"tier"`
	DurationDays int               `json:"duration_days"`
	Intensity    string            `json:"intensity"`
	Targets      []DailyTargetView `json:"targets"`
	Progress     ProgressView      `json:"progress"`
	Verdict      *domain.Verdict   `json:"verdict,omitempty"`
	Version      string            `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// StartChallengeResponse describes the response body for create.
type StartChallengeResponse struct {
	Challenge ChallengeView `json:"challenge"`
	Replay    bool          `json:"idempotent_replay"`
}

// RecordCheckInResponse reports the evaluated check-in.
type RecordCheckInResponse struct {
	DayIndex int          `json:"day_index"`
	Met      bool         `json:"met"`
	Progress ProgressView `json:"progress"`
}

// ListChallengesResponse packages list results.
type ListChallengesResponse struct {
	Items      []ChallengeView `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func toChallengeView(ch domain.Challenge) ChallengeView {
	targets := make([]DailyTargetView, 0, len(ch.Plan.Targets))
	for _, t := range ch.Plan.Targets {
		targets = append(targets, DailyTargetView{
			DayIndex:    t.DayIndex,
			Steps:       t.Steps,
			DurationMin: t.DurationMin,
			Recovery:    t.Recovery,
		})
	}

	return ChallengeView{
		ChallengeID:  ch.ID,
		TenantID:     ch.TenantID,
		UserID:       ch.UserID,
		Tier:         string(ch.Tier.Level),
		DurationDays: ch.Plan.DurationDays,
		Intensity:    string(ch.Plan.Intensity),
		Targets:      targets,
		Progress:     toProgressView(ch.Progress),
		Verdict:      ch.Verdict,
		Version:      ch.Version,
		CreatedAt:    ch.CreatedAt,
		UpdatedAt:    ch.UpdatedAt,
	}
}

func toProgressView(p domain.ProgressState) ProgressView {
	elapsed := p.CurrentDayIndex - 1
	compliance := 0.0
	if elapsed > 0 {
		compliance = float64(p.MetCount) / float64(elapsed)
	}
	return ProgressView{
		Status:          string(p.Status),
		CurrentDayIndex: p.CurrentDayIndex,
		MetCount:        p.MetCount,
		CurrentStreak:   p.CurrentStreak,
		LongestStreak:   p.LongestStreak,
		CheckInCount:    len(p.CheckIns),
		Compliance:      compliance,
	}
}
