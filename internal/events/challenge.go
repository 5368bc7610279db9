// Package events defines the payloads published for downstream consumers.
package events

import "time"

// ChallengeStarted is emitted when a new challenge is accepted and planned.
type ChallengeStarted struct {
	ChallengeID  string    `json:"challenge_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Tier         string    `json:"tier"`
	DurationDays int       `json:"duration_days"`
	Intensity    string    `json:"intensity"`
	StartedAt    time.Time `json:"started_at"`
	Version      string    `json:"version"`
}

// CheckInRecorded is emitted for every accepted daily check-in.
type CheckInRecorded struct {
	ChallengeID string    `json:"challenge_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	DayIndex    int       `json:"day_index"`
	Steps       int       `json:"steps"`
	DurationMin int       `json:"duration_min"`
	Met         bool      `json:"met"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ChallengeStateChanged tracks lifecycle transitions for optimistic UI flows.
type ChallengeStateChanged struct {
	ChallengeID string    `json:"challenge_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
	Reason      string    `json:"reason,omitempty"`
}

// ChallengeCompleted carries the final verdict.
type ChallengeCompleted struct {
	ChallengeID     string    `json:"challenge_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	Outcome         string    `json:"outcome"`
	Rule            string    `json:"rule"`
	ComplianceRatio float64   `json:"compliance_ratio"`
	LongestStreak   int       `json:"longest_streak"`
	DecidedAt       time.Time `json:"decided_at"`
}
