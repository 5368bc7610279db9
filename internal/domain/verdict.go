package domain

import (
	"fmt"
	"time"
)

// Outcome is the final Success/Incomplete determination.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeIncomplete Outcome = "incomplete"
)

// VerdictRule names which rule decided the outcome, for user-facing explanation.
type VerdictRule string

const (
	RuleThresholdsMet  VerdictRule = "thresholds_met"
	RuleComplianceLow  VerdictRule = "compliance_below_threshold"
	RuleStreakTooShort VerdictRule = "streak_below_threshold"
	RuleAbandoned      VerdictRule = "abandoned"
)

// Verdict is the terminal record for a finished challenge.
type Verdict struct {
	Outcome         Outcome     `json:"outcome"`
	Rule            VerdictRule `json:"rule"`
	ComplianceRatio float64     `json:"compliance_ratio"`
	MetCount        int         `json:"met_count"`
	LongestStreak   int         `json:"longest_streak"`
	DecidedAt       time.Time   `json:"decided_at"`
}

// VerdictPolicy holds the success thresholds.
type VerdictPolicy struct {
	ComplianceThreshold float64
	StreakThreshold     int
}

// DefaultVerdictPolicy mirrors the launch configuration.
var DefaultVerdictPolicy = VerdictPolicy{
	ComplianceThreshold: 0.8,
	StreakThreshold:     3,
}

// EvaluateCompletion decides Success vs Incomplete once the lifecycle is
// terminal. Abandonment always yields Incomplete, whatever the partial
// compliance was.
func EvaluateCompletion(state ProgressState, plan Plan, policy VerdictPolicy, now time.Time) (Verdict, error) {
	if !state.Status.Terminal() {
		return Verdict{}, fmt.Errorf("%w: status %s", ErrChallengeNotActive, state.Status)
	}

	ratio := float64(state.MetCount) / float64(plan.DurationDays)
	verdict := Verdict{
		ComplianceRatio: ratio,
		MetCount:        state.MetCount,
		LongestStreak:   state.LongestStreak,
		DecidedAt:       now.UTC(),
	}

	switch {
	case state.Status == StatusAbandoned:
		verdict.Outcome = OutcomeIncomplete
		verdict.Rule = RuleAbandoned
	case ratio < policy.ComplianceThreshold:
		verdict.Outcome = OutcomeIncomplete
		verdict.Rule = RuleComplianceLow
	case state.LongestStreak < policy.StreakThreshold:
		verdict.Outcome = OutcomeIncomplete
		verdict.Rule = RuleStreakTooShort
	default:
		verdict.Outcome = OutcomeSuccess
		verdict.Rule = RuleThresholdsMet
	}
	return verdict, nil
}
