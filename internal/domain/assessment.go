package domain

import "fmt"

// ExertionLevel is the self-rated effort a participant reports at onboarding.
type ExertionLevel string

const (
	ExertionLow      ExertionLevel = "low"
	ExertionModerate ExertionLevel = "moderate"
	ExertionHigh     ExertionLevel = "high"
)

// TierLevel buckets participants into coarse capability groups.
type TierLevel string

const (
	TierBeginner     TierLevel = "beginner"
	TierIntermediate TierLevel = "intermediate"
	TierAdvanced     TierLevel = "advanced"
)

// Assessment is the immutable self-reported baseline captured at onboarding.
type Assessment struct {
	AverageDailySteps  int           `json:"average_daily_steps"`
	WalkDurationMin    int           `json:"walk_duration_min"`
	WalkDistanceMeters int           `json:"walk_distance_meters"`
	Exertion           ExertionLevel `json:"exertion"`
	MobilityFlags      []string      `json:"mobility_flags,omitempty"`
}

// FitnessTier is the derived capability bucket plus a steps/day capacity estimate.
type FitnessTier struct {
	Level            TierLevel `json:"level"`
	BaselineCapacity int       `json:"baseline_capacity"`
	Score            float64   `json:"score"`
}

// TierPolicy holds the tuning knobs for assessment scoring. The values are
// product policy, not physiology; keep them adjustable.
type TierPolicy struct {
	StepsWeight          float64
	ExertionWeight       float64
	StepsReferenceCeil   float64
	BeginnerUpperBound   float64
	AdvancedLowerBound   float64
	MinimumBaselineSteps int
}

// DefaultTierPolicy mirrors the launch configuration.
var DefaultTierPolicy = TierPolicy{
	StepsWeight:          0.7,
	ExertionWeight:       0.3,
	StepsReferenceCeil:   12000,
	BeginnerUpperBound:   0.35,
	AdvancedLowerBound:   0.7,
	MinimumBaselineSteps: 2000,
}

var exertionScores = map[ExertionLevel]float64{
	ExertionLow:      0.2,
	ExertionModerate: 0.6,
	ExertionHigh:     1.0,
}

// EvaluateAssessment converts a raw assessment into a fitness tier. It is
// deterministic and has no side effects.
func EvaluateAssessment(a Assessment, policy TierPolicy) (FitnessTier, error) {
	if a.AverageDailySteps < 0 {
		return FitnessTier{}, fmt.Errorf("%w: average daily steps must be >= 0", ErrInvalidAssessment)
	}
	if a.WalkDurationMin < 0 {
		return FitnessTier{}, fmt.Errorf("%w: walk duration must be >= 0", ErrInvalidAssessment)
	}
	if a.WalkDistanceMeters < 0 {
		return FitnessTier{}, fmt.Errorf("%w: walk distance must be >= 0", ErrInvalidAssessment)
	}
	exertion, ok := exertionScores[a.Exertion]
	if !ok {
		return FitnessTier{}, fmt.Errorf("%w: unknown exertion level %q", ErrInvalidAssessment, a.Exertion)
	}

	stepsScore := float64(a.AverageDailySteps) / policy.StepsReferenceCeil
	if stepsScore > 1 {
		stepsScore = 1
	}
	score := policy.StepsWeight*stepsScore + policy.ExertionWeight*exertion

	level := TierAdvanced
	switch {
	case score < policy.BeginnerUpperBound:
		level = TierBeginner
	case score < policy.AdvancedLowerBound:
		level = TierIntermediate
	}

	// Mobility constraints cap the tier regardless of score.
	if len(a.MobilityFlags) > 0 && level == TierAdvanced {
		level = TierIntermediate
	}

	baseline := a.AverageDailySteps
	if baseline < policy.MinimumBaselineSteps {
		baseline = policy.MinimumBaselineSteps
	}

	return FitnessTier{Level: level, BaselineCapacity: baseline, Score: score}, nil
}
