package domain

import (
	"fmt"
	"math"
)

// GoalIntensity scales how aggressively the plan ramps.
type GoalIntensity string

const (
	IntensityMaintain GoalIntensity = "maintain"
	IntensityImprove  GoalIntensity = "improve"
	IntensityPush     GoalIntensity = "push"
)

// DailyTarget is one day of the generated plan. Day indices are 1-based and
// contiguous. Recovery marks the deload day that opens each ramp block.
type DailyTarget struct {
	DayIndex    int  `json:"day_index"`
	Steps       int  `json:"steps"`
	DurationMin int  `json:"duration_min"`
	DeltaSteps  int  `json:"delta_steps"`
	BlockIndex  int  `json:"block_index"`
	Recovery    bool `json:"recovery"`
}

// Plan is the immutable day-by-day schedule for one challenge.
type Plan struct {
	DurationDays int           `json:"duration_days"`
	Intensity    GoalIntensity `json:"intensity"`
	Targets      []DailyTarget `json:"targets"`
}

// MaxTargetSteps returns the highest single-day step target in the plan.
func (p Plan) MaxTargetSteps() int {
	max := 0
	for _, t := range p.Targets {
		if t.Steps > max {
			max = t.Steps
		}
	}
	return max
}

// Target returns the daily target for a 1-based day index.
func (p Plan) Target(dayIndex int) (DailyTarget, bool) {
	if dayIndex < 1 || dayIndex > len(p.Targets) {
		return DailyTarget{}, false
	}
	return p.Targets[dayIndex-1], true
}

// PlanPolicy holds the ramp tuning knobs. Increments are fractions of the
// baseline capacity applied per ramp day.
type PlanPolicy struct {
	SupportedDurations []int
	TierIncrements     map[TierLevel]float64
	IntensityScale     map[GoalIntensity]float64
	RecoveryFactor     float64
	CeilingFactor      float64
	StepsPerMinute     float64
}

// DefaultPlanPolicy mirrors the launch configuration.
var DefaultPlanPolicy = PlanPolicy{
	SupportedDurations: []int{7, 14, 30},
	TierIncrements: map[TierLevel]float64{
		TierBeginner:     0.03,
		TierIntermediate: 0.05,
		TierAdvanced:     0.07,
	},
	IntensityScale: map[GoalIntensity]float64{
		IntensityMaintain: 0.5,
		IntensityImprove:  1.0,
		IntensityPush:     1.3,
	},
	RecoveryFactor: 0.8,
	CeilingFactor:  2.2,
	StepsPerMinute: 100,
}

// GeneratePlan builds the ramped walking plan for a tier. Deterministic for
// identical inputs.
func GeneratePlan(tier FitnessTier, durationDays int, intensity GoalIntensity, policy PlanPolicy) (Plan, error) {
	supported := false
	for _, d := range policy.SupportedDurations {
		if d == durationDays {
			supported = true
			break
		}
	}
	if !supported {
		return Plan{}, fmt.Errorf("%w: %d days", ErrUnsupportedDuration, durationDays)
	}

	scale, ok := policy.IntensityScale[intensity]
	if !ok {
		return Plan{}, fmt.Errorf("%w: unknown goal intensity %q", ErrUnsupportedDuration, intensity)
	}
	increment := policy.TierIncrements[tier.Level] * scale

	baseline := float64(tier.BaselineCapacity)
	ceiling := baseline * policy.CeilingFactor

	targets := make([]DailyTarget, 0, durationDays)
	current := baseline
	prevSteps := 0
	day := 1
	for blockIdx, size := range blockSizes(durationDays) {
		for offset := 0; offset < size; offset++ {
			recovery := blockIdx > 0 && offset == 0
			if recovery {
				current = current * policy.RecoveryFactor
			} else if day > 1 {
				current = current * (1 + increment)
			}
			if current > ceiling {
				current = ceiling
			}
			steps := int(math.Round(current))
			targets = append(targets, DailyTarget{
				DayIndex:    day,
				Steps:       steps,
				DurationMin: int(math.Ceil(current / policy.StepsPerMinute)),
				DeltaSteps:  steps - prevSteps,
				BlockIndex:  blockIdx,
				Recovery:    recovery,
			})
			prevSteps = steps
			day++
		}
	}

	// The final block ends on the plan's highest target rather than a taper.
	plan := Plan{DurationDays: durationDays, Intensity: intensity, Targets: targets}
	last := &plan.Targets[durationDays-1]
	if max := plan.MaxTargetSteps(); last.Steps < max {
		last.DeltaSteps += max - last.Steps
		last.Steps = max
		last.DurationMin = int(math.Ceil(float64(max) / policy.StepsPerMinute))
	}
	return plan, nil
}

// blockSizes splits the challenge into ramp blocks of 3-4 days. Shorter blocks
// are taken first so the plan always closes on a full-length block.
func blockSizes(durationDays int) []int {
	sizes := []int{}
	remaining := durationDays
	for remaining > 4 {
		size := 3
		if remaining%4 == 0 {
			size = 4
		}
		sizes = append(sizes, size)
		remaining -= size
	}
	return append(sizes, remaining)
}
