package domain

// Trend flags whether recent compliance is better or worse than before.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendSteady    Trend = "steady"
	TrendDeclining Trend = "declining"
)

// RoadmapView is a read-only projection over the progress state. It never
// mutates anything, so it is safe to compute concurrently with writes against
// the caller's own snapshot.
type RoadmapView struct {
	Status           ChallengeStatus `json:"status"`
	CurrentDayIndex  int             `json:"current_day_index"`
	DaysRemaining    int             `json:"days_remaining"`
	DaysElapsed      int             `json:"days_elapsed"`
	MetCount         int             `json:"met_count"`
	ComplianceSoFar  float64         `json:"compliance_so_far"`
	CurrentStreak    int             `json:"current_streak"`
	LongestStreak    int             `json:"longest_streak"`
	Trend            Trend           `json:"trend"`
	ProjectedSuccess bool            `json:"projected_success"`
}

// trendDeadband is how far block-over-block compliance must move before the
// trend leaves Steady.
const trendDeadband = 0.1

// ProjectRoadmap derives the roadmap view from a progress snapshot and its plan.
func ProjectRoadmap(state ProgressState, plan Plan, verdictPolicy VerdictPolicy) RoadmapView {
	elapsed := state.DaysElapsed(plan)
	compliance := 0.0
	if elapsed > 0 {
		compliance = float64(state.MetCount) / float64(elapsed)
	}

	view := RoadmapView{
		Status:          state.Status,
		CurrentDayIndex: state.CurrentDayIndex,
		DaysRemaining:   plan.DurationDays - elapsed,
		DaysElapsed:     elapsed,
		MetCount:        state.MetCount,
		ComplianceSoFar: compliance,
		CurrentStreak:   state.CurrentStreak,
		LongestStreak:   state.LongestStreak,
		Trend:           blockTrend(state, plan, elapsed),
	}

	// Projection: assume every remaining day is met and check the verdict
	// rules against that best case.
	bestCaseMet := state.MetCount + view.DaysRemaining
	bestCaseStreak := state.LongestStreak
	if tail := state.CurrentStreak + view.DaysRemaining; tail > bestCaseStreak {
		bestCaseStreak = tail
	}
	view.ProjectedSuccess = state.Status != StatusAbandoned &&
		float64(bestCaseMet)/float64(plan.DurationDays) >= verdictPolicy.ComplianceThreshold &&
		bestCaseStreak >= verdictPolicy.StreakThreshold
	return view
}

// blockTrend compares compliance of the most recent elapsed ramp block against
// the block before it.
func blockTrend(state ProgressState, plan Plan, elapsed int) Trend {
	if elapsed == 0 {
		return TrendSteady
	}

	lastBlock := plan.Targets[elapsed-1].BlockIndex
	if lastBlock == 0 {
		return TrendSteady
	}

	recent := blockCompliance(state, plan, lastBlock, elapsed)
	prior := blockCompliance(state, plan, lastBlock-1, elapsed)
	switch diff := recent - prior; {
	case diff > trendDeadband:
		return TrendImproving
	case diff < -trendDeadband:
		return TrendDeclining
	default:
		return TrendSteady
	}
}

func blockCompliance(state ProgressState, plan Plan, blockIndex, elapsed int) float64 {
	days, met := 0, 0
	for _, t := range plan.Targets {
		if t.BlockIndex != blockIndex || t.DayIndex > elapsed {
			continue
		}
		days++
		if ci, ok := state.CheckIns[t.DayIndex]; ok && ci.Met {
			met++
		}
	}
	if days == 0 {
		return 0
	}
	return float64(met) / float64(days)
}
