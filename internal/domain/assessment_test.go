package domain

import (
	"errors"
	"testing"
)

func TestEvaluateAssessmentTiers(t *testing.T) {
	cases := []struct {
		name string
		in   Assessment
		want TierLevel
	}{
		{
			name: "low steps and low exertion is beginner",
			in:   Assessment{AverageDailySteps: 2000, WalkDurationMin: 20, WalkDistanceMeters: 1500, Exertion: ExertionLow},
			want: TierBeginner,
		},
		{
			name: "mid steps and moderate exertion is intermediate",
			in:   Assessment{AverageDailySteps: 6000, WalkDurationMin: 40, WalkDistanceMeters: 4000, Exertion: ExertionModerate},
			want: TierIntermediate,
		},
		{
			name: "reference ceiling steps and high exertion is advanced",
			in:   Assessment{AverageDailySteps: 12000, WalkDurationMin: 90, WalkDistanceMeters: 9000, Exertion: ExertionHigh},
			want: TierAdvanced,
		},
		{
			name: "steps above the reference ceiling are clamped",
			in:   Assessment{AverageDailySteps: 20000, WalkDurationMin: 120, WalkDistanceMeters: 15000, Exertion: ExertionLow},
			want: TierAdvanced,
		},
		{
			name: "mobility flag caps an advanced score at intermediate",
			in: Assessment{
				AverageDailySteps:  12000,
				WalkDurationMin:    90,
				WalkDistanceMeters: 9000,
				Exertion:           ExertionHigh,
				MobilityFlags:      []string{"knee_brace"},
			},
			want: TierIntermediate,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, err := EvaluateAssessment(tc.in, DefaultTierPolicy)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tier.Level != tc.want {
				t.Fatalf("expected tier %s got %s (score %f)", tc.want, tier.Level, tier.Score)
			}
		})
	}
}

func TestEvaluateAssessmentDeterministic(t *testing.T) {
	in := Assessment{AverageDailySteps: 5400, WalkDurationMin: 35, WalkDistanceMeters: 3800, Exertion: ExertionModerate}
	first, err := EvaluateAssessment(in, DefaultTierPolicy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := EvaluateAssessment(in, DefaultTierPolicy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("expected identical tier, got %+v then %+v", first, again)
		}
	}
}

func TestEvaluateAssessmentBaselineFloor(t *testing.T) {
	in := Assessment{AverageDailySteps: 300, WalkDurationMin: 10, WalkDistanceMeters: 200, Exertion: ExertionLow}
	tier, err := EvaluateAssessment(in, DefaultTierPolicy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.BaselineCapacity != DefaultTierPolicy.MinimumBaselineSteps {
		t.Fatalf("expected baseline floor %d got %d", DefaultTierPolicy.MinimumBaselineSteps, tier.BaselineCapacity)
	}
}

func TestEvaluateAssessmentRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		in   Assessment
	}{
		{"negative steps", Assessment{AverageDailySteps: -1, Exertion: ExertionLow}},
		{"negative duration", Assessment{WalkDurationMin: -5, Exertion: ExertionLow}},
		{"negative distance", Assessment{WalkDistanceMeters: -100, Exertion: ExertionLow}},
		{"unknown exertion", Assessment{AverageDailySteps: 4000, Exertion: "extreme"}},
		{"empty exertion", Assessment{AverageDailySteps: 4000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := EvaluateAssessment(tc.in, DefaultTierPolicy); !errors.Is(err, ErrInvalidAssessment) {
				t.Fatalf("expected ErrInvalidAssessment got %v", err)
			}
		})
	}
}
