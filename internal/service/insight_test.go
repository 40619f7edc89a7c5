package service

import (
	"strings"
	"testing"
)

func TestComposeNutritionInsight(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   InsightInput
		want string
	}{
		{
			name: "no intake",
			in:   InsightInput{Context: DayContextYesterday, Phase: PhaseFinal, Profile: MacroNoIntake, HasTargets: true},
			want: NoDataInsight,
		},
		{
			name: "today in progress",
			in: InsightInput{
				Context: DayContextToday, Phase: PhaseSoFar, Band: BandMorning,
				Energy: EnergyModerate, Profile: MacroCarbLeaning,
				TargetMatch: MacroOffTargets, HasTargets: true,
			},
			want: "So far this morning, your intake is building steadily, with carbs leading the mix.",
		},
		{
			name: "today in the evening",
			in: InsightInput{
				Context: DayContextToday, Phase: PhaseSoFar, Band: BandEvening,
				Energy: EnergyLow, Profile: MacroFatLeaning,
			},
			want: "So far today, your intake is still light, with fat leading the mix.",
		},
		{
			name: "yesterday with targets",
			in: InsightInput{
				Context: DayContextYesterday, Phase: PhaseFinal, Band: BandAfternoon,
				Energy: EnergyHigh, Profile: MacroBalanced,
				TargetMatch: MacroNearTargets, HasTargets: true,
			},
			want: "Yesterday, your intake was high compared to what you burned, with a balanced mix of carbs, protein and fat. Your macros landed near your targets.",
		},
		{
			name: "day before without targets",
			in: InsightInput{
				Context: DayContextDayBefore, Phase: PhaseFinal, Band: BandMorning,
				Energy: EnergyLow, Profile: MacroProteinLeaning,
				TargetMatch: MacroOffTargets,
			},
			want: "The day before yesterday, your intake was light compared to what you burned, with protein leading the mix.",
		},
		{
			name: "today finished",
			in: InsightInput{
				Context: DayContextToday, Phase: PhaseFinal, Band: BandEvening,
				Energy: EnergyModerate, Profile: MacroCarbLeaning,
				TargetMatch: MacroOffTargets, HasTargets: true,
			},
			want: "Today, your intake was moderate compared to what you burned, with carbs leading the mix. Your macros were off your targets.",
		},
	}
	for _, tc := range cases {
		got := ComposeNutritionInsight(tc.in)
		if got.Text != tc.want {
			t.Fatalf("%s:\n got  %q\n want %q", tc.name, got.Text, tc.want)
		}
		if again := ComposeNutritionInsight(tc.in); again != got {
			t.Fatalf("%s: expected identical output for identical input", tc.name)
		}
	}
}

func TestInsightInProgressNeverMentionsTargets(t *testing.T) {
	t.Parallel()

	for _, band := range []TimeOfDayBand{BandMorning, BandAfternoon, BandEvening} {
		for _, match := range []MacroTargetMatch{MacroNearTargets, MacroOffTargets} {
			got := ComposeNutritionInsight(InsightInput{
				Context: DayContextToday, Phase: PhaseSoFar, Band: band,
				Energy: EnergyHigh, Profile: MacroBalanced,
				TargetMatch: match, HasTargets: true,
			})
			if strings.Contains(got.Text, "targets") {
				t.Fatalf("in-progress insight mentions targets: %q", got.Text)
			}
		}
	}
}
