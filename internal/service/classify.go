package service

import "math"

type EnergyLevel string

const (
	EnergyLow      EnergyLevel = "low"
	EnergyModerate EnergyLevel = "moderate"
	EnergyHigh     EnergyLevel = "high"
)

type MacroProfile string

const (
	MacroNoIntake       MacroProfile = "no_intake"
	MacroBalanced       MacroProfile = "balanced"
	MacroCarbLeaning    MacroProfile = "carb_leaning"
	MacroProteinLeaning MacroProfile = "protein_leaning"
	MacroFatLeaning     MacroProfile = "fat_leaning"
)

type MacroTargetMatch string

const (
	MacroNearTargets MacroTargetMatch = "near_targets"
	MacroOffTargets  MacroTargetMatch = "off_targets"
)

type TimeOfDayBand string

const (
	BandMorning   TimeOfDayBand = "morning"
	BandAfternoon TimeOfDayBand = "afternoon"
	BandEvening   TimeOfDayBand = "evening"
)

type DayPhase string

const (
	PhaseSoFar DayPhase = "so_far"
	PhaseFinal DayPhase = "final"
)

type GlucoseVariability string

const (
	GlucoseStable   GlucoseVariability = "stable"
	GlucoseVariable GlucoseVariability = "variable"
)

const (
	energyLowBelow      = 0.4
	energyModerateUpTo  = 0.75
	macroNoIntakeBelowG = 20
	macroBalancedGap    = 0.12
	targetRatioLow      = 0.6
	targetRatioHigh     = 1.4
	morningFromHour     = 5
	afternoonFromHour   = 12
	eveningFromHour     = 17
	finalPhaseFromHour  = 21
	glucoseStableCVPct  = 36
)

// MacroShares are gram shares of the day's macros, each in [0,1].
type MacroShares struct {
	Carbs   float64 `json:"carbs"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
}

type MacroValues struct {
	CarbsG   float64 `json:"carbs_g"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
}

func (v MacroValues) Clamped() MacroValues {
	return MacroValues{CarbsG: clamp0(v.CarbsG), ProteinG: clamp0(v.ProteinG), FatG: clamp0(v.FatG)}
}

func (v MacroValues) TotalGrams() float64 {
	c := v.Clamped()
	return c.CarbsG + c.ProteinG + c.FatG
}

func clamp0(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// EnergyRatio is intake over the day's burn, with the budget floored at 1.
func EnergyRatio(intake, active, resting float64) float64 {
	budget := math.Max(clamp0(active)+clamp0(resting), 1)
	return clamp0(intake) / budget
}

func ClassifyEnergyLevel(ratio float64) EnergyLevel {
	ratio = clamp0(ratio)
	switch {
	case ratio < energyLowBelow:
		return EnergyLow
	case ratio <= energyModerateUpTo:
		return EnergyModerate
	default:
		return EnergyHigh
	}
}

func MacroSharesOf(v MacroValues) MacroShares {
	c := v.Clamped()
	total := c.CarbsG + c.ProteinG + c.FatG
	if total <= 0 {
		return MacroShares{}
	}
	return MacroShares{
		Carbs:   c.CarbsG / total,
		Protein: c.ProteinG / total,
		Fat:     c.FatG / total,
	}
}

func ClassifyMacroProfile(shares MacroShares, totalGrams float64) MacroProfile {
	if clamp0(totalGrams) < macroNoIntakeBelowG {
		return MacroNoIntake
	}
	ranked := []struct {
		share   float64
		profile MacroProfile
	}{
		{clamp0(shares.Carbs), MacroCarbLeaning},
		{clamp0(shares.Protein), MacroProteinLeaning},
		{clamp0(shares.Fat), MacroFatLeaning},
	}
	top, second := 0, -1
	for i := 1; i < len(ranked); i++ {
		if ranked[i].share > ranked[top].share {
			second, top = top, i
		} else if second < 0 || ranked[i].share > ranked[second].share {
			second = i
		}
	}
	if ranked[top].share-ranked[second].share < macroBalancedGap {
		return MacroBalanced
	}
	return ranked[top].profile
}

// ClassifyMacroTargetMatch checks every macro that has a positive target.
// Without any target the day counts as near targets.
func ClassifyMacroTargetMatch(values MacroValues, targets MacroValues) MacroTargetMatch {
	v := values.Clamped()
	pairs := [][2]float64{
		{v.CarbsG, targets.CarbsG},
		{v.ProteinG, targets.ProteinG},
		{v.FatG, targets.FatG},
	}
	for _, p := range pairs {
		if p[1] <= 0 {
			continue
		}
		r := p[0] / p[1]
		if r < targetRatioLow || r > targetRatioHigh {
			return MacroOffTargets
		}
	}
	return MacroNearTargets
}

func ClassifyTimeOfDay(hour int) TimeOfDayBand {
	switch {
	case hour >= morningFromHour && hour < afternoonFromHour:
		return BandMorning
	case hour >= afternoonFromHour && hour < eveningFromHour:
		return BandAfternoon
	default:
		return BandEvening
	}
}

func ClassifyDayPhase(hour int) DayPhase {
	if hour >= finalPhaseFromHour {
		return PhaseFinal
	}
	return PhaseSoFar
}

func ClassifyGlucoseVariability(cvPercent float64) GlucoseVariability {
	if clamp0(cvPercent) <= glucoseStableCVPct {
		return GlucoseStable
	}
	return GlucoseVariable
}
