package service

// NoDataInsight is shown whenever no macro intake has been logged for the day.
const NoDataInsight = "No data recorded yet."

type InsightResult struct {
	Text string `json:"text"`
}

type InsightInput struct {
	Context     DayContext
	Phase       DayPhase
	Band        TimeOfDayBand
	Energy      EnergyLevel
	Profile     MacroProfile
	TargetMatch MacroTargetMatch
	HasTargets  bool
}

var soFarLeads = map[TimeOfDayBand]string{
	BandMorning:   "So far this morning,",
	BandAfternoon: "So far this afternoon,",
	BandEvening:   "So far today,",
}

var pastLeads = map[DayContext]string{
	DayContextToday:     "Today,",
	DayContextYesterday: "Yesterday,",
	DayContextDayBefore: "The day before yesterday,",
}

var soFarEnergyClauses = map[EnergyLevel]string{
	EnergyLow:      "your intake is still light",
	EnergyModerate: "your intake is building steadily",
	EnergyHigh:     "your intake is already substantial",
}

var pastEnergyClauses = map[EnergyLevel]string{
	EnergyLow:      "your intake was light compared to what you burned",
	EnergyModerate: "your intake was moderate compared to what you burned",
	EnergyHigh:     "your intake was high compared to what you burned",
}

var macroClauses = map[MacroProfile]string{
	MacroBalanced:       "with a balanced mix of carbs, protein and fat.",
	MacroCarbLeaning:    "with carbs leading the mix.",
	MacroProteinLeaning: "with protein leading the mix.",
	MacroFatLeaning:     "with fat leading the mix.",
}

var targetClauses = map[MacroTargetMatch]string{
	MacroNearTargets: "Your macros landed near your targets.",
	MacroOffTargets:  "Your macros were off your targets.",
}

// ComposeNutritionInsight returns the same sentence for the same input.
// While today is still in progress the sentence never mentions targets.
func ComposeNutritionInsight(in InsightInput) InsightResult {
	macro, ok := macroClauses[in.Profile]
	if !ok {
		return InsightResult{Text: NoDataInsight}
	}

	if in.Context == DayContextToday && in.Phase != PhaseFinal {
		lead, ok := soFarLeads[in.Band]
		if !ok {
			lead = soFarLeads[BandEvening]
		}
		return InsightResult{Text: lead + " " + energyClause(soFarEnergyClauses, in.Energy) + ", " + macro}
	}

	lead, ok := pastLeads[in.Context]
	if !ok {
		lead = pastLeads[DayContextDayBefore]
	}
	text := lead + " " + energyClause(pastEnergyClauses, in.Energy) + ", " + macro
	if in.HasTargets {
		match := in.TargetMatch
		if _, ok := targetClauses[match]; !ok {
			match = MacroNearTargets
		}
		text += " " + targetClauses[match]
	}
	return InsightResult{Text: text}
}

func energyClause(table map[EnergyLevel]string, level EnergyLevel) string {
	if c, ok := table[level]; ok {
		return c
	}
	return table[EnergyLow]
}
