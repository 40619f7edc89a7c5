package service

import (
	"fmt"
	"math"
)

type ScoreTier string

const (
	TierLow    ScoreTier = "low"
	TierMedium ScoreTier = "medium"
	TierHigh   ScoreTier = "high"
)

type ScoreResult struct {
	Value int       `json:"value"`
	Tier  ScoreTier `json:"tier"`
}

// ShareBand is the ideal share range of one macro.
type ShareBand struct {
	Min float64 `koanf:"min" json:"min"`
	Max float64 `koanf:"max" json:"max"`
}

// ScoreConfig holds the hand-tuned weights and bands of the nutrition score.
type ScoreConfig struct {
	EnergyWeight  float64 `koanf:"energy_weight"`
	MacroWeight   float64 `koanf:"macro_weight"`
	BalanceWeight float64 `koanf:"balance_weight"`
	TargetWeight  float64 `koanf:"target_weight"`

	// Energy deviation from the expected value: full score inside
	// EnergyFullBand, zero beyond EnergyZeroBand.
	EnergyFullBand float64 `koanf:"energy_full_band"`
	EnergyZeroBand float64 `koanf:"energy_zero_band"`
	TargetFullBand float64 `koanf:"target_full_band"`
	TargetZeroBand float64 `koanf:"target_zero_band"`

	CarbsBand    ShareBand `koanf:"carbs_band"`
	ProteinBand  ShareBand `koanf:"protein_band"`
	FatBand      ShareBand `koanf:"fat_band"`
	SharePenalty float64   `koanf:"share_penalty"`

	DayStartHour        int     `koanf:"day_start_hour"`
	DayEndHour          int     `koanf:"day_end_hour"`
	MinExpectedFraction float64 `koanf:"min_expected_fraction"`

	MediumFrom   int `koanf:"medium_from"`
	HighFrom     int `koanf:"high_from"`
	NeutralScore int `koanf:"neutral_score"`
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		EnergyWeight:        0.6,
		MacroWeight:         0.4,
		BalanceWeight:       0.7,
		TargetWeight:        0.3,
		EnergyFullBand:      0.20,
		EnergyZeroBand:      0.60,
		TargetFullBand:      0.10,
		TargetZeroBand:      0.60,
		CarbsBand:           ShareBand{Min: 0.40, Max: 0.50},
		ProteinBand:         ShareBand{Min: 0.20, Max: 0.30},
		FatBand:             ShareBand{Min: 0.25, Max: 0.35},
		SharePenalty:        500,
		DayStartHour:        6,
		DayEndHour:          21,
		MinExpectedFraction: 0.15,
		MediumFrom:          40,
		HighFrom:            70,
		NeutralScore:        50,
	}
}

func (c ScoreConfig) Validate() error {
	if math.Abs(c.EnergyWeight+c.MacroWeight-1) > 1e-9 {
		return fmt.Errorf("score energy_weight + macro_weight must be 1")
	}
	if math.Abs(c.BalanceWeight+c.TargetWeight-1) > 1e-9 {
		return fmt.Errorf("score balance_weight + target_weight must be 1")
	}
	if c.EnergyFullBand < 0 || c.EnergyZeroBand <= c.EnergyFullBand {
		return fmt.Errorf("score energy bands must satisfy 0 <= full < zero")
	}
	if c.TargetFullBand < 0 || c.TargetZeroBand <= c.TargetFullBand {
		return fmt.Errorf("score target bands must satisfy 0 <= full < zero")
	}
	for name, b := range map[string]ShareBand{"carbs": c.CarbsBand, "protein": c.ProteinBand, "fat": c.FatBand} {
		if b.Min < 0 || b.Max > 1 || b.Min > b.Max {
			return fmt.Errorf("score %s band must satisfy 0 <= min <= max <= 1", name)
		}
	}
	if c.DayEndHour <= c.DayStartHour {
		return fmt.Errorf("score day_end_hour must be after day_start_hour")
	}
	if c.MediumFrom > c.HighFrom {
		return fmt.Errorf("score medium_from must be <= high_from")
	}
	return nil
}

// ExpectedFraction is the share of the daily budget expected by hour.
// Finished days expect the whole budget.
func (c ScoreConfig) ExpectedFraction(hour int, phase DayPhase) float64 {
	if phase == PhaseFinal {
		return 1
	}
	f := float64(hour-c.DayStartHour) / float64(c.DayEndHour-c.DayStartHour)
	return math.Min(math.Max(f, c.MinExpectedFraction), 1)
}

// EnergyScore scores intake against budget*fraction.
func (c ScoreConfig) EnergyScore(intake, budget, fraction float64) float64 {
	expected := math.Max(budget, 1) * math.Max(fraction, 0)
	if expected <= 0 {
		return 0
	}
	dev := math.Abs(clamp0(intake)/expected - 1)
	return bandScore(dev, c.EnergyFullBand, c.EnergyZeroBand)
}

// bandScore is 100 up to full, 0 from zero on, linear in between.
func bandScore(dev, full, zero float64) float64 {
	switch {
	case dev <= full:
		return 100
	case dev >= zero:
		return 0
	default:
		return clampScore(100 * (zero - dev) / (zero - full))
	}
}

func (c ScoreConfig) shareScore(share float64, band ShareBand) float64 {
	dist := 0.0
	if share < band.Min {
		dist = band.Min - share
	} else if share > band.Max {
		dist = share - band.Max
	}
	return clampScore(100 - dist*c.SharePenalty)
}

func (c ScoreConfig) BalanceScore(shares MacroShares) float64 {
	sum := c.shareScore(shares.Carbs, c.CarbsBand) +
		c.shareScore(shares.Protein, c.ProteinBand) +
		c.shareScore(shares.Fat, c.FatBand)
	return clampScore(sum / 3)
}

// TargetScore averages the adherence of every macro with a positive target.
// ok is false when no target is set.
func (c ScoreConfig) TargetScore(values, targets MacroValues) (score float64, ok bool) {
	v := values.Clamped()
	pairs := [][2]float64{
		{v.CarbsG, targets.CarbsG},
		{v.ProteinG, targets.ProteinG},
		{v.FatG, targets.FatG},
	}
	sum, n := 0.0, 0
	for _, p := range pairs {
		if p[1] <= 0 {
			continue
		}
		sum += bandScore(math.Abs(p[0]/p[1]-1), c.TargetFullBand, c.TargetZeroBand)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return clampScore(sum / float64(n)), true
}

func (c ScoreConfig) MacroScore(shares MacroShares, values, targets MacroValues, useTargets bool) float64 {
	balance := c.BalanceScore(shares)
	if !useTargets {
		return balance
	}
	target, ok := c.TargetScore(values, targets)
	if !ok {
		return balance
	}
	return clampScore(balance*c.BalanceWeight + target*c.TargetWeight)
}

func (c ScoreConfig) Tier(v int) ScoreTier {
	switch {
	case v >= c.HighFrom:
		return TierHigh
	case v >= c.MediumFrom:
		return TierMedium
	default:
		return TierLow
	}
}

type ScoreInput struct {
	Intake  float64
	Budget  float64
	Hour    int
	Phase   DayPhase
	Macros  MacroValues
	Targets MacroValues
	// UseTargets allows target adherence into the score; off while today is in progress.
	UseTargets bool
}

// ComposeNutritionScore blends the energy and macro sub-scores. A day with no
// intake at all scores NeutralScore.
func (c ScoreConfig) ComposeNutritionScore(in ScoreInput) ScoreResult {
	if clamp0(in.Intake) == 0 && in.Macros.TotalGrams() == 0 {
		v := clampInt(c.NeutralScore)
		return ScoreResult{Value: v, Tier: c.Tier(v)}
	}
	energy := clampScore(c.EnergyScore(in.Intake, in.Budget, c.ExpectedFraction(in.Hour, in.Phase)))
	macro := clampScore(c.MacroScore(MacroSharesOf(in.Macros), in.Macros, in.Targets, in.UseTargets))
	v := clampInt(int(math.Round(energy*c.EnergyWeight + macro*c.MacroWeight)))
	return ScoreResult{Value: v, Tier: c.Tier(v)}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 100)
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
