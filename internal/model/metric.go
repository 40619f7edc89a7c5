package model

import (
	"fmt"
	"sort"
	"strings"
)

type Metric string

const (
	MetricSteps           Metric = "steps"
	MetricExerciseMinutes Metric = "exercise_minutes"
	MetricActiveEnergy    Metric = "active_energy"
	MetricRestingEnergy   Metric = "resting_energy"
	MetricIntakeEnergy    Metric = "intake_energy"
	MetricCarbs           Metric = "carbs"
	MetricProtein         Metric = "protein"
	MetricFat             Metric = "fat"
	MetricWeight          Metric = "weight"
	MetricBodyFat         Metric = "body_fat"
	MetricSleepMinutes    Metric = "sleep_minutes"
	MetricRestingHR       Metric = "resting_heart_rate"
	MetricGlucose         Metric = "glucose"
	MetricGlucoseCV       Metric = "glucose_cv"
	MetricInsulin         Metric = "insulin"
)

// ScaleKind selects the axis rounding and label format of a metric.
type ScaleKind string

const (
	ScaleCount      ScaleKind = "count"
	ScaleGrams      ScaleKind = "grams"
	ScaleKcal       ScaleKind = "kcal"
	ScaleMinutes    ScaleKind = "minutes"
	ScaleBPM        ScaleKind = "bpm"
	ScaleMgDL       ScaleKind = "mg_dl"
	ScalePercentX10 ScaleKind = "percent_x10"
	ScaleRatioX10   ScaleKind = "ratio_x10"
)

// FixedPoint reports whether values of this kind are stored x10 (one decimal).
func (k ScaleKind) FixedPoint() bool {
	return k == ScalePercentX10 || k == ScaleRatioX10
}

// ZeroPolicy decides which days count toward a rolling average.
type ZeroPolicy int

const (
	// ExcludeZero counts only days with a value > 0.
	ExcludeZero ZeroPolicy = iota
	// IncludeRecorded counts every day that has a sample, including 0.
	IncludeRecorded
)

type MetricInfo struct {
	Metric Metric
	Label  string
	Unit   string
	Scale  ScaleKind
	// Cumulative values only grow over a day, so the live today value is held monotonic.
	Cumulative bool
	// ForwardFill carries the last measurement over days without one.
	ForwardFill bool
	Zero        ZeroPolicy
}

// Stored values for x10 metrics are fixed-point (one decimal).
var metricInfos = map[Metric]MetricInfo{
	MetricSteps:           {Metric: MetricSteps, Label: "Steps", Unit: "steps", Scale: ScaleCount, Cumulative: true},
	MetricExerciseMinutes: {Metric: MetricExerciseMinutes, Label: "Exercise", Unit: "min", Scale: ScaleMinutes, Cumulative: true},
	MetricActiveEnergy:    {Metric: MetricActiveEnergy, Label: "Active energy", Unit: "kcal", Scale: ScaleKcal, Cumulative: true},
	MetricRestingEnergy:   {Metric: MetricRestingEnergy, Label: "Resting energy", Unit: "kcal", Scale: ScaleKcal, Cumulative: true},
	MetricIntakeEnergy:    {Metric: MetricIntakeEnergy, Label: "Energy intake", Unit: "kcal", Scale: ScaleKcal, Cumulative: true},
	MetricCarbs:           {Metric: MetricCarbs, Label: "Carbs", Unit: "g", Scale: ScaleGrams, Cumulative: true},
	MetricProtein:         {Metric: MetricProtein, Label: "Protein", Unit: "g", Scale: ScaleGrams, Cumulative: true},
	MetricFat:             {Metric: MetricFat, Label: "Fat", Unit: "g", Scale: ScaleGrams, Cumulative: true},
	MetricWeight:          {Metric: MetricWeight, Label: "Weight", Unit: "kg x10", Scale: ScaleRatioX10, ForwardFill: true},
	MetricBodyFat:         {Metric: MetricBodyFat, Label: "Body fat", Unit: "% x10", Scale: ScalePercentX10, ForwardFill: true},
	MetricSleepMinutes:    {Metric: MetricSleepMinutes, Label: "Sleep", Unit: "min", Scale: ScaleMinutes},
	MetricRestingHR:       {Metric: MetricRestingHR, Label: "Resting heart rate", Unit: "bpm", Scale: ScaleBPM},
	MetricGlucose:         {Metric: MetricGlucose, Label: "Glucose", Unit: "mg/dL", Scale: ScaleMgDL},
	MetricGlucoseCV:       {Metric: MetricGlucoseCV, Label: "Glucose CV", Unit: "% x10", Scale: ScalePercentX10},
	MetricInsulin:         {Metric: MetricInsulin, Label: "Insulin", Unit: "U", Scale: ScaleCount, Cumulative: true},
}

func Info(m Metric) (MetricInfo, bool) {
	info, ok := metricInfos[m]
	return info, ok
}

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := metricInfos[m]; !ok {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

// AllMetrics returns every known metric in name order.
func AllMetrics() []Metric {
	out := make([]Metric, 0, len(metricInfos))
	for m := range metricInfos {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NutritionMetrics are the series the energy and macro views read.
var NutritionMetrics = []Metric{
	MetricIntakeEnergy,
	MetricActiveEnergy,
	MetricRestingEnergy,
	MetricCarbs,
	MetricProtein,
	MetricFat,
}
