package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ecology747-sudo/gluvib/internal/model"
)

// FixedPointFactor is the scaling used by x10 metrics (one decimal).
const FixedPointFactor = 10

func ToFixedPoint(v float64) int {
	return int(math.Round(v * FixedPointFactor))
}

func FromFixedPoint(v int) float64 {
	return float64(v) / FixedPointFactor
}

// StoredValue converts a value in display units (81.2 kg) to the stored
// representation of metric (812 for x10 metrics).
func StoredValue(metric model.Metric, v float64) float64 {
	if info, ok := model.Info(metric); ok && info.Scale.FixedPoint() {
		return float64(ToFixedPoint(v))
	}
	return v
}

// DisplayValue is the inverse of StoredValue.
func DisplayValue(metric model.Metric, stored float64) float64 {
	if info, ok := model.Info(metric); ok && info.Scale.FixedPoint() {
		return fromFixedPointFloat(stored)
	}
	return stored
}

func fromFixedPointFloat(v float64) float64 {
	return FromFixedPoint(int(math.Round(v)))
}

type ScaleResult struct {
	Kind         model.ScaleKind      `json:"kind"`
	AxisTicks    []float64            `json:"axis_ticks"`
	AxisMax      float64              `json:"axis_max"`
	Labels       []string             `json:"labels"`
	LabelForTick func(float64) string `json:"-"`
}

type scaleRule struct {
	granularity float64
	fallbackMax float64
	format      func(float64) string
}

const scaleDivisions = 5

var scaleRules = map[model.ScaleKind]scaleRule{
	model.ScaleCount:      {granularity: 10, fallbackMax: 100, format: formatCount},
	model.ScaleGrams:      {granularity: 10, fallbackMax: 50, format: unitFormat("g")},
	model.ScaleKcal:       {granularity: 50, fallbackMax: 500, format: unitFormat("kcal")},
	model.ScaleMinutes:    {granularity: 10, fallbackMax: 60, format: formatMinutes},
	model.ScaleBPM:        {granularity: 10, fallbackMax: 100, format: unitFormat("bpm")},
	model.ScaleMgDL:       {granularity: 20, fallbackMax: 200, format: unitFormat("mg/dL")},
	model.ScalePercentX10: {granularity: 10, fallbackMax: 100, format: formatPercentX10},
	model.ScaleRatioX10:   {granularity: 10, fallbackMax: 100, format: formatRatioX10},
}

func ruleFor(kind model.ScaleKind) scaleRule {
	if r, ok := scaleRules[kind]; ok {
		return r
	}
	return scaleRules[model.ScaleCount]
}

// Scale derives axis ticks for values. It has no state and is safe to call
// concurrently.
func Scale(values []float64, kind model.ScaleKind) ScaleResult {
	rule := ruleFor(kind)
	maxV := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV <= 0 {
		return buildScale(kind, rule, []float64{0, rule.fallbackMax})
	}

	step := niceStep(maxV/scaleDivisions, rule.granularity)
	n := int(math.Ceil(maxV / step))
	for float64(n)*step < maxV {
		n++
	}
	if n < 1 {
		n = 1
	}
	ticks := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return buildScale(kind, rule, ticks)
}

func buildScale(kind model.ScaleKind, rule scaleRule, ticks []float64) ScaleResult {
	labels := make([]string, 0, len(ticks))
	for _, t := range ticks {
		labels = append(labels, rule.format(t))
	}
	return ScaleResult{
		Kind:         kind,
		AxisTicks:    ticks,
		AxisMax:      ticks[len(ticks)-1],
		Labels:       labels,
		LabelForTick: rule.format,
	}
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten, and then up
// to a multiple of granularity.
func niceStep(raw, granularity float64) float64 {
	if raw <= granularity {
		return granularity
	}
	base := math.Pow(10, math.Floor(math.Log10(raw)))
	f := raw / base
	var m float64
	switch {
	case f <= 1:
		m = 1
	case f <= 2:
		m = 2
	case f <= 5:
		m = 5
	default:
		m = 10
	}
	step := m * base
	return math.Ceil(step/granularity) * granularity
}

// FormatValue renders a metric value with the label format of its scale.
func FormatValue(kind model.ScaleKind, v float64) string {
	return ruleFor(kind).format(v)
}

func unitFormat(unit string) func(float64) string {
	return func(v float64) string {
		return fmt.Sprintf("%.0f %s", v, unit)
	}
}

func formatCount(v float64) string {
	if math.Abs(v) >= 1000 {
		s := strconv.FormatFloat(v/1000, 'f', 1, 64)
		return strings.TrimSuffix(s, ".0") + "k"
	}
	return fmt.Sprintf("%.0f", v)
}

func formatMinutes(v float64) string {
	total := int(math.Round(v))
	if total < 60 {
		return fmt.Sprintf("%d min", total)
	}
	h, m := total/60, total%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func formatPercentX10(v float64) string {
	return fmt.Sprintf("%.1f%%", fromFixedPointFloat(v))
}

func formatRatioX10(v float64) string {
	return fmt.Sprintf("%.1f", fromFixedPointFloat(v))
}
