package service

import (
	"fmt"
	"sort"

	"github.com/ecology747-sudo/gluvib/internal/model"
)

// StandardWindows are the period lengths shown next to every metric.
var StandardWindows = []int{7, 14, 30, 90, 180, 365}

func WindowLabel(days int) string {
	return fmt.Sprintf("%dD", days)
}

// Average returns the mean over the windowDays days before endExclusive,
// counting only days with a value > 0. The end day itself never contributes.
func Average(series model.DailySeries, endExclusive model.Day, windowDays int) float64 {
	return AverageWithPolicy(series, endExclusive, windowDays, model.ExcludeZero)
}

func AverageWithPolicy(series model.DailySeries, endExclusive model.Day, windowDays int, policy model.ZeroPolicy) float64 {
	if windowDays <= 0 || len(series.Samples) == 0 {
		return 0
	}
	// Same duplicate rule as every other series: the last write for a day wins.
	samples := model.NewDailySeries(series.Metric, series.Samples).Samples
	from := endExclusive.AddDays(-windowDays)
	last := endExclusive.AddDays(-1)

	sum := 0.0
	count := 0
	for _, s := range samples {
		if s.Date.Before(from) || s.Date.After(last) {
			continue
		}
		if !qualifies(s.Value, policy) {
			continue
		}
		sum += s.Value
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func qualifies(v float64, policy model.ZeroPolicy) bool {
	if policy == model.IncludeRecorded {
		return v >= 0
	}
	return v > 0
}

// sortedSamples copies and orders samples; callers may pass unsorted series.
func sortedSamples(in []model.DailySample) []model.DailySample {
	out := make([]model.DailySample, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func PeriodAverages(series model.DailySeries, endExclusive model.Day, windows []int, policy model.ZeroPolicy) []model.PeriodAverage {
	out := make([]model.PeriodAverage, 0, len(windows))
	for _, w := range windows {
		out = append(out, model.PeriodAverage{
			WindowLabel: WindowLabel(w),
			WindowDays:  w,
			Value:       AverageWithPolicy(series, endExclusive, w, policy),
		})
	}
	return out
}

// LatestAtOrBefore returns the most recent measured value on or before day.
func LatestAtOrBefore(series model.DailySeries, day model.Day) (float64, bool) {
	samples := sortedSamples(series.Samples)
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Date.After(day) {
			continue
		}
		if samples[i].Value > 0 {
			return samples[i].Value, true
		}
	}
	return 0, false
}

// ForwardFill returns one sample per day in [from, to], carrying the last
// measured value over days that have none. Days before the first
// measurement stay absent. An inverted range yields an empty series.
func ForwardFill(series model.DailySeries, from, to model.Day) model.DailySeries {
	if to.Before(from) {
		return model.DailySeries{Metric: series.Metric}
	}
	samples := sortedSamples(series.Samples)
	out := make([]model.DailySample, 0, model.DaysBetween(from, to)+1)

	last := 0.0
	have := false
	i := 0
	for ; i < len(samples) && samples[i].Date.Before(from); i++ {
		if samples[i].Value > 0 {
			last, have = samples[i].Value, true
		}
	}
	for d := from; !d.After(to); d = d.AddDays(1) {
		for ; i < len(samples) && !samples[i].Date.After(d); i++ {
			if samples[i].Value > 0 {
				last, have = samples[i].Value, true
			}
		}
		if have {
			out = append(out, model.DailySample{Date: d, Value: last})
		}
	}
	return model.DailySeries{Metric: series.Metric, Samples: out}
}

// ValuesBetween returns the values of days in [from, to] in date order,
// one entry per day, 0 for days without a sample. An inverted range yields
// no values.
func ValuesBetween(series model.DailySeries, from, to model.Day) []float64 {
	if to.Before(from) {
		return []float64{}
	}
	byDay := make(map[model.Day]float64, len(series.Samples))
	for _, s := range series.Samples {
		byDay[s.Date] = s.Value
	}
	out := make([]float64, 0, model.DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, byDay[d])
	}
	return out
}
