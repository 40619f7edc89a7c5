package model

import (
	"fmt"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a civil date in the local calendar.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return DayOf(t), nil
}

// AddDays normalizes through noon UTC so DST transitions never shift the date.
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool { return o.Before(d) }

func (d Day) IsZero() bool { return d == Day{} }

func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b Day) int {
	ta := time.Date(a.Year, a.Month, a.Day, 12, 0, 0, 0, time.UTC)
	tb := time.Date(b.Year, b.Month, b.Day, 12, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Hours() / 24)
}

type DailySample struct {
	Date  Day     `json:"date"`
	Value float64 `json:"value"`
}

// DailySeries holds at most one sample per day, ordered by date.
type DailySeries struct {
	Metric  Metric        `json:"metric"`
	Samples []DailySample `json:"samples"`
}

// NewDailySeries sorts samples and keeps the last one given for a day.
func NewDailySeries(metric Metric, samples []DailySample) DailySeries {
	byDay := make(map[Day]float64, len(samples))
	for _, s := range samples {
		byDay[s.Date] = s.Value
	}
	out := make([]DailySample, 0, len(byDay))
	for d, v := range byDay {
		out = append(out, DailySample{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return DailySeries{Metric: metric, Samples: out}
}

func (s DailySeries) Len() int { return len(s.Samples) }

func (s DailySeries) Lookup(day Day) (float64, bool) {
	i := sort.Search(len(s.Samples), func(i int) bool { return !s.Samples[i].Date.Before(day) })
	if i < len(s.Samples) && s.Samples[i].Date == day {
		return s.Samples[i].Value, true
	}
	return 0, false
}

// Between returns the samples dated within [from, to].
func (s DailySeries) Between(from, to Day) []DailySample {
	out := make([]DailySample, 0)
	for _, sample := range s.Samples {
		if sample.Date.Before(from) || sample.Date.After(to) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

// Entry is implemented by any dated per-metric record that can feed a series.
type Entry interface {
	EntryDay() Day
	NumericValue() float64
}

// SeriesOf builds a series from one entry per day; later entries win.
func SeriesOf[E Entry](metric Metric, entries []E) DailySeries {
	samples := make([]DailySample, 0, len(entries))
	for _, e := range entries {
		samples = append(samples, DailySample{Date: e.EntryDay(), Value: e.NumericValue()})
	}
	return NewDailySeries(metric, samples)
}

// DailyMeans averages several entries per day into one sample per day.
func DailyMeans[E Entry](metric Metric, entries []E) DailySeries {
	sums := map[Day]float64{}
	counts := map[Day]int{}
	for _, e := range entries {
		sums[e.EntryDay()] += e.NumericValue()
		counts[e.EntryDay()]++
	}
	samples := make([]DailySample, 0, len(sums))
	for d, sum := range sums {
		samples = append(samples, DailySample{Date: d, Value: sum / float64(counts[d])})
	}
	return NewDailySeries(metric, samples)
}

type PeriodAverage struct {
	WindowLabel string  `json:"window_label"`
	WindowDays  int     `json:"window_days"`
	Value       float64 `json:"value"`
}

type MacroTargets struct {
	EffectiveDate string  `json:"effective_date"`
	Kcal          float64 `json:"kcal"`
	CarbsG        float64 `json:"carbs_g"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
}

func (t *MacroTargets) Any() bool {
	return t != nil && (t.CarbsG > 0 || t.ProteinG > 0 || t.FatG > 0)
}
