package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecology747-sudo/gluvib/internal/db"
	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

func newTestStore(t *testing.T) *store.SQLite {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "gluvib.db"))
	if err != nil {
		t.Fatalf("open migrated db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	s := store.NewSQLite(sqldb)
	s.Now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local) }
	return s
}

type recorder struct {
	mu   sync.Mutex
	seen []model.Metric
}

func (r *recorder) record(m model.Metric) {
	r.mu.Lock()
	r.seen = append(r.seen, m)
	r.mu.Unlock()
}

func (r *recorder) metrics() []model.Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Metric(nil), r.seen...)
}

func TestAddSampleUpsertsAndNotifies(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)
	defer unsubscribe()

	if err := s.AddSample(ctx, store.SampleInput{Metric: "steps", Date: "2026-03-09", Value: 4000}); err != nil {
		t.Fatalf("add sample: %v", err)
	}
	if err := s.AddSample(ctx, store.SampleInput{Metric: "steps", Date: "2026-03-09", Value: 6500}); err != nil {
		t.Fatalf("replace sample: %v", err)
	}

	rows, err := s.ListSamples(ctx, store.ListFilter{Metric: model.MetricSteps})
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(rows))
	}
	if rows[0].Value != 6500 || rows[0].Source != store.SourceManual {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if got := rec.metrics(); len(got) != 2 || got[0] != model.MetricSteps {
		t.Fatalf("expected two steps notifications, got %v", got)
	}
}

func TestAddSampleValidation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	cases := []store.SampleInput{
		{Metric: "unknown", Date: "2026-03-09", Value: 1},
		{Metric: "steps", Date: "03/09/2026", Value: 1},
		{Metric: "steps", Date: "2026-03-09", Value: -1},
	}
	for _, in := range cases {
		if err := s.AddSample(ctx, in); err == nil {
			t.Fatalf("expected validation error for %+v", in)
		}
	}
}

func TestImportSamplesIsAtomic(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	bad := `
samples:
  - metric: steps
    date: 2026-03-01
    value: 1000
  - metric: steps
    date: 2026-03-02
    value: -5
`
	if _, err := s.ImportSamples(ctx, strings.NewReader(bad)); err == nil {
		t.Fatalf("expected import with negative value to fail")
	}
	rows, err := s.ListSamples(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected nothing written by failed import, got %d rows", len(rows))
	}

	good := `
samples:
  - metric: steps
    date: 2026-03-01
    value: 1000
  - metric: carbs
    date: 2026-03-01
    value: 180
  - metric: steps
    date: 2026-03-02
    value: 2000
`
	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	report, err := s.ImportSamples(ctx, strings.NewReader(good))
	if err != nil {
		t.Fatalf("import samples: %v", err)
	}
	if report.Imported != 3 || report.BatchID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Metrics) != 2 {
		t.Fatalf("expected 2 distinct metrics, got %v", report.Metrics)
	}
	if got := rec.metrics(); len(got) != 2 {
		t.Fatalf("expected one notification per distinct metric, got %v", got)
	}

	rows, err = s.ListSamples(ctx, store.ListFilter{Metric: model.MetricSteps})
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	for _, r := range rows {
		if r.ImportBatch != report.BatchID || r.Source != store.SourceImport {
			t.Fatalf("expected imported row tagged with batch %s, got %+v", report.BatchID, r)
		}
	}
}

func TestImportSamplesRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	doc := "samples:\n  - metric: steps\n    day: 2026-03-01\n    value: 10\n"
	if _, err := s.ImportSamples(context.Background(), strings.NewReader(doc)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestTargetsLatestEffectiveDate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetTargets(ctx, model.MacroTargets{EffectiveDate: "2026-03-01", Kcal: 2000, CarbsG: 200, ProteinG: 120, FatG: 70}); err != nil {
		t.Fatalf("set targets: %v", err)
	}
	if err := s.SetTargets(ctx, model.MacroTargets{EffectiveDate: "2026-03-05", Kcal: 1800, CarbsG: 150, ProteinG: 130, FatG: 60}); err != nil {
		t.Fatalf("set targets: %v", err)
	}

	day := func(s string) model.Day {
		d, err := model.ParseDay(s)
		if err != nil {
			t.Fatalf("parse day: %v", err)
		}
		return d
	}

	got, err := s.CurrentTargets(ctx, day("2026-03-04"))
	if err != nil {
		t.Fatalf("current targets: %v", err)
	}
	if got == nil || got.Kcal != 2000 {
		t.Fatalf("expected first targets on 2026-03-04, got %+v", got)
	}
	got, err = s.CurrentTargets(ctx, day("2026-03-05"))
	if err != nil {
		t.Fatalf("current targets: %v", err)
	}
	if got == nil || got.Kcal != 1800 {
		t.Fatalf("expected second targets on 2026-03-05, got %+v", got)
	}
	got, err = s.CurrentTargets(ctx, day("2026-02-28"))
	if err != nil {
		t.Fatalf("current targets: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no targets before the first effective date, got %+v", got)
	}
}

func TestLoadReturnsRequestedRangeAndTargets(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, in := range []store.SampleInput{
		{Metric: "steps", Date: "2026-02-28", Value: 100},
		{Metric: "steps", Date: "2026-03-01", Value: 200},
		{Metric: "steps", Date: "2026-03-03", Value: 300},
		{Metric: "steps", Date: "2026-03-04", Value: 400},
		{Metric: "weight", Date: "2026-03-02", Value: 81.2},
	} {
		if err := s.AddSample(ctx, in); err != nil {
			t.Fatalf("add sample: %v", err)
		}
	}
	if err := s.SetTargets(ctx, model.MacroTargets{EffectiveDate: "2026-03-01", Kcal: 2100}); err != nil {
		t.Fatalf("set targets: %v", err)
	}

	from, _ := model.ParseDay("2026-03-01")
	to, _ := model.ParseDay("2026-03-03")
	ds, err := s.Load(ctx, service.LoadRequest{
		Metrics:   []model.Metric{model.MetricSteps, model.MetricWeight, model.MetricGlucose},
		From:      from,
		To:        to,
		TargetsOn: to,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	steps := ds.Series[model.MetricSteps]
	if steps.Len() != 2 {
		t.Fatalf("expected 2 steps samples in range, got %d", steps.Len())
	}
	if steps.Samples[0].Value != 200 || steps.Samples[1].Value != 300 {
		t.Fatalf("unexpected steps samples: %+v", steps.Samples)
	}
	if ds.Series[model.MetricWeight].Len() != 1 {
		t.Fatalf("expected 1 weight sample")
	}
	if got := ds.Series[model.MetricWeight].Samples[0].Value; got != 812 {
		t.Fatalf("expected weight stored as fixed point 812, got %v", got)
	}
	if g, ok := ds.Series[model.MetricGlucose]; !ok || g.Len() != 0 {
		t.Fatalf("expected empty glucose series to be present")
	}
	if ds.Targets == nil || ds.Targets.Kcal != 2100 {
		t.Fatalf("expected targets in dataset, got %+v", ds.Targets)
	}
}

func TestFixedPointMetricsStoreTenthsAndListDisplayUnits(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSample(ctx, store.SampleInput{Metric: "weight", Date: "2026-03-09", Value: 81.2}); err != nil {
		t.Fatalf("add weight: %v", err)
	}
	doc := `
samples:
  - metric: body_fat
    date: 2026-03-09
    value: 22.1
  - metric: steps
    date: 2026-03-09
    value: 8000
`
	if _, err := s.ImportSamples(ctx, strings.NewReader(doc)); err != nil {
		t.Fatalf("import samples: %v", err)
	}

	day, _ := model.ParseDay("2026-03-09")
	ds, err := s.Load(ctx, service.LoadRequest{
		Metrics: []model.Metric{model.MetricWeight, model.MetricBodyFat, model.MetricSteps},
		From:    day,
		To:      day,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[model.Metric]float64{model.MetricWeight: 812, model.MetricBodyFat: 221, model.MetricSteps: 8000}
	for m, v := range want {
		if got, _ := ds.Series[m].Lookup(day); got != v {
			t.Fatalf("%s: expected stored %v, got %v", m, v, got)
		}
	}

	rows, err := s.ListSamples(ctx, store.ListFilter{Metric: model.MetricWeight})
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(rows) != 1 || rows[0].Value != 81.2 {
		t.Fatalf("expected weight listed as 81.2, got %+v", rows)
	}
}

type fakeGlucose struct {
	from, to model.Day
	err      error
}

func (f *fakeGlucose) DailyGlucose(_ context.Context, from, to model.Day) (model.DailySeries, model.DailySeries, error) {
	f.from, f.to = from, to
	if f.err != nil {
		return model.DailySeries{}, model.DailySeries{}, f.err
	}
	mean := model.NewDailySeries(model.MetricGlucose, []model.DailySample{{Date: to, Value: 118}})
	cv := model.NewDailySeries(model.MetricGlucoseCV, []model.DailySample{{Date: to, Value: 284}})
	return mean, cv, nil
}

func TestRefreshWritesProviderSeries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Refresh(ctx); !errors.Is(err, store.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}

	provider := &fakeGlucose{}
	s.Provider = provider
	s.RefreshDays = 7

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if provider.to.String() != "2026-03-10" || provider.from.String() != "2026-03-04" {
		t.Fatalf("unexpected refresh range %s..%s", provider.from, provider.to)
	}
	rows, err := s.ListSamples(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 refreshed rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Source != store.SourceNightscout {
			t.Fatalf("expected nightscout source, got %+v", r)
		}
	}
	if got := rec.metrics(); len(got) != 2 {
		t.Fatalf("expected glucose and glucose_cv notifications, got %v", got)
	}

	provider.err = errors.New("upstream down")
	if err := s.Refresh(ctx); err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, " Nightscout_URL ", " https://ns.example.test "); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	v, ok, err := s.GetSetting(ctx, store.SettingNightscoutURL)
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if !ok || v != "https://ns.example.test" {
		t.Fatalf("unexpected setting value %q (found=%v)", v, ok)
	}
	if _, ok, err := s.GetSetting(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing setting, got found=%v err=%v", ok, err)
	}
	all, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("list settings: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 setting, got %v", all)
	}
	if err := s.SetSetting(ctx, "  ", "x"); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}
