package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
	"github.com/ecology747-sudo/gluvib/internal/store"
)

func TestMemoryLoadFiltersRangeAndPicksTargets(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	d := model.Day{Year: 2026, Month: 3, Day: 10}
	for i := 0; i < 5; i++ {
		m.Put(model.MetricSteps, d.AddDays(-i), float64(1000*(i+1)))
	}
	m.SetTargets(model.MacroTargets{EffectiveDate: "2026-03-01", Kcal: 2000})
	m.SetTargets(model.MacroTargets{EffectiveDate: "2026-03-11", Kcal: 1500})
	m.SetTargets(model.MacroTargets{EffectiveDate: "2026-03-01", Kcal: 2200})

	ds, err := m.Load(context.Background(), service.LoadRequest{
		Metrics:   []model.Metric{model.MetricSteps},
		From:      d.AddDays(-2),
		To:        d,
		TargetsOn: d,
	})
	require.NoError(t, err)
	steps := ds.Series[model.MetricSteps]
	require.Equal(t, 3, steps.Len())
	assert.Equal(t, d.AddDays(-2), steps.Samples[0].Date)
	assert.Equal(t, 3000.0, steps.Samples[0].Value)
	require.NotNil(t, ds.Targets)
	assert.Equal(t, 2200.0, ds.Targets.Kcal)
}

func TestMemoryNotifiesSubscribersUntilUnsubscribed(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	var got []model.Metric
	unsubscribe := m.Subscribe(func(metric model.Metric) { got = append(got, metric) })

	d := model.Day{Year: 2026, Month: 3, Day: 10}
	m.Put(model.MetricWeight, d, 800)
	m.PutSeries(model.NewDailySeries(model.MetricCarbs, []model.DailySample{{Date: d, Value: 1}, {Date: d.AddDays(-1), Value: 2}}))
	unsubscribe()
	m.Put(model.MetricWeight, d, 801)

	assert.Equal(t, []model.Metric{model.MetricWeight, model.MetricCarbs}, got)
}

func TestMemoryRefreshUsesHook(t *testing.T) {
	t.Parallel()

	m := store.NewMemory()
	require.NoError(t, m.Refresh(context.Background()))

	m.RefreshFunc = func(_ context.Context, mem *store.Memory) error {
		mem.Put(model.MetricGlucose, model.Day{Year: 2026, Month: 3, Day: 10}, 120)
		return nil
	}
	require.NoError(t, m.Refresh(context.Background()))

	ds, err := m.Load(context.Background(), service.LoadRequest{
		Metrics: []model.Metric{model.MetricGlucose},
		From:    model.Day{Year: 2026, Month: 3, Day: 1},
		To:      model.Day{Year: 2026, Month: 3, Day: 31},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Series[model.MetricGlucose].Len())
}
