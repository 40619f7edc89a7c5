package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
)

// Memory is an in-process sample source.
type Memory struct {
	notifier

	mu      sync.RWMutex
	series  map[model.Metric]map[model.Day]float64
	targets []model.MacroTargets

	// RefreshFunc, when set, is called by Refresh with the store itself.
	RefreshFunc func(ctx context.Context, m *Memory) error
}

func NewMemory() *Memory {
	return &Memory{series: map[model.Metric]map[model.Day]float64{}}
}

// Put stores value as is; x10 metrics expect the fixed-point value
// (see service.StoredValue).
func (m *Memory) Put(metric model.Metric, day model.Day, value float64) {
	m.mu.Lock()
	m.put(metric, day, value)
	m.mu.Unlock()
	m.notify(metric)
}

func (m *Memory) put(metric model.Metric, day model.Day, value float64) {
	byDay, ok := m.series[metric]
	if !ok {
		byDay = map[model.Day]float64{}
		m.series[metric] = byDay
	}
	byDay[day] = value
}

// PutSeries writes every sample of s and notifies once.
func (m *Memory) PutSeries(s model.DailySeries) {
	m.mu.Lock()
	for _, sample := range s.Samples {
		m.put(s.Metric, sample.Date, sample.Value)
	}
	m.mu.Unlock()
	m.notify(s.Metric)
}

// SetTargets adds or replaces the targets effective from t.EffectiveDate.
func (m *Memory) SetTargets(t model.MacroTargets) {
	m.mu.Lock()
	replaced := false
	for i := range m.targets {
		if m.targets[i].EffectiveDate == t.EffectiveDate {
			m.targets[i] = t
			replaced = true
		}
	}
	if !replaced {
		m.targets = append(m.targets, t)
	}
	sort.Slice(m.targets, func(i, j int) bool { return m.targets[i].EffectiveDate < m.targets[j].EffectiveDate })
	m.mu.Unlock()
	m.notify(model.NutritionMetrics...)
}

func (m *Memory) Load(ctx context.Context, req service.LoadRequest) (service.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return service.Dataset{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := service.Dataset{Series: make(map[model.Metric]model.DailySeries, len(req.Metrics))}
	for _, metric := range req.Metrics {
		samples := make([]model.DailySample, 0)
		for day, v := range m.series[metric] {
			if day.Before(req.From) || day.After(req.To) {
				continue
			}
			samples = append(samples, model.DailySample{Date: day, Value: v})
		}
		out.Series[metric] = model.NewDailySeries(metric, samples)
	}
	key := req.TargetsOn.String()
	for i := len(m.targets) - 1; i >= 0; i-- {
		if m.targets[i].EffectiveDate <= key {
			t := m.targets[i]
			out.Targets = &t
			break
		}
	}
	return out, nil
}

func (m *Memory) Refresh(ctx context.Context) error {
	if m.RefreshFunc == nil {
		return nil
	}
	return m.RefreshFunc(ctx, m)
}
