package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecology747-sudo/gluvib/internal/logging"
	"github.com/ecology747-sudo/gluvib/internal/metrics"
	"github.com/ecology747-sudo/gluvib/internal/model"
)

type LoadRequest struct {
	Metrics []model.Metric
	From    model.Day
	To      model.Day
	// TargetsOn selects the macro targets in effect on that day.
	TargetsOn model.Day
}

// Dataset is one consistent read of the sample source.
type Dataset struct {
	Series  map[model.Metric]model.DailySeries
	Targets *model.MacroTargets
}

// Source is the health-data store the pipeline reads from.
type Source interface {
	// Load returns every requested series as of a single point in time.
	Load(ctx context.Context, req LoadRequest) (Dataset, error)
	// Subscribe calls fn whenever a metric's data changes.
	Subscribe(fn func(model.Metric)) (unsubscribe func())
	// Refresh asks the source to refetch from its upstream.
	Refresh(ctx context.Context) error
}

type Options struct {
	Metrics        []model.Metric
	Now            func() time.Time
	Deferrer       Deferrer
	Score          *ScoreConfig
	LookbackDays   int
	DailyChartDays int
	Logger         *zerolog.Logger
}

const (
	defaultLookbackDays   = 365
	defaultDailyChartDays = 90
)

type MetricView struct {
	Metric      model.Metric          `json:"metric"`
	Label       string                `json:"label"`
	Unit        string                `json:"unit"`
	Value       float64               `json:"value"`
	HasValue    bool                  `json:"has_value"`
	Display     string                `json:"display"`
	Live        bool                  `json:"live"`
	Periods     []model.PeriodAverage `json:"periods"`
	DailyScale  ScaleResult           `json:"daily_scale"`
	PeriodScale ScaleResult           `json:"period_scale"`
}

type NutritionView struct {
	IntakeKcal  float64             `json:"intake_kcal"`
	BudgetKcal  float64             `json:"budget_kcal"`
	EnergyRatio float64             `json:"energy_ratio"`
	Energy      EnergyLevel         `json:"energy_level"`
	Macros      MacroValues         `json:"macros"`
	Shares      MacroShares         `json:"shares"`
	TotalGrams  float64             `json:"total_grams"`
	Profile     MacroProfile        `json:"macro_profile"`
	TargetMatch MacroTargetMatch    `json:"target_match"`
	HasTargets  bool                `json:"has_targets"`
	Targets     *model.MacroTargets `json:"targets,omitempty"`
	Insight     InsightResult       `json:"insight"`
	Score       ScoreResult         `json:"score"`
}

type MetabolicView struct {
	HasGlucose  bool               `json:"has_glucose"`
	MeanMgDL    float64            `json:"mean_mg_dl"`
	HasCV       bool               `json:"has_cv"`
	CVPercent   float64            `json:"cv_percent"`
	Variability GlucoseVariability `json:"variability,omitempty"`
}

// Snapshot is an immutable set of derived outputs for one selected day.
type Snapshot struct {
	Generation uint64        `json:"generation"`
	ComputedAt time.Time     `json:"computed_at"`
	Today      model.Day     `json:"today"`
	Date       model.Day     `json:"date"`
	Offset     int           `json:"offset"`
	Context    DayContext    `json:"context"`
	Phase      DayPhase      `json:"phase"`
	Band       TimeOfDayBand `json:"band,omitempty"`
	Metrics    []MetricView  `json:"metrics"`
	Nutrition  NutritionView `json:"nutrition"`
	Metabolic  MetabolicView `json:"metabolic"`
}

func (s Snapshot) Version() uint64 { return s.Generation }

func (s Snapshot) Metric(m model.Metric) (MetricView, bool) {
	for _, v := range s.Metrics {
		if v.Metric == m {
			return v, true
		}
	}
	return MetricView{}, false
}

type Pipeline struct {
	source    Source
	opts      Options
	score     ScoreConfig
	log       zerolog.Logger
	scheduler *RemapScheduler
	today     *TodayCache
	out       *Observable[Snapshot]
	offset    atomic.Int64

	mu          sync.Mutex
	unsubscribe func()
}

func New(source Source, opts Options) *Pipeline {
	if len(opts.Metrics) == 0 {
		opts.Metrics = model.AllMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.DailyChartDays <= 0 {
		opts.DailyChartDays = defaultDailyChartDays
	}
	score := DefaultScoreConfig()
	if opts.Score != nil {
		score = *opts.Score
	}
	log := logging.Component("pipeline")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	p := &Pipeline{
		source: source,
		opts:   opts,
		score:  score,
		log:    log,
		today:  NewTodayCache(),
		out:    NewObservable[Snapshot](),
	}
	p.scheduler = NewRemapScheduler(opts.Deferrer, p.recompute, log)
	return p
}

// Start subscribes to source changes; every change schedules a coalesced recompute.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		return
	}
	p.unsubscribe = p.source.Subscribe(func(m model.Metric) {
		p.log.Debug().Str("metric", string(m)).Msg("source changed")
		p.scheduler.Trigger()
	})
}

func (p *Pipeline) Close() {
	p.mu.Lock()
	unsub := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	p.scheduler.Stop()
}

func (p *Pipeline) Current() (Snapshot, bool) { return p.out.Current() }

func (p *Pipeline) Subscribe(fn func(Snapshot)) func() { return p.out.Subscribe(fn) }

func (p *Pipeline) Scheduler() *RemapScheduler { return p.scheduler }

func (p *Pipeline) SelectedOffset() int { return int(p.offset.Load()) }

// ApplySelectedDayOffset selects the viewed day and recomputes immediately.
// Positive offsets are treated as the matching past day.
func (p *Pipeline) ApplySelectedDayOffset(offset int) {
	p.offset.Store(int64(ClampOffset(offset)))
	p.scheduler.Flush()
}

// Refresh asks the source to refetch and then recomputes, even when the
// refetch failed, so the outputs reflect whatever the source now holds.
func (p *Pipeline) Refresh(ctx context.Context) error {
	err := p.source.Refresh(ctx)
	p.scheduler.Flush()
	if err != nil {
		return fmt.Errorf("refresh sample source: %w", err)
	}
	return nil
}

func (p *Pipeline) RecomputeNow() { p.scheduler.Flush() }

func (p *Pipeline) recompute(token uint64) {
	start := time.Now()
	now := p.opts.Now()
	offset := p.SelectedOffset()
	today := model.DayOf(now)
	date := ResolveDate(offset, today)

	ds, err := p.source.Load(context.Background(), LoadRequest{
		Metrics:   p.opts.Metrics,
		From:      date.AddDays(-p.opts.LookbackDays),
		To:        date,
		TargetsOn: date,
	})
	if err != nil {
		metrics.SourceLoadErrors.Inc()
		p.log.Error().Err(err).Uint64("token", token).Msg("load samples")
		return
	}

	snap := p.compute(token, now, offset, ds)
	if p.out.Publish(snap) {
		metrics.SnapshotGeneration.Set(float64(snap.Generation))
	}
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	p.log.Debug().
		Uint64("generation", snap.Generation).
		Str("date", snap.Date.String()).
		Int("score", snap.Nutrition.Score.Value).
		Msg("snapshot published")
}

func (p *Pipeline) compute(gen uint64, now time.Time, offset int, ds Dataset) Snapshot {
	today := model.DayOf(now)
	date := ResolveDate(offset, today)
	isToday := date == today
	hour := now.Hour()

	phase := PhaseFinal
	if isToday {
		phase = ClassifyDayPhase(hour)
	}
	snap := Snapshot{
		Generation: gen,
		ComputedAt: now,
		Today:      today,
		Date:       date,
		Offset:     offset,
		Context:    DayContextFor(offset),
		Phase:      phase,
		Metrics:    make([]MetricView, 0, len(p.opts.Metrics)),
	}
	// The time-of-day band only describes a day still in progress.
	if isToday {
		snap.Band = ClassifyTimeOfDay(hour)
	}

	values := make(map[model.Metric]float64, len(p.opts.Metrics))
	has := make(map[model.Metric]bool, len(p.opts.Metrics))
	for _, m := range p.opts.Metrics {
		view := p.metricView(m, ds.Series[m], date, isToday)
		values[m] = view.Value
		has[m] = view.HasValue
		snap.Metrics = append(snap.Metrics, view)
	}

	snap.Nutrition = p.nutritionView(values, ds.Targets, snap)
	if has[model.MetricGlucose] {
		snap.Metabolic = MetabolicView{
			HasGlucose: true,
			MeanMgDL:   values[model.MetricGlucose],
		}
		// Days with too few readings carry no CV sample and stay unclassified.
		if has[model.MetricGlucoseCV] {
			cv := DisplayValue(model.MetricGlucoseCV, values[model.MetricGlucoseCV])
			snap.Metabolic.HasCV = true
			snap.Metabolic.CVPercent = cv
			snap.Metabolic.Variability = ClassifyGlucoseVariability(cv)
		}
	}
	return snap
}

func (p *Pipeline) metricView(m model.Metric, series model.DailySeries, date model.Day, isToday bool) MetricView {
	info, ok := model.Info(m)
	if !ok {
		info = model.MetricInfo{Metric: m, Label: string(m), Scale: model.ScaleCount}
	}
	series.Metric = m

	chartFrom := date.AddDays(-(p.opts.DailyChartDays - 1))
	chartSeries := series
	value, has := series.Lookup(date)
	if info.ForwardFill {
		chartSeries = ForwardFill(series, chartFrom, date)
		if !has || value <= 0 {
			value, has = LatestAtOrBefore(series, date)
		}
	}
	live := isToday && info.Cumulative
	if live {
		value = p.today.Observe(m, date, value)
		has = has || value > 0
	}

	daily := ValuesBetween(chartSeries, chartFrom, date)
	if live && len(daily) > 0 {
		daily[len(daily)-1] = value
	}
	periods := PeriodAverages(series, date, StandardWindows, info.Zero)
	periodValues := make([]float64, 0, len(periods))
	for _, pa := range periods {
		periodValues = append(periodValues, pa.Value)
	}

	display := "–"
	if has && value > 0 {
		display = FormatValue(info.Scale, value)
	}
	return MetricView{
		Metric:      m,
		Label:       info.Label,
		Unit:        info.Unit,
		Value:       value,
		HasValue:    has,
		Display:     display,
		Live:        live,
		Periods:     periods,
		DailyScale:  Scale(daily, info.Scale),
		PeriodScale: Scale(periodValues, info.Scale),
	}
}

func (p *Pipeline) nutritionView(values map[model.Metric]float64, targets *model.MacroTargets, snap Snapshot) NutritionView {
	intake := values[model.MetricIntakeEnergy]
	active := values[model.MetricActiveEnergy]
	resting := values[model.MetricRestingEnergy]
	macros := MacroValues{
		CarbsG:   values[model.MetricCarbs],
		ProteinG: values[model.MetricProtein],
		FatG:     values[model.MetricFat],
	}.Clamped()

	targetValues := MacroValues{}
	if targets != nil {
		targetValues = MacroValues{CarbsG: targets.CarbsG, ProteinG: targets.ProteinG, FatG: targets.FatG}
	}
	hasTargets := targets.Any()
	inProgress := snap.Context == DayContextToday && snap.Phase == PhaseSoFar

	shares := MacroSharesOf(macros)
	total := macros.TotalGrams()
	ratio := EnergyRatio(intake, active, resting)
	energy := ClassifyEnergyLevel(ratio)
	profile := ClassifyMacroProfile(shares, total)
	match := ClassifyMacroTargetMatch(macros, targetValues)

	view := NutritionView{
		IntakeKcal:  clamp0(intake),
		BudgetKcal:  math.Max(clamp0(active)+clamp0(resting), 1),
		EnergyRatio: ratio,
		Energy:      energy,
		Macros:      macros,
		Shares:      shares,
		TotalGrams:  total,
		Profile:     profile,
		TargetMatch: match,
		HasTargets:  hasTargets,
		Targets:     targets,
	}
	view.Insight = ComposeNutritionInsight(InsightInput{
		Context:     snap.Context,
		Phase:       snap.Phase,
		Band:        snap.Band,
		Energy:      energy,
		Profile:     profile,
		TargetMatch: match,
		HasTargets:  hasTargets,
	})
	view.Score = p.score.ComposeNutritionScore(ScoreInput{
		Intake:     intake,
		Budget:     view.BudgetKcal,
		Hour:       snap.ComputedAt.Hour(),
		Phase:      snap.Phase,
		Macros:     macros,
		Targets:    targetValues,
		UseTargets: hasTargets && !inProgress,
	})
	return view
}
