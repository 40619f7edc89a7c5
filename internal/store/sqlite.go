package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ecology747-sudo/gluvib/internal/metrics"
	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
)

const (
	SourceManual     = "manual"
	SourceImport     = "import"
	SourceNightscout = "nightscout"

	defaultRefreshDays = 14
)

// ErrNoProvider is returned by Refresh when no upstream is configured.
var ErrNoProvider = errors.New("no glucose provider configured")

// GlucoseProvider fetches per-day glucose aggregates from an upstream.
type GlucoseProvider interface {
	DailyGlucose(ctx context.Context, from, to model.Day) (mean, cv model.DailySeries, err error)
}

// SQLite is a sample source backed by the samples, targets and settings tables.
type SQLite struct {
	notifier

	db *sql.DB

	Provider    GlucoseProvider
	RefreshDays int
	Now         func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, RefreshDays: defaultRefreshDays, Now: time.Now}
}

// SampleInput is a value as entered, in display units (81.2 kg, 22.1 %).
type SampleInput struct {
	Metric string
	Date   string
	Value  float64
	Source string
}

type Sample struct {
	ID     int64
	Metric model.Metric
	Day    model.Day
	// Value is in display units.
	Value       float64
	Source      string
	ImportBatch string
	UpdatedAt   time.Time
}

// validateSample checks in and returns its value in stored units.
func validateSample(in SampleInput) (model.Metric, model.Day, float64, error) {
	metric, err := model.ParseMetric(strings.TrimSpace(in.Metric))
	if err != nil {
		return "", model.Day{}, 0, err
	}
	day, err := model.ParseDay(strings.TrimSpace(in.Date))
	if err != nil {
		return "", model.Day{}, 0, err
	}
	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
		return "", model.Day{}, 0, fmt.Errorf("%s value must be a finite number", metric)
	}
	if in.Value < 0 {
		return "", model.Day{}, 0, fmt.Errorf("%s value must be >= 0", metric)
	}
	return metric, day, service.StoredValue(metric, in.Value), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSample(ctx context.Context, ex execer, metric model.Metric, day model.Day, value float64, source, batch string) error {
	var batchArg any
	if batch != "" {
		batchArg = batch
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO samples(metric, day, value, source, import_batch)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(metric, day) DO UPDATE SET
  value=excluded.value,
  source=excluded.source,
  import_batch=excluded.import_batch,
  updated_at=CURRENT_TIMESTAMP
`, string(metric), day.String(), value, source, batchArg)
	if err != nil {
		return fmt.Errorf("upsert %s sample for %s: %w", metric, day, err)
	}
	metrics.SamplesWritten.WithLabelValues(string(metric)).Inc()
	return nil
}

// AddSample writes one value, replacing any value already stored for that metric and day.
func (s *SQLite) AddSample(ctx context.Context, in SampleInput) error {
	metric, day, value, err := validateSample(in)
	if err != nil {
		return err
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = SourceManual
	}
	if err := upsertSample(ctx, s.db, metric, day, value, source, ""); err != nil {
		return err
	}
	s.notify(metric)
	return nil
}

type importDocument struct {
	Samples []importRow `yaml:"samples"`
}

type importRow struct {
	Metric string  `yaml:"metric"`
	Date   string  `yaml:"date"`
	Value  float64 `yaml:"value"`
}

type ImportReport struct {
	BatchID  string
	Imported int
	Metrics  []model.Metric
}

// ImportSamples reads a YAML sample document and writes it in one transaction.
// Nothing is written when any row is invalid.
func (s *SQLite) ImportSamples(ctx context.Context, r io.Reader) (ImportReport, error) {
	var doc importDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportReport{}, fmt.Errorf("decode import document: empty input")
		}
		return ImportReport{}, fmt.Errorf("decode import document: %w", err)
	}

	type row struct {
		metric model.Metric
		day    model.Day
		value  float64
	}
	rows := make([]row, 0, len(doc.Samples))
	for i, in := range doc.Samples {
		metric, day, value, err := validateSample(SampleInput{Metric: in.Metric, Date: in.Date, Value: in.Value})
		if err != nil {
			return ImportReport{}, fmt.Errorf("sample %d: %w", i+1, err)
		}
		rows = append(rows, row{metric: metric, day: day, value: value})
	}

	batch := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportReport{}, fmt.Errorf("begin import transaction: %w", err)
	}
	touched := make([]model.Metric, 0, len(rows))
	for _, r := range rows {
		if err := upsertSample(ctx, tx, r.metric, r.day, r.value, SourceImport, batch); err != nil {
			_ = tx.Rollback()
			return ImportReport{}, err
		}
		touched = append(touched, r.metric)
	}
	if err := tx.Commit(); err != nil {
		return ImportReport{}, fmt.Errorf("commit import transaction: %w", err)
	}

	changed := distinctMetrics(touched)
	s.notify(changed...)
	return ImportReport{BatchID: batch, Imported: len(rows), Metrics: changed}, nil
}

type ListFilter struct {
	Metric model.Metric
	From   model.Day
	To     model.Day
	Limit  int
}

func (s *SQLite) ListSamples(ctx context.Context, f ListFilter) ([]Sample, error) {
	query := `
SELECT id, metric, day, value, source, COALESCE(import_batch, ''), updated_at
FROM samples
WHERE 1=1`
	args := make([]any, 0, 4)
	if f.Metric != "" {
		query += ` AND metric = ?`
		args = append(args, string(f.Metric))
	}
	if !f.From.IsZero() {
		query += ` AND day >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += ` AND day <= ?`
		args = append(args, f.To.String())
	}
	query += ` ORDER BY day ASC, metric ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	out := make([]Sample, 0)
	for rows.Next() {
		var (
			smp    Sample
			metric string
			day    string
		)
		if err := rows.Scan(&smp.ID, &metric, &day, &smp.Value, &smp.Source, &smp.ImportBatch, &smp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		smp.Metric = model.Metric(metric)
		smp.Value = service.DisplayValue(smp.Metric, smp.Value)
		if smp.Day, err = model.ParseDay(day); err != nil {
			return nil, fmt.Errorf("scan sample %d: %w", smp.ID, err)
		}
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// SetTargets stores macro targets effective from t.EffectiveDate (today when empty).
func (s *SQLite) SetTargets(ctx context.Context, t model.MacroTargets) error {
	for name, v := range map[string]float64{"kcal": t.Kcal, "carbs": t.CarbsG, "protein": t.ProteinG, "fat": t.FatG} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s target must be >= 0", name)
		}
	}
	t.EffectiveDate = strings.TrimSpace(t.EffectiveDate)
	if t.EffectiveDate == "" {
		t.EffectiveDate = model.DayOf(s.Now()).String()
	}
	if _, err := model.ParseDay(t.EffectiveDate); err != nil {
		return fmt.Errorf("invalid effective date %q (expected YYYY-MM-DD)", t.EffectiveDate)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO targets(kcal, carbs_g, protein_g, fat_g, effective_date)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(effective_date) DO UPDATE SET
  kcal=excluded.kcal,
  carbs_g=excluded.carbs_g,
  protein_g=excluded.protein_g,
  fat_g=excluded.fat_g
`, t.Kcal, t.CarbsG, t.ProteinG, t.FatG, t.EffectiveDate)
	if err != nil {
		return fmt.Errorf("set targets: %w", err)
	}
	s.notify(model.NutritionMetrics...)
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentTargets(ctx context.Context, q queryRower, day model.Day) (*model.MacroTargets, error) {
	var t model.MacroTargets
	err := q.QueryRowContext(ctx, `
SELECT kcal, carbs_g, protein_g, fat_g, effective_date
FROM targets
WHERE effective_date <= ?
ORDER BY effective_date DESC
LIMIT 1
`, day.String()).Scan(&t.Kcal, &t.CarbsG, &t.ProteinG, &t.FatG, &t.EffectiveDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("current targets for %s: %w", day, err)
	}
	return &t, nil
}

// CurrentTargets returns the targets in effect on day, or nil when none are set.
func (s *SQLite) CurrentTargets(ctx context.Context, day model.Day) (*model.MacroTargets, error) {
	return currentTargets(ctx, s.db, day)
}

// Load reads all requested series and the targets inside one transaction.
func (s *SQLite) Load(ctx context.Context, req service.LoadRequest) (service.Dataset, error) {
	out := service.Dataset{Series: make(map[model.Metric]model.DailySeries, len(req.Metrics))}
	if len(req.Metrics) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return service.Dataset{}, fmt.Errorf("begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(req.Metrics))
	args := make([]any, 0, len(req.Metrics)+2)
	for i, m := range req.Metrics {
		placeholders[i] = "?"
		args = append(args, string(m))
	}
	args = append(args, req.From.String(), req.To.String())

	rows, err := tx.QueryContext(ctx, `
SELECT metric, day, value
FROM samples
WHERE metric IN (`+strings.Join(placeholders, ",")+`)
  AND day >= ? AND day <= ?
ORDER BY metric ASC, day ASC
`, args...)
	if err != nil {
		return service.Dataset{}, fmt.Errorf("load samples: %w", err)
	}
	grouped := make(map[model.Metric][]model.DailySample, len(req.Metrics))
	for rows.Next() {
		var (
			metric string
			day    string
			value  float64
		)
		if err := rows.Scan(&metric, &day, &value); err != nil {
			rows.Close()
			return service.Dataset{}, fmt.Errorf("scan sample: %w", err)
		}
		d, err := model.ParseDay(day)
		if err != nil {
			rows.Close()
			return service.Dataset{}, fmt.Errorf("scan %s sample: %w", metric, err)
		}
		m := model.Metric(metric)
		grouped[m] = append(grouped[m], model.DailySample{Date: d, Value: value})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return service.Dataset{}, fmt.Errorf("iterate samples: %w", err)
	}
	rows.Close()

	for _, m := range req.Metrics {
		out.Series[m] = model.NewDailySeries(m, grouped[m])
	}

	if !req.TargetsOn.IsZero() {
		t, err := currentTargets(ctx, tx, req.TargetsOn)
		if err != nil {
			return service.Dataset{}, err
		}
		out.Targets = t
	}
	return out, nil
}

// Refresh pulls the last RefreshDays of glucose from the provider.
func (s *SQLite) Refresh(ctx context.Context) error {
	if s.Provider == nil {
		return ErrNoProvider
	}
	days := s.RefreshDays
	if days <= 0 {
		days = defaultRefreshDays
	}
	to := model.DayOf(s.Now())
	from := to.AddDays(-(days - 1))

	mean, cv, err := s.Provider.DailyGlucose(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch glucose: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refresh transaction: %w", err)
	}
	touched := make([]model.Metric, 0, 2)
	for _, series := range []model.DailySeries{mean, cv} {
		for _, smp := range series.Samples {
			if err := upsertSample(ctx, tx, series.Metric, smp.Date, smp.Value, SourceNightscout, ""); err != nil {
				_ = tx.Rollback()
				return err
			}
			touched = append(touched, series.Metric)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refresh transaction: %w", err)
	}
	s.notify(distinctMetrics(touched)...)
	return nil
}

const (
	SettingNightscoutURL   = "nightscout_url"
	SettingNightscoutToken = "nightscout_token"
)

func normalizeSettingKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", fmt.Errorf("setting key is required")
	}
	return key, nil
}

func (s *SQLite) SetSetting(ctx context.Context, key, value string) error {
	key, err := normalizeSettingKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO settings(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) GetSetting(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeSettingKey(key)
	if err != nil {
		return "", false, err
	}
	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}
