package nightscout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ecology747-sudo/gluvib/internal/model"
	"github.com/ecology747-sudo/gluvib/internal/service"
)

// readingsPerDay bounds the count parameter: one CGM reading every 5 minutes.
const readingsPerDay = 288

// Entry is one sensor glucose reading as served by /api/v1/entries.
type Entry struct {
	ID        string `json:"_id"`
	SGV       int    `json:"sgv"`
	Date      int64  `json:"date"`
	DateStr   string `json:"dateString"`
	Trend     int    `json:"trend"`
	Direction string `json:"direction"`
	Device    string `json:"device"`
	Type      string `json:"type"`
}

func (e Entry) Time() time.Time { return time.UnixMilli(e.Date) }

func (e Entry) EntryDay() model.Day { return model.DayOf(e.Time()) }

func (e Entry) NumericValue() float64 { return float64(e.SGV) }

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Entries returns the sgv readings in [from, to).
func (c *Client) Entries(ctx context.Context, from, to time.Time) ([]Entry, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing Nightscout base URL")
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid Nightscout range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	days := int(math.Ceil(to.Sub(from).Hours() / 24))
	q := url.Values{}
	q.Set("find[date][$gte]", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("find[date][$lt]", strconv.FormatInt(to.UnixMilli(), 10))
	q.Set("count", strconv.Itoa(days*readingsPerDay))
	if tok := strings.TrimSpace(c.Token); tok != "" {
		q.Set("token", tok)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/entries/sgv.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create Nightscout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute Nightscout request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read Nightscout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Nightscout request failed with status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode Nightscout response: %w", err)
	}

	out := entries[:0]
	for _, e := range entries {
		if e.SGV <= 0 || (e.Type != "" && e.Type != "sgv") {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DailyGlucose fetches the readings for the days from..to and aggregates them.
func (c *Client) DailyGlucose(ctx context.Context, from, to model.Day) (model.DailySeries, model.DailySeries, error) {
	entries, err := c.Entries(ctx, from.Start(time.Local), to.AddDays(1).Start(time.Local))
	if err != nil {
		return model.DailySeries{}, model.DailySeries{}, err
	}
	mean, cv := DailyGlucose(entries)
	return mean, cv, nil
}

// DailyGlucose returns the daily mean in mg/dL and the daily coefficient of
// variation in percent, stored x10. Days with a single reading have no CV.
func DailyGlucose(entries []Entry) (mean, cv model.DailySeries) {
	mean = model.DailyMeans(model.MetricGlucose, entries)

	byDay := map[model.Day][]float64{}
	for _, e := range entries {
		byDay[e.EntryDay()] = append(byDay[e.EntryDay()], e.NumericValue())
	}

	means := make([]model.DailySample, 0, mean.Len())
	cvs := make([]model.DailySample, 0, mean.Len())
	for _, s := range mean.Samples {
		means = append(means, model.DailySample{Date: s.Date, Value: math.Round(s.Value)})

		values := byDay[s.Date]
		if len(values) < 2 || s.Value <= 0 {
			continue
		}
		var sq float64
		for _, v := range values {
			d := v - s.Value
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(len(values)))
		cvs = append(cvs, model.DailySample{Date: s.Date, Value: service.StoredValue(model.MetricGlucoseCV, sd/s.Value*100)})
	}
	return model.NewDailySeries(model.MetricGlucose, means), model.NewDailySeries(model.MetricGlucoseCV, cvs)
}
