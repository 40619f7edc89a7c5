package service

import (
	"sync"

	"github.com/ecology747-sudo/gluvib/internal/model"
)

// TodayCache keeps the displayed live value of the current day from going
// down when a partial read arrives after a fuller one.
type TodayCache struct {
	mu     sync.Mutex
	day    model.Day
	values map[model.Metric]float64
}

func NewTodayCache() *TodayCache {
	return &TodayCache{values: map[model.Metric]float64{}}
}

// Observe records a live value for day and returns the value to display.
// A new day drops every cached value once, so the first read of the day wins.
func (c *TodayCache) Observe(metric model.Metric, day model.Day, live float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if day != c.day {
		c.day = day
		c.values = map[model.Metric]float64{}
	}
	if live < 0 {
		live = 0
	}
	prev, ok := c.values[metric]
	if ok && prev > live {
		return prev
	}
	c.values[metric] = live
	return live
}

func (c *TodayCache) Day() model.Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}
