package store

import (
	"sort"
	"sync"

	"github.com/ecology747-sudo/gluvib/internal/model"
)

// notifier fans change events out to subscribers. Callbacks run on the
// writer's goroutine, after the write is visible to Load.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(model.Metric)
}

func (n *notifier) Subscribe(fn func(model.Metric)) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = map[int]func(model.Metric){}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify(metrics ...model.Metric) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(model.Metric), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, m := range metrics {
		for _, fn := range fns {
			fn(m)
		}
	}
}

func distinctMetrics(in []model.Metric) []model.Metric {
	seen := map[model.Metric]struct{}{}
	out := make([]model.Metric, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
