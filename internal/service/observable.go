package service

import "sync"

// Versioned values carry a generation so stale publishes can be rejected.
type Versioned interface {
	Version() uint64
}

// Observable holds the latest published value and notifies subscribers.
// Publishing a value that is not newer than the current one is a no-op.
type Observable[T Versioned] struct {
	mu      sync.RWMutex
	current T
	has     bool
	nextID  int
	subs    map[int]func(T)
}

func NewObservable[T Versioned]() *Observable[T] {
	return &Observable[T]{subs: map[int]func(T){}}
}

func (o *Observable[T]) Current() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current, o.has
}

// Publish stores v and reports whether it replaced the current value.
func (o *Observable[T]) Publish(v T) bool {
	o.mu.Lock()
	if o.has && v.Version() <= o.current.Version() {
		o.mu.Unlock()
		return false
	}
	o.current = v
	o.has = true
	subs := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return true
}

// Subscribe registers fn for future publishes and returns an unsubscribe func.
func (o *Observable[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}
