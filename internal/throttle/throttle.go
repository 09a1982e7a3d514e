// Package throttle rate-limits calls to a fixed interval, keeping only the
// latest value while a call is held back.
package throttle

import (
	"sync"
	"time"
)

// Throttle forwards the first value immediately and at most one value per
// interval after that. Values arriving inside the interval replace each
// other; the last one is delivered when the interval ends.
//
// fn is never called concurrently with itself and must not call back into
// the Throttle.
type Throttle[T any] struct {
	mu       sync.Mutex
	call     sync.Mutex
	interval time.Duration
	fn       func(T)

	last    time.Time
	pending T
	has     bool
	timer   *time.Timer
	stopped bool
}

func New[T any](interval time.Duration, fn func(T)) *Throttle[T] {
	return &Throttle[T]{interval: interval, fn: fn}
}

// Call submits v.
func (t *Throttle[T]) Call(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	if t.timer == nil && now.Sub(t.last) >= t.interval {
		t.last = now
		t.deliver(v)
		return
	}
	t.pending, t.has = v, true
	if t.timer == nil {
		t.timer = time.AfterFunc(t.interval-now.Sub(t.last), t.fire)
	}
	t.mu.Unlock()
}

func (t *Throttle[T]) fire() {
	t.mu.Lock()
	t.timer = nil
	if t.stopped || !t.has {
		t.mu.Unlock()
		return
	}
	v := t.take()
	t.last = time.Now()
	t.deliver(v)
}

// deliver runs fn with t.mu held on entry; it releases t.mu once the call
// lock is taken so deliveries keep submission order.
func (t *Throttle[T]) deliver(v T) {
	t.call.Lock()
	t.mu.Unlock()
	defer t.call.Unlock()
	t.fn(v)
}

func (t *Throttle[T]) take() T {
	v := t.pending
	var zero T
	t.pending, t.has = zero, false
	return v
}

// Pending reports whether a value is waiting for the interval to end.
func (t *Throttle[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.has
}

// Flush delivers a held value now.
func (t *Throttle[T]) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.stopped || !t.has {
		t.mu.Unlock()
		return
	}
	v := t.take()
	t.last = time.Now()
	t.deliver(v)
}

// Stop drops any held value. Later calls are ignored.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.take()
}

// Group keeps one Throttle per key so a burst on one key never swallows
// the last value of another.
type Group[K comparable, T any] struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(K, T)
	byKey    map[K]*Throttle[T]
	stopped  bool
}

func NewGroup[K comparable, T any](interval time.Duration, fn func(K, T)) *Group[K, T] {
	return &Group[K, T]{interval: interval, fn: fn, byKey: make(map[K]*Throttle[T])}
}

func (g *Group[K, T]) Call(key K, v T) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	t, ok := g.byKey[key]
	if !ok {
		t = New(g.interval, func(v T) { g.fn(key, v) })
		g.byKey[key] = t
	}
	g.mu.Unlock()
	t.Call(v)
}

// Forget flushes and drops the throttle for key.
func (g *Group[K, T]) Forget(key K) {
	g.mu.Lock()
	t, ok := g.byKey[key]
	delete(g.byKey, key)
	g.mu.Unlock()
	if ok {
		t.Flush()
		t.Stop()
	}
}

func (g *Group[K, T]) Flush() {
	for _, t := range g.snapshot() {
		t.Flush()
	}
}

func (g *Group[K, T]) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	for _, t := range g.snapshot() {
		t.Stop()
	}
}

func (g *Group[K, T]) snapshot() []*Throttle[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Throttle[T], 0, len(g.byKey))
	for _, t := range g.byKey {
		out = append(out, t)
	}
	return out
}
