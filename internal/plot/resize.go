package plot

import (
	"sort"
	"sync"
)

// Size is a logical size with its device pixel ratio.
type Size struct {
	Width  float64
	Height float64
	Ratio  float64
}

// SizeObserver reports container size changes. Observe returns a function
// that ends the subscription.
type SizeObserver interface {
	Observe(fn func(Size)) (unsubscribe func())
}

// SizeNotifier is a SizeObserver driven by the host calling Notify. New
// subscribers receive the last known size immediately.
type SizeNotifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Size)
	last Size
	seen bool
}

func NewSizeNotifier() *SizeNotifier {
	return &SizeNotifier{subs: make(map[int]func(Size))}
}

func (n *SizeNotifier) Observe(fn func(Size)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	last, seen := n.last, n.seen
	n.mu.Unlock()

	if seen {
		fn(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Notify records s and forwards it to every subscriber if it differs from
// the last size.
func (n *SizeNotifier) Notify(s Size) {
	n.mu.Lock()
	if n.seen && n.last == s {
		n.mu.Unlock()
		return
	}
	n.last, n.seen = s, true
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Size), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribers returns the number of live subscriptions.
func (n *SizeNotifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Mount resizes the plot whenever obs reports a new size. The returned
// release ends the subscription and is safe to call more than once, so
// hosts can defer it on every exit path.
func (p *Plot) Mount(obs SizeObserver) (release func()) {
	unsubscribe := obs.Observe(func(s Size) {
		p.Resize(s.Width, s.Height, s.Ratio)
	})
	var once sync.Once
	return func() {
		once.Do(unsubscribe)
	}
}
