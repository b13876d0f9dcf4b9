// Package cooldown throttles drops per origin.
//
// The guard is a courtesy limit keyed by network identity, which is spoofable
// and shared behind NAT; it is not a security control. State lives in memory
// and is lost on restart.
package cooldown

import (
	"sync"
	"time"
)

const DefaultWindow = 10 * time.Second

type entry struct {
	last    time.Time
	pending bool
}

// Guard enforces a minimum window between accepted drops from one origin.
type Guard struct {
	Window time.Duration
	Now    func() time.Time

	mu      sync.Mutex
	origins map[string]*entry
}

func New(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		Window:  window,
		Now:     time.Now,
		origins: map[string]*entry{},
	}
}

// Check reports whether origin may drop now.
func (g *Guard) Check(origin string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retryAfterLocked(origin, g.Now()) == 0
}

// Record marks an accepted drop from origin.
func (g *Guard) Record(origin string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entryLocked(origin)
	e.last = g.Now()
	e.pending = false
}

// RetryAfter is how long origin has to wait; zero when it may drop now. An
// origin with a drop in flight waits a full window.
func (g *Guard) RetryAfter(origin string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.retryAfterLocked(origin, g.Now())
}

// Reservation holds an origin's slot while its drop is in flight.
type Reservation struct {
	guard  *Guard
	origin string
	at     time.Time
	once   sync.Once
}

// Reserve atomically checks origin and, when allowed, marks a drop in flight so
// concurrent requests from the same origin are throttled until Commit or
// Cancel.
func (g *Guard) Reserve(origin string) (*Reservation, time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.Now()
	if wait := g.retryAfterLocked(origin, now); wait > 0 {
		return nil, wait, false
	}
	g.entryLocked(origin).pending = true
	return &Reservation{guard: g, origin: origin, at: now}, 0, true
}

// Commit records the drop as accepted. The cooldown runs from the moment the
// drop was reserved, not from when it finished.
func (r *Reservation) Commit() {
	r.once.Do(func() {
		g := r.guard
		g.mu.Lock()
		defer g.mu.Unlock()
		e := g.entryLocked(r.origin)
		if r.at.After(e.last) {
			e.last = r.at
		}
		e.pending = false
	})
}

// Cancel releases the slot without starting a cooldown.
func (r *Reservation) Cancel() {
	r.once.Do(func() {
		g := r.guard
		g.mu.Lock()
		defer g.mu.Unlock()
		if e, ok := g.origins[r.origin]; ok {
			e.pending = false
		}
	})
}

// Sweep forgets origins whose cooldown has elapsed. Behavior is unchanged: an
// elapsed entry never blocks.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.Now()
	removed := 0
	for origin, e := range g.origins {
		if !e.pending && now.Sub(e.last) >= g.Window {
			delete(g.origins, origin)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until done is closed.
func (g *Guard) StartSweeper(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				g.Sweep()
			}
		}
	}()
}

func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.origins)
}

func (g *Guard) entryLocked(origin string) *entry {
	if g.origins == nil {
		g.origins = map[string]*entry{}
	}
	e, ok := g.origins[origin]
	if !ok {
		e = &entry{}
		g.origins[origin] = e
	}
	return e
}

func (g *Guard) retryAfterLocked(origin string, now time.Time) time.Duration {
	e, ok := g.origins[origin]
	if !ok {
		return 0
	}
	if e.pending {
		return g.Window
	}
	if e.last.IsZero() {
		return 0
	}
	if elapsed := now.Sub(e.last); elapsed < g.Window {
		return g.Window - elapsed
	}
	return 0
}
