// Package memews is the fan-out channel: an in-process hub of viewer sessions,
// the websocket handler that feeds them, and the relay that replays placements
// published by other instances.
package memews

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
)

const DefaultSessionBuffer = 256

// Session is one viewer's ordered delivery queue.
type Session struct {
	ID int64

	events    chan placement.Placement
	done      chan struct{}
	closeOnce sync.Once
}

// Events delivers placements in publish order.
func (s *Session) Events() <-chan placement.Placement {
	return s.events
}

// Done is closed when the hub drops or unsubscribes the session.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type Gauge interface {
	Gauge(ctx context.Context, name memecli.MetricName, value float64, dimensions ...map[memecli.DimensionName]string)
}

type Hub struct {
	Logger zerolog.Logger
	Buffer int

	nextID   int64
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewHub(logger zerolog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSessionBuffer
	}
	return &Hub{
		Logger:   logger,
		Buffer:   buffer,
		sessions: map[*Session]struct{}{},
	}
}

func (h *Hub) Subscribe() *Session {
	buffer := h.Buffer
	if buffer <= 0 {
		buffer = DefaultSessionBuffer
	}
	s := &Session{
		ID:     atomic.AddInt64(&h.nextID, 1),
		events: make(chan placement.Placement, buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.sessions == nil {
		h.sessions = map[*Session]struct{}{}
	}
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *Hub) Unsubscribe(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	s.close()
}

// Publish enqueues p on every session without blocking. All enqueues happen
// under one lock, so every session sees the same publish order. A session
// whose queue is full is dropped; the others are unaffected.
func (h *Hub) Publish(ctx context.Context, p placement.Placement) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.sessions {
		select {
		case s.events <- p:
		default:
			delete(h.sessions, s)
			s.close()
			h.Logger.Warn().
				Str("kind", "DeliveryError").
				Int64("session", s.ID).
				Str("placement_id", p.ID).
				Msg("viewer too slow, dropping session")
		}
	}
	return nil
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// ReportSessions publishes the session count every interval until ctx is done.
func (h *Hub) ReportSessions(ctx context.Context, gauge Gauge, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			gauge.Gauge(ctx, memecli.ViewerSessionsMetric, float64(h.Len()))
		}
	}
}
