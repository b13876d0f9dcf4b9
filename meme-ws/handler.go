package memews

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
)

const (
	DefaultPingInterval = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	maxMessageSize      = 4096
)

type Snapshotter interface {
	ListAll(ctx context.Context) ([]placement.Placement, error)
}

// Handler upgrades viewer connections. Each connection subscribes to the hub
// before reading the snapshot, then skips live events the snapshot already
// contained, so no placement is missed or delivered twice.
type Handler struct {
	Hub          *Hub
	Store        Snapshotter
	Logger       zerolog.Logger
	Upgrader     websocket.Upgrader
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func NewHandler(hub *Hub, store Snapshotter, logger zerolog.Logger) *Handler {
	return &Handler{
		Hub:    hub,
		Store:  store,
		Logger: logger,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the canvas is public; cross origin viewers are expected
			CheckOrigin: func(*http.Request) bool { return true },
		},
		PingInterval: DefaultPingInterval,
		WriteTimeout: DefaultWriteTimeout,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	eventType := MsgPlacementCreated
	if r.URL.Query().Get("legacy") != "" {
		eventType = MsgNewMeme
	}

	session := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(session)

	logger := h.Logger.With().Int64("session", session.ID).Str("remote", r.RemoteAddr).Logger()
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	logger.Info().Int("sessions", h.Hub.Len()).Msg("viewer connected")
	defer logger.Info().Msg("viewer disconnected")

	if err := h.write(conn, AckMessage()); err != nil {
		return
	}

	snapshot, err := h.Store.ListAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read snapshot")
		_ = h.write(conn, ErrorMessage("snapshot unavailable"))
		return
	}
	msg, err := SnapshotMessage(snapshot)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	if err := h.write(conn, msg); err != nil {
		return
	}

	seen := make(map[string]struct{}, len(snapshot))
	for _, p := range snapshot {
		seen[p.ID] = struct{}{}
	}

	pongs := make(chan string, 8)
	go h.read(ctx, cancel, conn, pongs, logger)

	ticker := time.NewTicker(h.pingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-session.Done():
			_ = h.write(conn, ErrorMessage("viewer too slow, reconnect to resync"))
			return

		case p := <-session.Events():
			// a placement can reach the hub more than once when both the
			// stream relay and the table fan-out are deployed
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			msg, err := PlacementMessage(eventType, p)
			if err != nil {
				logger.Error().Err(err).Str("placement_id", p.ID).Msg("failed to encode placement")
				continue
			}
			if err := h.write(conn, msg); err != nil {
				logger.Debug().Err(err).Msg("write failed")
				return
			}

		case id := <-pongs:
			if err := h.write(conn, PongMessage(id)); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout())); err != nil {
				logger.Debug().Err(err).Msg("keepalive failed")
				return
			}
		}
	}
}

// read owns the read side of conn. Only ServeHTTP writes, so pings are
// answered through pongs.
func (h *Handler) read(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, pongs chan<- string, logger zerolog.Logger) {
	defer cancel()

	wait := 2 * h.pingInterval()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, body, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("unexpected close")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))

		msg, err := ParseMessage(body)
		if err != nil {
			logger.Debug().Err(err).Msg("ignoring invalid message")
			continue
		}
		if msg.Type != MsgPing {
			continue
		}
		select {
		case pongs <- msg.ID:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) pingInterval() time.Duration {
	if h.PingInterval <= 0 {
		return DefaultPingInterval
	}
	return h.PingInterval
}

func (h *Handler) writeTimeout() time.Duration {
	if h.WriteTimeout <= 0 {
		return DefaultWriteTimeout
	}
	return h.WriteTimeout
}
