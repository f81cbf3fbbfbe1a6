// Package hub fans probe lifecycle events out to menubar clients over
// WebSocket. Clients get the latest usage snapshot on connect, then live
// probe_started/probe_done events; a slow client drops frames rather than
// stalling the rest.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

type Hub struct {
	clients    map[string]*Client
	register   chan *clientRegistration
	unregister chan *Client
	broadcast  chan []byte

	// onRefresh fires when a client asks for an immediate re-probe.
	onRefresh func(provider string)
	token     string

	mu         sync.RWMutex
	snapshot   map[string]UsageInfo
	snapshotMu sync.RWMutex

	ctxWrap *ctxWrapper
	running atomic.Bool
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client          *Client
	initialSnapshot []byte
}

func New(token string, onRefresh func(provider string)) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *clientRegistration, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		onRefresh:  onRefresh,
		token:      token,
		snapshot:   make(map[string]UsageInfo),
		ctxWrap:    &ctxWrapper{ctx: context.Background()},
	}
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.initialSnapshot != nil {
				select {
				case reg.client.send <- reg.initialSnapshot:
				default:
				}
			}
			go reg.client.writePump(h.getContext())
			go reg.client.readPump(h.getContext())
			slog.Info("client connected", "client", reg.client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("client disconnected", "client", client.id, "total", h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					slog.Warn("client send buffer full, dropping message", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.token != "" {
		token := r.URL.Query().Get("token")
		if token != h.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	client := newClient(conn, h)

	initial, err := json.Marshal(h.snapshotMessage())
	if err != nil {
		initial = nil
	}

	select {
	case h.register <- &clientRegistration{client: client, initialSnapshot: initial}:
	default:
		slog.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
	}
}

// BroadcastProbeStarted announces that a provider probe has begun.
func (h *Hub) BroadcastProbeStarted(provider string) {
	h.send(ProbeStartedMessage{
		Type:     "probe_started",
		Provider: provider,
		Ts:       time.Now().Unix(),
	})
}

// BroadcastProbeOutput streams a slice of live probe output to clients.
func (h *Hub) BroadcastProbeOutput(provider, text string) {
	h.send(ProbeOutputMessage{
		Type:     "probe_output",
		Provider: provider,
		Text:     text,
		Ts:       time.Now().Unix(),
	})
}

// BroadcastProbeDone announces a finished probe and folds its usage into
// the snapshot new clients receive.
func (h *Hub) BroadcastProbeDone(msg ProbeDoneMessage) {
	msg.Type = "probe_done"
	if msg.Ts == 0 {
		msg.Ts = time.Now().Unix()
	}

	h.snapshotMu.Lock()
	if msg.Usage != nil {
		h.snapshot[msg.Provider] = *msg.Usage
	} else if existing, ok := h.snapshot[msg.Provider]; ok {
		existing.Outcome = msg.Outcome
		h.snapshot[msg.Provider] = existing
	} else {
		h.snapshot[msg.Provider] = UsageInfo{Provider: msg.Provider, Outcome: msg.Outcome}
	}
	h.snapshotMu.Unlock()

	h.send(msg)
}

func (h *Hub) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal hub message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) snapshotMessage() SnapshotMessage {
	h.snapshotMu.RLock()
	defer h.snapshotMu.RUnlock()

	list := make([]UsageInfo, 0, len(h.snapshot))
	for _, u := range h.snapshot {
		list = append(list, u)
	}
	return SnapshotMessage{Type: "snapshot", List: list}
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRefresh(provider string) {
	if h.onRefresh != nil {
		h.onRefresh(provider)
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		slog.Warn("unregister channel full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
