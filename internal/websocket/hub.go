package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"loandash/internal/config"
	"loandash/internal/infrastructure"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// broadcastBuffer is the number of messages queued for fan-out before
// Broadcast starts dropping.
const broadcastBuffer = 64

// DatasetFunc reports the dataset a newly connected client will query, or
// nil when nothing is loaded yet.
type DatasetFunc func() *domain.DatasetInfo

// HubOptions configures a Hub.
type HubOptions struct {
	Config         config.WebSocketConfig
	AllowedOrigins []string
	DevMode        bool
	Dataset        DatasetFunc
	Metrics        *infrastructure.BusinessMetrics
	Logger         *slog.Logger
}

// Hub maintains the set of active clients and broadcasts dataset events to
// them. Run owns the client set; every other method talks to it through
// channels.
type Hub struct {
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	dataset  DatasetFunc
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	count   int
	started atomic.Bool
	done    chan struct{}
}

// NewHub creates a new Hub instance
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	cfg := withDefaults(opts.Config)

	h := &Hub{
		cfg:        cfg,
		dataset:    opts.Dataset,
		metrics:    opts.Metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin(opts.AllowedOrigins, opts.DevMode),
	}
	return h
}

func withDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	return cfg
}

func (h *Hub) checkOrigin(allowed []string, devMode bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Same-origin and non-browser clients send no Origin header.
		if origin == "" || devMode {
			return true
		}
		if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		if origin == "http://"+r.Host || origin == "https://"+r.Host {
			return true
		}
		h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", allowed))
		return false
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
// It must be called once.
func (h *Hub) Run(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client, "closed")

		case message := <-h.broadcast:
			h.fanout(message)
		}
	}
}

// Done is closed once Run has returned and all clients were released.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast sends a typed event to every connected client. It never
// blocks: when the queue is full or the hub has stopped the event is
// dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := json.Marshal(events.NewMessage(events.MessageType(messageType), data))
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, dropping message",
			slog.String("message_type", messageType))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}
	h.Attach(NewConnection(conn), infrastructure.GetTraceID(r.Context()))
}

// Attach registers an established connection and starts its pumps. The
// connection is closed right away if the hub has stopped.
func (h *Hub) Attach(conn Connection, traceID string) *Client {
	client := newClient(h, conn, traceID)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()
	return client
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	h.clients[client] = struct{}{}
	h.setCount()
	h.metrics.AddWebSocketClients(client.context(), 1)

	h.logger.InfoContext(client.context(), "Client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", len(h.clients)))

	greeting := events.ConnectMessage{ClientID: client.id}
	if h.dataset != nil {
		greeting.Dataset = h.dataset()
	}
	payload, err := json.Marshal(events.NewMessage(events.MessageTypeConnect, greeting))
	if err != nil {
		return
	}
	// The buffer is empty for a new client.
	client.send <- payload
}

func (h *Hub) remove(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.setCount()
	h.metrics.AddWebSocketClients(client.context(), -1)

	h.logger.InfoContext(client.context(), "Client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", len(h.clients)))
}

func (h *Hub) fanout(message []byte) {
	var dropped int
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			dropped++
			h.remove(client, "send buffer full")
		}
	}
	h.logger.Debug("Broadcast message to clients",
		slog.Int("client_count", len(h.clients)),
		slog.Int("message_size", len(message)),
		slog.Int("dropped", dropped))
}

func (h *Hub) shutdown() {
	for client := range h.clients {
		h.remove(client, "hub stopped")
	}
	h.logger.Info("Hub shutting down")
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}
