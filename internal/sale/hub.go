package sale

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	EventSaleSubmitted = "sale_submitted"
	EventItemsUpdated  = "items_updated"

	writeWait = 5 * time.Second
)

// Event is pushed to every connected till after a change
type Event struct {
	Type    string           `json:"type"`
	Sale    *Sale            `json:"sale,omitempty"`
	Revenue *Revenue         `json:"revenue,omitempty"`
	Items   []LineItem       `json:"items,omitempty"`
	Total   *decimal.Decimal `json:"total,omitempty"`
}

// Notifier receives service events
type Notifier interface {
	Notify(event Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// Hub fans events out to websocket clients. All writes happen on the Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewHub creates a hub; call Run to start delivering
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

// sameOrigin accepts clients without an Origin header and pages served by this host
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Run delivers events until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return nil
		case client := <-h.register:
			h.clients[client] = true
			slog.Info("Till connected", "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				slog.Info("Till disconnected", "clients", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					slog.Warn("Dropping till", "error", err)
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}

// Notify queues an event for broadcast. Events are dropped when the queue is full.
func (h *Hub) Notify(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Error encoding event", "type", event.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		slog.Warn("Event queue full, dropping event", "type", event.Type)
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading websocket", "error", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Tills only listen; the read loop detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
