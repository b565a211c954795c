package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/girrex/suivi/internal/logger"
	"github.com/girrex/suivi/internal/ports"
	apperror "github.com/girrex/suivi/pkg/error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Update is what live clients receive for every action event
type Update struct {
	Type      string                 `json:"type"`
	ActionID  string                 `json:"action_id,omitempty"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Scopes    []string               `json:"scopes,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type wsClient struct {
	agentID  string
	national bool
	scopes   map[string]bool
	conn     *websocket.Conn
	send     chan []byte
}

// wants reports whether the event concerns the client. National clients see everything;
// others see events of their scopes, unscoped events and events about their own work.
func (c *wsClient) wants(event ports.Event) bool {
	if c.national || len(event.Scopes) == 0 || event.ActorID == c.agentID {
		return true
	}
	if responsible, _ := event.Data["responsible_id"].(string); responsible == c.agentID {
		return true
	}
	for _, s := range event.Scopes {
		if c.scopes[s] {
			return true
		}
	}
	return false
}

// Hub fans action events out to websocket clients. It implements ports.EventPublisher.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan ports.Event
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	roles      RoleSource
	upgrader   websocket.Upgrader
	log        logger.Logger
}

// NewHub creates a hub. roles supplies the scopes used to filter events and may be nil,
// in which case non-national clients only see unscoped events and their own.
func NewHub(roles RoleSource, allowedOrigins []string, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan ports.Event, sendBuffer),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		roles:      roles,
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin, allowedOrigins)
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	h.log.Info(ctx, "websocket hub started", nil)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.log.Info(ctx, "websocket hub stopped", nil)
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(Update{
				Type:      event.Type,
				ActionID:  event.AggregateID,
				ActorID:   event.ActorID,
				Scopes:    event.Scopes,
				Data:      event.Data,
				Timestamp: time.Unix(event.CreatedAt, 0).UTC(),
			})
			if err != nil {
				h.log.Error(ctx, "failed to marshal update", err, map[string]interface{}{"event_type": event.Type})
				continue
			}
			for client := range h.clients {
				if !client.wants(event) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish queues event for delivery to interested clients
func (h *Hub) Publish(ctx context.Context, event ports.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients. Only safe once Run has returned
// or from tests that synchronise through the hub channels.
func (h *Hub) ClientCount() int {
	return len(h.clients)
}

// ServeWS upgrades an authenticated request and registers the client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor := ActorFrom(r.Context())
	if actor.AgentID == "" {
		writeAppError(w, apperror.NewUnauthorized("Authentication required"))
		return
	}

	scopes := make(map[string]bool)
	if h.roles != nil {
		assignments, err := h.roles.RolesOf(r.Context(), actor.AgentID)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		for _, a := range assignments {
			scopes[a.ScopeCode] = true
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		h.log.Warn(r.Context(), "websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &wsClient{
		agentID:  actor.AgentID,
		national: actor.IsNational(),
		scopes:   scopes,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}

	welcome, _ := json.Marshal(Update{
		Type:      "welcome",
		ActorID:   actor.AgentID,
		Scopes:    scopeList(scopes),
		Timestamp: time.Now().UTC(),
	})
	client.send <- welcome

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func scopeList(scopes map[string]bool) []string {
	list := make([]string, 0, len(scopes))
	for s := range scopes {
		list = append(list, s)
	}
	sort.Strings(list)
	return list
}

func (h *Hub) leave(client *wsClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients do not send commands
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.leave(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
