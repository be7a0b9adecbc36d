package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yunusmujadidi/purchase-order/models"
)

// Order event types pushed to connected clients
const (
	EventOrderCreated  = "order.created"
	EventOrderUpdated  = "order.updated"
	EventOrderDeleted  = "order.deleted"
	EventStageChanged  = "order.stage_changed"
	EventStatusChanged = "order.status_changed"
	EventOrdersImport  = "orders.imported"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 64
)

// OrderEvent is one change notification
type OrderEvent struct {
	Type        string        `json:"type"`
	OrderID     *uuid.UUID    `json:"order_id,omitempty"`
	OrderNumber string        `json:"order_number,omitempty"`
	Stage       models.Stage  `json:"stage,omitempty"`
	Status      models.Status `json:"status,omitempty"`
	Count       int           `json:"count,omitempty"`
	At          time.Time     `json:"at"`
}

// NewOrderEvent describes a change to one order
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	id := order.ID
	return OrderEvent{
		Type:        eventType,
		OrderID:     &id,
		OrderNumber: order.OrderNumber,
		Stage:       order.CurrentStage,
		Status:      order.Status,
		At:          time.Now(),
	}
}

// Publisher receives order change notifications
type Publisher interface {
	Publish(event OrderEvent)
}

// Hub fans order events out to WebSocket subscribers
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub accepting connections from allowedOrigins ("*" allows any)
func NewHub(allowedOrigins []string) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
		clients: make(map[*subscriber]struct{}),
	}
}

// Publish sends event to every subscriber. Slow subscribers drop the event.
func (h *Hub) Publish(event OrderEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling order event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		select {
		case s.send <- data:
		default:
			log.Println("WebSocket buffer full, dropping order event")
		}
	}
}

// Subscribers returns the number of connected clients
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client disconnects
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	s := &subscriber{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()

	go h.writePump(s)
	go h.readPump(s)
	return nil
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
}

// readPump only watches for pongs and the close frame; clients never send data
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NopPublisher discards events
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(OrderEvent) {}
