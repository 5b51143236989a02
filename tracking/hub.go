// Package tracking pushes order status changes to websocket subscribers.
package tracking

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"food-ordering-api/logger"
	"food-ordering-api/models"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// OrderEvent is the message sent to subscribers
type OrderEvent struct {
	OrderID uint               `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	At      time.Time          `json:"at"`
}

type subscription struct {
	conn    *websocket.Conn
	orderID uint
}

// Hub fans order events out to the connections watching each order
type Hub struct {
	clients    map[uint]map[*websocket.Conn]bool // orderID -> set of clients
	broadcast  chan OrderEvent
	register   chan subscription
	unregister chan subscription
	done       chan struct{}
	mu         sync.Mutex
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*websocket.Conn]bool),
		broadcast:  make(chan OrderEvent, 64),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves register/unregister/broadcast until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for orderID, conns := range h.clients {
				for conn := range conns {
					conn.Close()
				}
				delete(h.clients, orderID)
			}
			h.mu.Unlock()
			return nil

		case sub := <-h.register:
			h.mu.Lock()
			if h.clients[sub.orderID] == nil {
				h.clients[sub.orderID] = make(map[*websocket.Conn]bool)
			}
			h.clients[sub.orderID][sub.conn] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[sub.orderID][sub.conn]; ok {
				delete(h.clients[sub.orderID], sub.conn)
				if len(h.clients[sub.orderID]) == 0 {
					delete(h.clients, sub.orderID)
				}
				sub.conn.Close()
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients[evt.OrderID] {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(evt); err != nil {
					h.log.Warn(ctx, "tracking_write", "dropping subscriber", slog.Uint64("order_id", uint64(evt.OrderID)), slog.String("reason", err.Error()))
					conn.Close()
					delete(h.clients[evt.OrderID], conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyStatus queues a status change. It never blocks the caller; when the
// queue is full the event is dropped and logged.
func (h *Hub) NotifyStatus(orderID uint, status models.OrderStatus, at time.Time) {
	select {
	case h.broadcast <- OrderEvent{OrderID: orderID, Status: status, At: at}:
	default:
		h.log.Warn(context.Background(), "tracking_drop", "tracking queue full", slog.Uint64("order_id", uint64(orderID)))
	}
}

// Serve upgrades the request, sends current, and keeps the connection
// subscribed until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, current OrderEvent) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(current); err != nil {
		conn.Close()
		return err
	}

	sub := subscription{conn: conn, orderID: current.OrderID}
	select {
	case h.register <- sub:
	case <-h.done:
		conn.Close()
		return nil
	}
	defer func() {
		select {
		case h.unregister <- sub:
		case <-h.done:
		}
	}()

	// Drain client frames; a read error means the peer is gone.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Subscribers returns how many connections watch an order
func (h *Hub) Subscribers(orderID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[orderID])
}
