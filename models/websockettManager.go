package models

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceUpdate is pushed to portal subscribers whenever a client's balance changes
type BalanceUpdate struct {
	Type      string          `json:"type"`
	ClientID  uuid.UUID       `json:"client_id"`
	Balance   decimal.Decimal `json:"balance"`
	Timestamp time.Time       `json:"timestamp"`
}

type subscription struct {
	clientID uuid.UUID
	conn     *websocket.Conn
}

type outbound struct {
	clientID uuid.UUID
	payload  []byte
}

// WebSocketManager fans balance updates out to the portal connections of each client
type WebSocketManager struct {
	clients    map[uuid.UUID]map[*websocket.Conn]bool
	broadcast  chan outbound
	register   chan subscription
	unregister chan subscription
	done       chan struct{}
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[uuid.UUID]map[*websocket.Conn]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start runs the manager loop until ctx is cancelled
func (wsm *WebSocketManager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(wsm.done)
				wsm.closeAll()
				return
			case sub := <-wsm.register:
				wsm.mu.Lock()
				conns, ok := wsm.clients[sub.clientID]
				if !ok {
					conns = make(map[*websocket.Conn]bool)
					wsm.clients[sub.clientID] = conns
				}
				conns[sub.conn] = true
				wsm.mu.Unlock()
				wsm.logger.Info("portal subscriber connected",
					zap.String("client_id", sub.clientID.String()),
					zap.Int("subscribers", len(conns)))
			case sub := <-wsm.unregister:
				wsm.mu.Lock()
				if conns, ok := wsm.clients[sub.clientID]; ok {
					if _, ok := conns[sub.conn]; ok {
						delete(conns, sub.conn)
						sub.conn.Close()
					}
					if len(conns) == 0 {
						delete(wsm.clients, sub.clientID)
					}
				}
				wsm.mu.Unlock()
				wsm.logger.Info("portal subscriber disconnected", zap.String("client_id", sub.clientID.String()))
			case msg := <-wsm.broadcast:
				wsm.mu.Lock()
				for conn := range wsm.clients[msg.clientID] {
					if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
						wsm.logger.Warn("error sending balance update", zap.Error(err))
						conn.Close()
						delete(wsm.clients[msg.clientID], conn)
					}
				}
				wsm.mu.Unlock()
			}
		}
	}()
}

func (wsm *WebSocketManager) closeAll() {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	for id, conns := range wsm.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(wsm.clients, id)
	}
}

// BroadcastBalance sends the new balance of a client to its portal subscribers.
// Updates are dropped when the outbound buffer is full.
func (wsm *WebSocketManager) BroadcastBalance(clientID uuid.UUID, balance decimal.Decimal) {
	payload, err := json.Marshal(BalanceUpdate{
		Type:      "balance_update",
		ClientID:  clientID,
		Balance:   balance,
		Timestamp: time.Now(),
	})
	if err != nil {
		wsm.logger.Error("failed to marshal balance update", zap.Error(err))
		return
	}

	select {
	case wsm.broadcast <- outbound{clientID: clientID, payload: payload}:
	default:
		wsm.logger.Warn("balance update dropped", zap.String("client_id", clientID.String()))
	}
}

// Subscribers returns how many portal connections are open for a client
func (wsm *WebSocketManager) Subscribers(clientID uuid.UUID) int {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	return len(wsm.clients[clientID])
}

// RegisterClient subscribes conn to the updates of a client
func (wsm *WebSocketManager) RegisterClient(clientID uuid.UUID, conn *websocket.Conn) {
	select {
	case wsm.register <- subscription{clientID: clientID, conn: conn}:
	case <-wsm.done:
		conn.Close()
	}
}

// UnregisterClient removes conn from the subscribers of a client
func (wsm *WebSocketManager) UnregisterClient(clientID uuid.UUID, conn *websocket.Conn) {
	select {
	case wsm.unregister <- subscription{clientID: clientID, conn: conn}:
	case <-wsm.done:
	}
}
