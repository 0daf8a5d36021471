package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"SPEAKER_TRACK/go-backend/internal/models"
	"SPEAKER_TRACK/go-backend/internal/services"
)

const (
	MsgWelcome = "WELCOME"
	MsgPing    = "PING"
	MsgPong    = "PONG"
	MsgFrame   = "FRAME"
	MsgWindow  = "WINDOW"
	MsgError   = "ERROR"
)

// FrameProcessor runs a frame through its session.
type FrameProcessor interface {
	Push(ctx context.Context, req models.FrameRequest) (models.WindowReply, error)
}

type WebSocketClient struct {
	conn     *websocket.Conn
	clientID string
	// session filters broadcasts; empty receives every session.
	session string
	send    chan interface{}
}

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans flushed windows out to websocket subscribers and accepts frames
// posted over the socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*WebSocketClient

	frames   FrameProcessor
	metrics  *services.Metrics
	upgrader websocket.Upgrader
}

func NewHub(metrics *services.Metrics) *Hub {
	if metrics == nil {
		metrics = services.NewMetrics()
	}
	return &Hub{
		clients: make(map[string]*WebSocketClient),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetFrameProcessor enables FRAME messages. The session manager broadcasts
// through the hub, so it is wired after construction.
func (h *Hub) SetFrameProcessor(p FrameProcessor) {
	h.mu.Lock()
	h.frames = p
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request. ?session=<id> subscribes to one session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		h.metrics.IncrementWebSocketErrors()
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "client-" + uuid.NewString()
	}

	client := &WebSocketClient{
		conn:     conn,
		clientID: clientID,
		session:  r.URL.Query().Get("session"),
		send:     make(chan interface{}, 256),
	}

	h.register(client)
	log.WithFields(log.Fields{"client": clientID, "session": client.session}).Info("WebSocket client connected")

	go h.writePump(client)
	h.sendTo(client, WebSocketMessage{
		Type:      MsgWelcome,
		ClientID:  clientID,
		SessionID: client.session,
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"message": "Connected to speaker tracking server",
			"version": "1.0",
		},
	})
	go h.readPump(client)
}

func (h *Hub) register(client *WebSocketClient) {
	h.mu.Lock()
	// a reconnect under the same id replaces the old connection
	if old, ok := h.clients[client.clientID]; ok {
		close(old.send)
		h.metrics.DecrementWebSocketConnections()
	}
	h.clients[client.clientID] = client
	h.metrics.SetActiveClients(len(h.clients))
	h.mu.Unlock()
	h.metrics.IncrementWebSocketConnections()
}

func (h *Hub) unregister(client *WebSocketClient) {
	h.mu.Lock()
	if current, ok := h.clients[client.clientID]; ok && current == client {
		delete(h.clients, client.clientID)
		close(client.send)
		h.metrics.DecrementWebSocketConnections()
	}
	h.metrics.SetActiveClients(len(h.clients))
	h.mu.Unlock()
}

// sendTo queues msg for a registered client without blocking. A full queue
// drops the message.
func (h *Hub) sendTo(client *WebSocketClient, msg WebSocketMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if current, ok := h.clients[client.clientID]; !ok || current != client {
		return false
	}
	select {
	case client.send <- msg:
		h.metrics.IncrementWebSocketMessages()
		return true
	default:
		h.metrics.IncrementWebSocketErrors()
		return false
	}
}

// Broadcast implements services.Broadcaster.
func (h *Hub) Broadcast(sessionID string, reply models.WindowReply) {
	msg := WebSocketMessage{
		Type:      MsgWindow,
		SessionID: sessionID,
		Payload:   reply,
		Timestamp: time.Now().Unix(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.session != "" && client.session != sessionID {
			continue
		}
		select {
		case client.send <- msg:
			h.metrics.IncrementWebSocketMessages()
		default:
			log.Warnf("WebSocket client %s is slow, window dropped", client.clientID)
			h.metrics.IncrementWebSocketErrors()
		}
	}
}

// Цикл чтения из WebSocket
func (h *Hub) readPump(client *WebSocketClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
		log.Printf("WebSocket client disconnected: %s", client.clientID)
	}()

	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg inboundMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for %s: %v", client.clientID, err)
				h.metrics.IncrementWebSocketErrors()
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msg.Type {
		case MsgPing:
			h.sendTo(client, WebSocketMessage{
				Type:      MsgPong,
				ClientID:  client.clientID,
				Timestamp: time.Now().Unix(),
			})

		case MsgFrame:
			h.handleFrame(client, msg.Payload)

		default:
			log.Debugf("Unknown message type: %s", msg.Type)
			h.sendTo(client, errorMessage(client, "unknown message type "+msg.Type))
		}
	}
}

func (h *Hub) handleFrame(client *WebSocketClient, payload json.RawMessage) {
	h.mu.RLock()
	frames := h.frames
	h.mu.RUnlock()
	if frames == nil {
		h.sendTo(client, errorMessage(client, "frames are not accepted on this socket"))
		return
	}

	var req models.FrameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendTo(client, errorMessage(client, "invalid frame payload"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = client.session
	}

	// flushed windows reach the client through Broadcast
	if _, err := frames.Push(context.Background(), req); err != nil {
		h.sendTo(client, errorMessage(client, err.Error()))
	}
}

func errorMessage(client *WebSocketClient, text string) WebSocketMessage {
	return WebSocketMessage{
		Type:      MsgError,
		ClientID:  client.clientID,
		Timestamp: time.Now().Unix(),
		Payload:   map[string]interface{}{"error": text},
	}
}

// Цикл отправки в WebSocket
func (h *Hub) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteJSON(msg); err != nil {
				h.metrics.IncrementWebSocketErrors()
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientID, client := range h.clients {
		close(client.send)
		h.metrics.DecrementWebSocketConnections()
		log.Printf("Closed connection for client: %s", clientID)
	}
	h.clients = make(map[string]*WebSocketClient)
	h.metrics.SetActiveClients(0)
}
