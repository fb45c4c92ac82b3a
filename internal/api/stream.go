package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/domain"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
	streamSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Triage dashboards run on separate origins; access control happens
	// upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHub fans committed verdicts out to connected WebSocket clients, so
// waiting-room dashboards see RED verdicts as they happen.
type StreamHub struct {
	log        *logrus.Logger
	mu         sync.Mutex
	clients    map[*streamClient]struct{}
	broadcast  chan *domain.TriageRecord
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan *domain.TriageRecord
}

// NewStreamHub creates a new verdict stream hub.
func NewStreamHub(logger *logrus.Logger) *StreamHub {
	return &StreamHub{
		log:        logger,
		clients:    make(map[*streamClient]struct{}),
		broadcast:  make(chan *domain.TriageRecord, streamSendBuffer),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until the context is cancelled.
func (h *StreamHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			// Unblocks any connection racing shutdown on add/remove.
			close(h.done)
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.log.WithField("clients", h.clientCount()).Debug("Verdict stream client connected")
		case client := <-h.unregister:
			h.drop(client)
		case record := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- record:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a committed verdict for all connected clients. Never
// blocks the triage path: if the hub is backed up, the event is dropped.
func (h *StreamHub) Broadcast(record *domain.TriageRecord) {
	select {
	case h.broadcast <- record:
	default:
		h.log.Warn("Verdict stream backlog full, dropping event")
	}
}

// add hands a new connection to the hub. Returns false if the hub has
// already shut down, in which case the caller owns the connection.
func (h *StreamHub) add(client *streamClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// remove detaches a connection. Safe to call after shutdown.
func (h *StreamHub) remove(client *streamClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *StreamHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StreamHub) drop(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *StreamHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
}

// handleVerdictStream upgrades the connection and streams verdicts until
// the client disconnects.
func (s *Server) handleVerdictStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan *domain.TriageRecord, streamSendBuffer),
	}
	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writeLoop()
	go client.readLoop(s.hub)
}

// writeLoop pushes verdicts and pings to the client.
func (c *streamClient) writeLoop() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case record, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(record); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client messages and detects disconnects.
func (c *streamClient) readLoop(hub *StreamHub) {
	defer func() {
		hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
