// Package sse fans board change events out to connected browser tabs.
package sse

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

type client struct {
	userID string
	ch     chan Message
}

type delivery struct {
	userID string
	msg    Message
}

// Manager tracks open streams per user. Run must be started before use.
type Manager struct {
	register   chan *client
	unregister chan *client
	broadcast  chan delivery
	done       chan struct{}
	closeOnce  sync.Once

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewManager() *Manager {
	return &Manager{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan delivery, 256),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*client]struct{}),
	}
}

// Run processes registrations and deliveries until Close is called.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			m.mu.Unlock()
			zap.L().Debug("[SSE] Client connected", zap.String("user_id", c.userID))

		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.ch)
				}
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
			m.mu.Unlock()
			zap.L().Debug("[SSE] Client disconnected", zap.String("user_id", c.userID))

		case d := <-m.broadcast:
			m.mu.RLock()
			for c := range m.clients[d.userID] {
				select {
				case c.ch <- d.msg:
				default:
					zap.L().Warn("[SSE] Dropping event for slow client", zap.String("user_id", d.userID), zap.String("event", d.msg.Event))
				}
			}
			m.mu.RUnlock()

		case <-m.done:
			m.mu.Lock()
			for _, set := range m.clients {
				for c := range set {
					close(c.ch)
				}
			}
			m.clients = make(map[string]map[*client]struct{})
			m.mu.Unlock()
			return
		}
	}
}

// Close stops Run and ends every open stream.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// SendToUser queues an event for every stream of userID. Payloads that are not
// strings are JSON encoded.
func (m *Manager) SendToUser(userID, event string, payload interface{}) {
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			zap.L().Error("[SSE] Failed to encode payload", zap.String("event", event), zap.Error(err))
			return
		}
		data = string(b)
	}

	select {
	case m.broadcast <- delivery{userID: userID, msg: Message{Event: event, Data: data}}:
	case <-m.done:
	}
}

// ConnectedClients returns the number of open streams for userID.
func (m *Manager) ConnectedClients(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

func (m *Manager) subscribe(userID string) (*client, bool) {
	c := &client{userID: userID, ch: make(chan Message, 16)}
	select {
	case m.register <- c:
		return c, true
	case <-m.done:
		return nil, false
	}
}

func (m *Manager) unsubscribe(c *client) {
	select {
	case m.unregister <- c:
	case <-m.done:
	}
}

// ServeHTTP holds the request open and streams events for userID until the client
// goes away.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl, ok := m.subscribe(userID)
	if !ok {
		c.Status(503)
		return
	}
	defer m.unsubscribe(cl)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-cl.ch:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg.Data)
			return true
		}
	})
}
