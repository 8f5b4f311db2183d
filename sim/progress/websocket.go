package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hgana/hgana/sim"
)

// EventType distinguishes the two kinds of broadcast events.
type EventType string

const (
	EventPhase    EventType = "phase"
	EventProgress EventType = "progress"
)

// Event is the JSON message sent to websocket clients.
type Event struct {
	Type     EventType     `json:"type"`
	System   int           `json:"system"`
	Replica  int           `json:"replica"`
	Phase    sim.Phase     `json:"phase"`
	Steps    int64         `json:"steps,omitempty"`
	Progress *sim.Progress `json:"progress,omitempty"`
	Line     string        `json:"line,omitempty"`
}

const writeTimeout = 10 * time.Second

// Hub broadcasts progress events to every connected websocket client.
// A single goroutine owns the client set; replicas only enqueue. Events are
// dropped rather than stalling a replica when the queue is full.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
	dropped    int64
}

// NewHub starts the broadcaster goroutine.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// ServeHTTP upgrades the request and registers the connection. Incoming
// client messages are read and discarded until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("progress websocket upgrade failed: %v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PhaseStarted broadcasts a phase event.
func (h *Hub) PhaseStarted(system, replica int, phase sim.Phase, steps int64) {
	h.publish(Event{Type: EventPhase, System: system, Replica: replica, Phase: phase, Steps: steps})
}

// Report broadcasts a progress event carrying both the structured report
// and its rendered line.
func (h *Hub) Report(p sim.Progress) {
	h.publish(Event{Type: EventProgress, System: p.System, Replica: p.Replica, Phase: p.Phase, Progress: &p, Line: p.String()})
}

func (h *Hub) publish(ev Event) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- ev:
	case <-h.done:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if h.clients[conn] {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				logrus.Debugf("encoding progress event: %v", err)
				continue
			}
			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for c := range h.clients {
				conns = append(conns, c)
			}
			h.mu.RUnlock()

			var failed []*websocket.Conn
			for _, c := range conns {
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					failed = append(failed, c)
					c.Close()
				}
			}
			if len(failed) > 0 {
				h.mu.Lock()
				for _, c := range failed {
					delete(h.clients, c)
				}
				h.mu.Unlock()
			}
		}
	}
}

// Close stops the broadcaster and closes every client connection. Events
// still queued are discarded. Safe to call more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		h.mu.Lock()
		for c := range h.clients {
			c.Close()
			delete(h.clients, c)
		}
		h.mu.Unlock()
	})
	return nil
}
