package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is the frame pushed to dashboard clients.
type Event struct {
	Type      string        `json:"type"`
	Content   string        `json:"content,omitempty"`
	Trade     *models.Trade `json:"trade,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// sendBuffer is how many frames a client may fall behind before it is
// disconnected.
const sendBuffer = 32

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster pushes notifications to every connected websocket client.
// It is a Notifier and an HTTP handler serving /ws. Each client has its own
// writer goroutine, so a slow connection never holds up the others.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewBroadcaster(l *logger.Logger) *Broadcaster {
	if l == nil {
		l = logger.Nop()
	}
	return &Broadcaster{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:      l,
	}
}

func (b *Broadcaster) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", b.Handle)
}

// Clients reports the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Handle upgrades the request and keeps the connection until the client
// goes away. Incoming frames are discarded.
func (b *Broadcaster) Handle(c echo.Context) error {
	conn, err := b.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	b.mu.Lock()
	b.clients[cl] = struct{}{}
	b.mu.Unlock()
	b.log.Debug("websocket client connected", logger.String("remote", c.RealIP()))

	go b.writePump(cl)
	defer func() {
		b.remove(cl)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// writePump is the only writer on cl.conn. It exits when cl.send is closed
// or a write fails.
func (b *Broadcaster) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				b.log.Debug("websocket write failed, dropping client", logger.Error(err))
				b.remove(cl)
				return
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				b.remove(cl)
				return
			}
		}
	}
}

// remove unregisters cl and closes its queue once.
func (b *Broadcaster) remove(cl *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(cl)
}

func (b *Broadcaster) removeLocked(cl *client) {
	if _, ok := b.clients[cl]; !ok {
		return
	}
	delete(b.clients, cl)
	close(cl.send)
}

func (b *Broadcaster) Post(_ context.Context, content string) error {
	return b.broadcast(Event{Type: "message", Content: content, Timestamp: time.Now().UnixMilli()})
}

func (b *Broadcaster) PostTradeUpdate(_ context.Context, trade *models.Trade) error {
	return b.broadcast(Event{Type: "trade", Trade: trade, Timestamp: time.Now().UnixMilli()})
}

// broadcast queues the frame for every client without blocking. A client
// whose queue is full is disconnected.
func (b *Broadcaster) broadcast(ev Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for cl := range b.clients {
		select {
		case cl.send <- msg:
		default:
			b.log.Warn("websocket client too slow, dropping")
			b.removeLocked(cl)
		}
	}
	return nil
}
