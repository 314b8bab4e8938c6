package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ChainPulse/internal/domain/models"
)

func TestBroadcasterDeliversEvents(t *testing.T) {
	b := NewBroadcaster(nil)
	e := echo.New()
	b.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := b.Post(context.Background(), "Market update"); err != nil {
		t.Fatalf("post: %v", err)
	}
	trade := models.NewTrade(models.TradeBuy, "ETH", 100, "ETH/USDT")
	if err := b.PostTradeUpdate(context.Background(), trade); err != nil {
		t.Fatalf("post trade: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != "message" || first.Content != "Market update" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if second.Type != "trade" || second.Trade == nil || second.Trade.ID != trade.ID {
		t.Fatalf("unexpected second event %+v", second)
	}
}

func TestBroadcasterDropsStalledClient(t *testing.T) {
	b := NewBroadcaster(nil)
	stalled := &client{send: make(chan []byte, 1)}
	b.clients[stalled] = struct{}{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			_ = b.Post(context.Background(), "tick")
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast blocked on a client that never drains")
	}

	if b.Clients() != 0 {
		t.Fatalf("stalled client should be dropped, %d left", b.Clients())
	}
	if _, ok := <-stalled.send; !ok {
		t.Fatalf("queued frame lost before close")
	}
	if _, ok := <-stalled.send; ok {
		t.Fatalf("queue should be closed")
	}
}
