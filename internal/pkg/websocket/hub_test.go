package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startHub(t *testing.T, snapshot SnapshotFunc) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/live", NewHandler(hub, snapshot, zerolog.Nop()).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishReachesEveryClient(t *testing.T) {
	hub, url := startHub(t, nil)
	a := dial(t, url)
	b := dial(t, url)
	waitForClients(t, hub, 2)

	hub.Publish("results_changed", map[string]string{"kind": "ballot_cast"})

	for _, conn := range []*gws.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != "results_changed" {
			t.Fatalf("type = %q", msg.Type)
		}
		if payload, _ := msg.Payload.(map[string]interface{}); payload["kind"] != "ballot_cast" {
			t.Fatalf("payload = %v", msg.Payload)
		}
	}
}

func TestSnapshotSentOnConnect(t *testing.T) {
	_, url := startHub(t, func(context.Context) (interface{}, error) {
		return map[string]int{"totalVotes": 3}, nil
	})
	conn := dial(t, url)

	msg := readMessage(t, conn)
	if msg.Type != SnapshotMessageType {
		t.Fatalf("type = %q", msg.Type)
	}
	if payload, _ := msg.Payload.(map[string]interface{}); payload["totalVotes"] != float64(3) {
		t.Fatalf("payload = %v", msg.Payload)
	}
}

func TestClosedClientIsUnregistered(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func expectClosed(t *testing.T, conn *gws.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the connection to be closed")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatalf("connection left open: %v", err)
	}
}

func TestStoppedHubDoesNotBlockConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/live", NewHandler(hub, nil, zerolog.Nop()).HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live"

	open := dial(t, url)
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	// the running client is closed by the hub and its reader exits
	expectClosed(t, open)

	// a late connection is closed instead of hanging the handler
	expectClosed(t, dial(t, url))
	if hub.ClientCount() != 0 {
		t.Fatalf("clients = %d after stop", hub.ClientCount())
	}
}
