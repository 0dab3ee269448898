package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestServer starts a websocket server running serve and returns a client wrapped around it.
func dialTestServer(t *testing.T, serve func(conn *websocket.Conn)) *WebSocketClient {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade: %v", err)
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewWebSocketClient(conn, 4096)
}

func TestWebSocketClient_ReadLine_EmptyMessages(t *testing.T) {
	client := dialTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(""))
		conn.WriteMessage(websocket.TextMessage, []byte("   "))
		conn.WriteMessage(websocket.TextMessage, []byte("\n\n\n"))
		conn.WriteMessage(websocket.TextMessage, []byte("generate 3"))
		time.Sleep(100 * time.Millisecond)
	})

	line, err := client.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine failed: %v", err)
	}
	if line != "generate 3" {
		t.Errorf("Expected 'generate 3', got '%s'", line)
	}
}

func TestWebSocketClient_ReadLine_MultiLineMessage(t *testing.T) {
	client := dialTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("help\ngenerate 2\n  generate 5 0.9 boss  "))
		time.Sleep(100 * time.Millisecond)
	})

	for _, want := range []string{"help", "generate 2", "generate 5 0.9 boss"} {
		line, err := client.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if line != want {
			t.Errorf("Expected %q, got %q", want, line)
		}
	}
}

func TestWebSocketClient_WriteJSON(t *testing.T) {
	received := make(chan string, 1)
	client := dialTestServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(msg)
	})

	if err := client.WriteJSON(map[string]string{"layout": "arena"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	select {
	case msg := <-received:
		if strings.TrimSpace(msg) != `{"layout":"arena"}` {
			t.Errorf("unexpected message %q", msg)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestWebSocketClient_RemoteAddr(t *testing.T) {
	done := make(chan struct{})
	client := dialTestServer(t, func(conn *websocket.Conn) { <-done })
	defer close(done)

	if client.RemoteAddr() == "" {
		t.Error("RemoteAddr should not be empty")
	}
}
