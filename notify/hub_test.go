package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialHub stands up a server that registers every connection with the hub
// and returns a connected client.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestHubDeliversNotifications(t *testing.T) {
	hub := NewHub()
	client := dialHub(t, hub)

	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	hub.Notify(Notification{Level: LevelSuccess, Title: "Split finished", Message: "2 segments"})

	client.SetReadDeadline(time.Now().Add(time.Second))
	var got Notification
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Level != LevelSuccess || got.Title != "Split finished" {
		t.Errorf("notification = %+v", got)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	client := dialHub(t, hub)

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount after Close = %d, want 0", hub.ClientCount())
	}

	// The client observes the close; no notification ever arrives.
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Error("read after Close succeeded, want a close error")
	}

	// Closing twice and notifying an empty hub are harmless.
	hub.Close()
	hub.Notify(Notification{Level: LevelError, Title: "after close"})
}
