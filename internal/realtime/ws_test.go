package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/horse-share/internal/models"
)

func TestWSWatchRideDecodesFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/rides/r1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		// single-record frame, then array frame
		conn.WriteJSON(models.Ride{ID: "r1", Status: models.StatusAccepted})
		conn.WriteJSON([]models.Ride{{ID: "r1", Status: models.StatusPickedUp}})
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	store := NewWSStore("ws"+strings.TrimPrefix(srv.URL, "http"), slog.Default())
	sub, err := store.WatchRide(context.Background(), "r1")
	if err != nil {
		t.Fatalf("WatchRide: %v", err)
	}
	defer sub.Close()

	if snap := recv(t, sub); snap[0].Status != models.StatusAccepted {
		t.Fatalf("first frame status = %s", snap[0].Status)
	}
	if snap := recv(t, sub); snap[0].Status != models.StatusPickedUp {
		t.Fatalf("second frame status = %s", snap[0].Status)
	}
}
