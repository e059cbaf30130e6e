package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/horse-share/internal/models"
)

// WSStore subscribes through a websocket realtime gateway. The gateway
// sends one JSON frame per change: either a single record or an array of
// records for query subscriptions.
type WSStore struct {
	GatewayURL string // e.g. ws://gateway:9000
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

func NewWSStore(gatewayURL string, logger *slog.Logger) *WSStore {
	return &WSStore{GatewayURL: gatewayURL, Dialer: websocket.DefaultDialer, Logger: logger}
}

func (w *WSStore) WatchRide(ctx context.Context, rideID string) (Subscription, error) {
	return w.dial(ctx, "/ws/rides/"+url.PathEscape(rideID))
}

func (w *WSStore) WatchDriver(ctx context.Context, email string) (Subscription, error) {
	return w.dial(ctx, "/ws/drivers/"+url.PathEscape(email))
}

func (w *WSStore) dial(ctx context.Context, path string) (Subscription, error) {
	conn, _, err := w.Dialer.DialContext(ctx, w.GatewayURL+path, nil)
	if err != nil {
		return nil, err
	}
	sub := &wsSub{conn: conn, ch: make(chan []models.Ride, 16)}
	go sub.readLoop(w.Logger)
	return sub, nil
}

type wsSub struct {
	conn *websocket.Conn
	ch   chan []models.Ride
	once sync.Once
}

func (s *wsSub) readLoop(logger *slog.Logger) {
	defer close(s.ch)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return // Close or peer shutdown ends the loop
		}
		snap, err := decodeFrame(frame)
		if err != nil {
			logger.Warn("realtime frame malformed", "err", err)
			continue
		}
		if len(snap) > 0 {
			s.ch <- snap
		}
	}
}

func decodeFrame(frame []byte) ([]models.Ride, error) {
	var many []models.Ride
	if err := json.Unmarshal(frame, &many); err == nil {
		return many, nil
	}
	var one models.Ride
	if err := json.Unmarshal(frame, &one); err != nil {
		return nil, err
	}
	return []models.Ride{one}, nil
}

func (s *wsSub) Updates() <-chan []models.Ride { return s.ch }

func (s *wsSub) Close() {
	s.once.Do(func() { _ = s.conn.Close() })
}
