package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/example/horse-share/internal/models"
)

// RedisStore reads ride records from Redis and learns about changes via
// pub/sub. Records live at ride:{id} as JSON strings; the backend
// publishes a notification on rides.updates.{id} and rides.driver.{email}
// after every write.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(addr, password string, logger *slog.Logger) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, logger: logger}
}

func (r *RedisStore) WatchRide(ctx context.Context, rideID string) (Subscription, error) {
	return r.watch(ctx, "rides.updates."+rideID, func(ctx context.Context) []models.Ride {
		ride, ok := r.readRide(ctx, rideID)
		if !ok {
			return nil
		}
		return []models.Ride{ride}
	})
}

func (r *RedisStore) WatchDriver(ctx context.Context, email string) (Subscription, error) {
	return r.watch(ctx, "rides.driver."+email, func(ctx context.Context) []models.Ride {
		ids, err := r.client.SMembers(ctx, "rides.by_driver."+email).Result()
		if err != nil {
			r.logger.Warn("realtime driver index read failed", "email", email, "err", err)
			return nil
		}
		out := make([]models.Ride, 0, len(ids))
		for _, id := range ids {
			if ride, ok := r.readRide(ctx, id); ok {
				out = append(out, ride)
			}
		}
		return out
	})
}

func (r *RedisStore) readRide(ctx context.Context, rideID string) (models.Ride, bool) {
	raw, err := r.client.Get(ctx, "ride:"+rideID).Result()
	if err == redis.Nil {
		return models.Ride{}, false
	}
	if err != nil {
		r.logger.Warn("realtime record read failed", "ride_id", rideID, "err", err)
		return models.Ride{}, false
	}
	var ride models.Ride
	if err := json.Unmarshal([]byte(raw), &ride); err != nil {
		r.logger.Warn("realtime record malformed", "ride_id", rideID, "err", err)
		return models.Ride{}, false
	}
	if ride.ID == "" {
		ride.ID = rideID
	}
	return ride, true
}

func (r *RedisStore) watch(ctx context.Context, channel string, snapshot func(context.Context) []models.Ride) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channel)
	// force the SUBSCRIBE round-trip so a bad address fails here, not in
	// the read loop
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &redisSub{pubsub: pubsub, cancel: cancel, ch: make(chan []models.Ride, 16)}

	go func() {
		defer close(sub.ch)
		// initial snapshot mirrors the subscribe-then-read semantics of
		// the realtime database the backend models
		if snap := snapshot(ctx); len(snap) > 0 {
			sub.deliver(ctx, snap)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				snap := snapshotFromPayload(msg.Payload)
				if snap == nil {
					snap = snapshot(ctx)
				}
				if len(snap) > 0 {
					sub.deliver(ctx, snap)
				}
			}
		}
	}()
	return sub, nil
}

// snapshotFromPayload accepts a record JSON embedded in the notification
// payload; an unparseable payload falls back to a store read.
func snapshotFromPayload(payload string) []models.Ride {
	var ride models.Ride
	if err := json.Unmarshal([]byte(payload), &ride); err != nil || ride.ID == "" {
		return nil
	}
	return []models.Ride{ride}
}

type redisSub struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	ch     chan []models.Ride
	once   sync.Once
}

func (s *redisSub) deliver(ctx context.Context, snap []models.Ride) {
	select {
	case s.ch <- snap:
	case <-ctx.Done():
	}
}

func (s *redisSub) Updates() <-chan []models.Ride { return s.ch }

func (s *redisSub) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.pubsub.Close()
	})
}
