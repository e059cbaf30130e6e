package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/example/horse-share/internal/models"
)

// The rider detaches on a terminal status while shutdown may call Close
// on the same subscription; Close must stay safe under that overlap.
func TestRedisSubCloseConcurrent(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	pubsub := client.Subscribe(context.Background(), "rides.updates.r1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &redisSub{pubsub: pubsub, cancel: cancel, ch: make(chan []models.Ride, 1)}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	sub.Close()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("Close did not cancel the subscription context")
	}
}
