package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/horse-share/internal/backend"
	"github.com/example/horse-share/internal/config"
	"github.com/example/horse-share/internal/heartbeat"
	httpapi "github.com/example/horse-share/internal/http"
	"github.com/example/horse-share/internal/ingest"
	"github.com/example/horse-share/internal/location"
	"github.com/example/horse-share/internal/logging"
	"github.com/example/horse-share/internal/models"
	"github.com/example/horse-share/internal/pricing"
	"github.com/example/horse-share/internal/realtime"
	"github.com/example/horse-share/internal/ride"
	"github.com/example/horse-share/internal/session"
)

func main() {
	cfg, err := config.LoadAgentConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	sess := session.New(models.Coord{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon})

	var store session.Store = session.NewMemoryStore()
	if cfg.PGDSN != "" {
		ps, err := session.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Warn("session store unavailable, using memory", "err", err)
		} else {
			if cfg.RunMigrations {
				if err := ps.Migrate(); err != nil {
					logger.Warn("session migration failed", "err", err)
				}
			}
			store = ps
			defer ps.Close()
		}
	}

	if cfg.UID != "" {
		if snap, ok, err := store.Load(cfg.UID); err != nil {
			logger.Warn("session restore failed", "uid", cfg.UID, "err", err)
		} else if ok {
			sess.Restore(snap)
			logger.Info("session restored", "uid", cfg.UID, "ride_state", snap.RideState)
		}
		sess.Login(cfg.UID, cfg.Email, cfg.Role)
	}

	var rt realtime.Store
	switch {
	case cfg.RedisAddr != "":
		rt = realtime.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, logging.ForComponent(logger, "realtime"))
	case cfg.RealtimeGatewayURL != "":
		rt = realtime.NewWSStore(cfg.RealtimeGatewayURL, logging.ForComponent(logger, "realtime"))
	default:
		logger.Warn("no realtime backend configured, ride updates will not arrive")
		rt = realtime.NewMemoryStore()
	}

	api := backend.NewClient(cfg.APIBaseURL)
	notifier := &ride.LogNotifier{Logger: logging.ForComponent(logger, "notify")}
	rates := pricing.Rates{Base: cfg.BaseRate, PerKm: cfg.RatePerKm, FlatPrice: cfg.FlatPrice}

	rider := &ride.Rider{
		Session:  sess,
		Backend:  api,
		Realtime: rt,
		Notify:   notifier,
		Rates:    rates,
		Logger:   logging.ForComponent(logger, "rider"),
	}
	driver := &ride.Driver{
		Session:  sess,
		Backend:  api,
		Realtime: rt,
		Notify:   notifier,
		Logger:   logging.ForComponent(logger, "driver"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// re-attach listeners for a ride that survived a restart
	if cfg.Role == models.RoleDriver {
		if err := driver.Listen(ctx); err != nil {
			logger.Error("driver listener failed", "err", err)
		}
	} else if err := rider.Resume(ctx); err != nil {
		logger.Error("ride listener resume failed", "err", err)
	}

	var telemetry location.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		telemetry = kp
	}

	src := location.NewChannelSource()
	watcher := &location.Watcher{
		Session:   sess,
		Throttle:  &location.Throttle{MinInterval: cfg.SyncMinInterval, MinDistance: cfg.SyncMinDistanceM},
		Sync:      api,
		Telemetry: telemetry,
		Logger:    logging.ForComponent(logger, "location"),
	}
	watcherDone := make(chan struct{})
	go func() {
		watcher.Run(ctx, src)
		close(watcherDone)
	}()

	hb := heartbeat.NewRunner(sess, api, logging.ForComponent(logger, "heartbeat"))
	hb.Interval = cfg.HeartbeatInterval
	go hb.Run(ctx)

	// persist the session periodically so a crash can still resume
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := store.Save(sess.Snapshot()); err != nil {
					logger.Warn("session save failed", "err", err)
				}
			}
		}
	}()

	srv := httpapi.NewServer(sess, rider, driver, api, src, hb, cfg.DefaultRangeM, logging.ForComponent(logger, "control"))
	httpServer := &http.Server{
		Addr:         cfg.ControlAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		log.Printf("horse-share agent control API on %s (role %s)", cfg.ControlAddr, cfg.Role)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("control server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down agent")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	src.Stop()
	<-watcherDone
	rider.Stop()
	driver.Stop()
	hb.Stop(shutdownCtx)
	if err := store.Save(sess.Snapshot()); err != nil {
		logger.Warn("final session save failed", "err", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("control server shutdown: %v", err)
	}
}
