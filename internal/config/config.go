package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/horse-share/internal/models"
)

// AgentConfig captures all tunable parameters for the client agent.
// Values are primarily loaded from environment variables with sane
// defaults so the binary can run locally without excessive setup.
type AgentConfig struct {
	ControlAddr     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	APIBaseURL string

	// identity; the login UI is an external collaborator, so the agent
	// receives it through the environment
	UID   string
	Email string
	Role  models.Role

	RedisAddr          string
	RedisPassword      string
	RealtimeGatewayURL string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN         string
	RunMigrations bool

	DefaultLat    float64
	DefaultLon    float64
	DefaultRangeM int

	SyncMinInterval  time.Duration
	SyncMinDistanceM float64

	HeartbeatInterval time.Duration

	BaseRate  float64
	RatePerKm float64
	FlatPrice int

	LogLevel string
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		ControlAddr:     ":8090",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,

		APIBaseURL: "http://localhost:8000",
		Role:       models.RoleRider,

		KafkaTopic: "client-locations",

		// Cluj-Napoca city center, the fallback when geolocation is
		// unavailable or denied
		DefaultLat:    46.770439,
		DefaultLon:    23.591423,
		DefaultRangeM: 5000,

		SyncMinInterval:  30 * time.Second,
		SyncMinDistanceM: 30,

		HeartbeatInterval: 30 * time.Second,

		BaseRate:  5,
		RatePerKm: 3,
		FlatPrice: 15,

		LogLevel: "info",
	}
}

func LoadAgentConfig() (AgentConfig, error) {
	cfg := defaultAgentConfig()
	var errs []error

	setStringFromEnv(&cfg.ControlAddr, "CONTROL_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.APIBaseURL, "API_URL")

	cfg.UID = strings.TrimSpace(os.Getenv("USER_UID"))
	cfg.Email = strings.TrimSpace(os.Getenv("USER_EMAIL"))
	if v := strings.TrimSpace(os.Getenv("USER_ROLE")); v != "" {
		switch models.Role(v) {
		case models.RoleRider, models.RoleDriver:
			cfg.Role = models.Role(v)
		default:
			errs = append(errs, fmt.Errorf("invalid USER_ROLE %q", v))
		}
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RealtimeGatewayURL = strings.TrimSpace(os.Getenv("REALTIME_GATEWAY_URL"))

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	setFloatFromEnv(&cfg.DefaultLat, "DEFAULT_LAT", &errs)
	setFloatFromEnv(&cfg.DefaultLon, "DEFAULT_LON", &errs)
	setIntFromEnv(&cfg.DefaultRangeM, "DEFAULT_RANGE_M", &errs)

	setDurationFromEnv(&cfg.SyncMinInterval, "SYNC_MIN_INTERVAL", &errs)
	setFloatFromEnv(&cfg.SyncMinDistanceM, "SYNC_MIN_DISTANCE_M", &errs)
	setDurationFromEnv(&cfg.HeartbeatInterval, "HEARTBEAT_INTERVAL", &errs)

	setFloatFromEnv(&cfg.BaseRate, "PRICE_BASE_RATE", &errs)
	setFloatFromEnv(&cfg.RatePerKm, "PRICE_RATE_PER_KM", &errs)
	setIntFromEnv(&cfg.FlatPrice, "PRICE_FLAT", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.DefaultRangeM <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_RANGE_M must be > 0"))
	}
	if cfg.SyncMinDistanceM < 0 {
		errs = append(errs, fmt.Errorf("SYNC_MIN_DISTANCE_M must be >= 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
