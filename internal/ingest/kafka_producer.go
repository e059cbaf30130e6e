package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/horse-share/internal/models"
)

// TelemetrySample is the message mirrored onto the telemetry topic for
// every location sync that reached the backend.
type TelemetrySample struct {
	UID      string       `json:"uid"`
	Role     models.Role  `json:"role"`
	Location models.Coord `json:"location"`
	At       int64        `json:"at"` // unix millis
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w}
}

// PublishSample writes one telemetry message keyed by uid so per-user
// ordering survives partitioning.
func (k *KafkaProducer) PublishSample(uid string, role models.Role, s models.Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg := TelemetrySample{UID: uid, Role: role, Location: s.Coord, At: s.At.UnixMilli()}
	b, _ := json.Marshal(msg)
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(uid), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
