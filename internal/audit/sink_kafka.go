package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"assent/internal/platform/config"
)

// KafkaSink produces audit events as JSON records, keyed by device id
// so each device's trail stays ordered within its partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaSink(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(25*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: cfg.Topic, logger: logger}, nil
}

// EnsureTopic creates the audit topic when it does not exist yet. Safe
// to call on every startup.
func (s *KafkaSink) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(s.client)
	res, err := adm.CreateTopics(ctx, partitions, replicas, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, t := range res.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

type kafkaEvent struct {
	Category        string    `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
	DeviceID        string    `json:"device_id,omitempty"`
	Action          string    `json:"action"`
	Region          string    `json:"region,omitempty"`
	Geography       string    `json:"geography,omitempty"`
	NoticeKey       string    `json:"notice_key,omitempty"`
	NoticeHistoryID string    `json:"notice_history_id,omitempty"`
	ServedRef       string    `json:"served_ref,omitempty"`
	Preference      string    `json:"preference,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

// Produce fires the record without waiting for the broker ack. Delivery
// failures are logged; the audit store already holds the event.
func (s *KafkaSink) Produce(ctx context.Context, event Event) error {
	wire := kafkaEvent{
		Category:        string(event.Category),
		Timestamp:       event.Timestamp,
		Action:          string(event.Action),
		Region:          event.Region,
		Geography:       event.Geography,
		NoticeKey:       event.NoticeKey,
		NoticeHistoryID: event.NoticeHistoryID,
		ServedRef:       event.ServedRef,
		Preference:      event.Preference,
		Reason:          event.Reason,
		RequestID:       event.RequestID,
	}
	var key []byte
	if !event.DeviceID.IsZero() {
		wire.DeviceID = event.DeviceID.String()
		key = []byte(wire.DeviceID)
	}

	value, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	record := &kgo.Record{Topic: s.topic, Key: key, Value: value}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("audit record delivery failed",
				"topic", s.topic,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes buffered records and releases the client.
func (s *KafkaSink) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Flush(ctx); err != nil {
		s.logger.Warn("kafka flush on close failed", "error", err)
	}
	s.client.Close()
}
