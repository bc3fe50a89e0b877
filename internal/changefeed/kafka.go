package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type changeEvent struct {
	Key       string    `json:"key"`
	ChangedAt time.Time `json:"changed_at"`
}

// Kafka publishes change events to a topic and fans received events out to
// local subscribers. Each instance consumes with its own group so every
// instance sees every event; the group id must stay stable across restarts.
type Kafka struct {
	writer  *kafka.Writer
	brokers []string
	topic   string
	groupID string
	logger  *log.Logger
	broker  *Memory
}

func NewKafka(brokers []string, topic, groupID string, logger *log.Logger) *Kafka {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		brokers: brokers,
		topic:   topic,
		groupID: GroupID(groupID),
		logger:  logger,
		broker:  NewMemory(),
	}
}

// GroupID returns explicit when set, otherwise an id derived from the host
// name so a restarted instance rejoins its own group.
func GroupID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return "storefront-" + host
}

func (k *Kafka) Subscribe(ctx context.Context, key string) (Subscription, error) {
	return k.broker.Subscribe(ctx, key)
}

func (k *Kafka) Publish(ctx context.Context, key string) error {
	value, err := encodeEvent(key, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("kafka publish key=%s: %w", key, err)
	}
	return nil
}

// Run consumes the topic until ctx is cancelled.
func (k *Kafka) Run(ctx context.Context) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       k.topic,
		GroupID:     k.groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    1e6,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			k.logger.Printf("changefeed: close kafka reader: %v", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			k.logger.Printf("changefeed: read kafka topic=%s error=%v", k.topic, err)
			continue
		}
		key, err := decodeEvent(m)
		if err != nil {
			k.logger.Printf("changefeed: decode kafka offset=%d error=%v", m.Offset, err)
			continue
		}
		_ = k.broker.Publish(ctx, key)
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func encodeEvent(key string, at time.Time) ([]byte, error) {
	return json.Marshal(changeEvent{Key: key, ChangedAt: at})
}

func decodeEvent(m kafka.Message) (string, error) {
	var ev changeEvent
	if len(m.Value) > 0 {
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			return "", err
		}
	}
	if ev.Key == "" {
		ev.Key = string(m.Key)
	}
	if ev.Key == "" {
		return "", errors.New("event has no key")
	}
	return ev.Key, nil
}
