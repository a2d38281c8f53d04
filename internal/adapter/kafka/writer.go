package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/climavida/heatzone-service/internal/config"
	"github.com/climavida/heatzone-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes classified zone snapshots to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot writes one message per zone, keyed by zone id, in a single
// WriteMessages call. Keying by id lets a compacted topic retain the latest
// classification of every zone.
func (w *Writer) PublishSnapshot(ctx context.Context, set *domain.ZoneSet) error {
	zones := set.All()
	if len(zones) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(zones))
	for i := range zones {
		msg, err := serializeToMessage(zones[i], set.LoadedAt())
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d zones: %w", len(msgs), err)
	}
	w.logger.Debug("snapshot published", "zones", len(msgs), "loaded_at", set.LoadedAt())
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a classified Zone into a Kafka message.
func serializeToMessage(z domain.Zone, loadedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(z)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize zone %d: %w", z.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(z.ID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "tier", Value: []byte(z.Tier.String())},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
