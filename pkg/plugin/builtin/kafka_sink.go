package builtin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterSink("kafka", func() plugin.Sink { return &KafkaSink{} })
}

// KafkaSink produces one message per event to a fixed topic via
// kafka.Writer, grounded on the teacher's KafkaSink shape in
// pkg/stream/sink.go (brokers/topic config, batched writes) filled in
// with a real producer in place of the "Would send" placeholder.
type KafkaSink struct {
	writer *kafka.Writer
	name   string
}

func (s *KafkaSink) Name() string { return s.name }

func (s *KafkaSink) Open(_ context.Context, cfg plugin.Config) error {
	brokers := cfg.GetStringSlice("brokers")
	topic := cfg.GetString("topic", "")
	if len(brokers) == 0 || topic == "" {
		return &plugin.ConfigError{Plugin: "kafka", Msg: "brokers and topic are required"}
	}

	s.name = "kafka:" + topic
	s.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.GetDuration("batch_timeout", 100*time.Millisecond),
		RequiredAcks: kafka.RequireOne,
	}
	return nil
}

func (s *KafkaSink) Write(ctx context.Context, batch *logevent.Batch) error {
	events := batch.Events()
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		payload, err := json.Marshal(eventToMap(evt))
		if err != nil {
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(evt.ID.String()),
			Value: payload,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return &plugin.SinkRetryableError{Err: err}
	}
	return nil
}

func (s *KafkaSink) Flush(context.Context) error { return nil }

func (s *KafkaSink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

func eventToMap(evt *logevent.LogEvent) map[string]any {
	m := map[string]any{
		"id":        evt.ID.String(),
		"timestamp": evt.Timestamp,
		"source":    evt.Source,
		"raw_data":  evt.RawData,
		"fields":    evt.Fields,
		"metadata":  evt.Metadata,
		"tags":      evt.TagList(),
	}
	return m
}
