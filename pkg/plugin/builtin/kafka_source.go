package builtin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/logflow-dev/logflow/pkg/logevent"
	"github.com/logflow-dev/logflow/pkg/plugin"
)

func init() {
	plugin.RegisterSource("kafka", func() plugin.Source { return &KafkaSource{} })
}

// KafkaSource consumes from one or more Kafka topics via kafka.Reader,
// grounded directly on pkg/source/kafka.go's reader construction.
// Backpressure policy: blocks the per-topic read loop on emit — a full
// ingest queue stalls consumption, relying on the broker to retain
// unconsumed messages.
type KafkaSource struct {
	readers []*kafka.Reader
	topics  []string

	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.Mutex
	stats   plugin.SourceStats
}

func (s *KafkaSource) Name() string { return "kafka" }
func (s *KafkaSource) Type() string { return "kafka" }

func (s *KafkaSource) Open(_ context.Context, cfg plugin.Config) error {
	brokers := cfg.GetStringSlice("brokers")
	topics := cfg.GetStringSlice("topics")
	if len(brokers) == 0 || len(topics) == 0 {
		return &plugin.ConfigError{Plugin: "kafka", Msg: "brokers and topics are required"}
	}
	s.topics = topics

	groupID := cfg.GetString("group_id", "")
	startOffset := kafka.LastOffset
	if cfg.GetString("start_offset", "latest") == "earliest" {
		startOffset = kafka.FirstOffset
	}
	minBytes := cfg.GetInt("min_bytes", 1)
	maxBytes := cfg.GetInt("max_bytes", 10*1024*1024)
	maxWait := cfg.GetDuration("max_wait", 500*time.Millisecond)
	commitInterval := cfg.GetDuration("commit_interval", time.Second)

	for _, topic := range topics {
		readerCfg := kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			MinBytes:       minBytes,
			MaxBytes:       maxBytes,
			MaxWait:        maxWait,
			StartOffset:    startOffset,
			CommitInterval: commitInterval,
		}
		if groupID != "" {
			readerCfg.GroupID = groupID
		}
		s.readers = append(s.readers, kafka.NewReader(readerCfg))
	}
	return nil
}

func (s *KafkaSource) Start(ctx context.Context, emit plugin.EmitFunc) error {
	s.running.Store(true)
	defer s.running.Store(false)

	for _, reader := range s.readers {
		s.wg.Add(1)
		go s.consume(ctx, reader, emit)
	}
	s.wg.Wait()
	return nil
}

func (s *KafkaSource) consume(ctx context.Context, reader *kafka.Reader, emit plugin.EmitFunc) {
	defer s.wg.Done()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			s.mu.Lock()
			s.stats.Errors++
			s.mu.Unlock()
			return
		}

		evt := logevent.New("kafka", string(msg.Value))
		evt.Metadata["topic"] = msg.Topic
		for _, h := range msg.Headers {
			evt.Metadata["header."+h.Key] = string(h.Value)
		}
		if len(msg.Key) > 0 {
			evt.Metadata["key"] = string(msg.Key)
		}

		if emit != nil {
			if emitErr := emit(ctx, evt); emitErr != nil {
				return
			}
		}
		s.mu.Lock()
		s.stats.EventsEmitted++
		s.mu.Unlock()
	}
}

func (s *KafkaSource) Stop(context.Context) error {
	var firstErr error
	for _, reader := range s.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.wg.Wait()
	return firstErr
}

func (s *KafkaSource) Stats() plugin.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
