package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaStatsStore publica cada decisão como mensagem JSON num tópico, para
// consumidores externos (dashboards, auditoria) agregarem fora do gateway.
type KafkaStatsStore struct {
	w      messageWriter
	logger *zap.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// statsMessage é o payload publicado.
type statsMessage struct {
	Subject        string `json:"subject"`
	Rule           string `json:"rule"`
	Allowed        bool   `json:"allowed"`
	Classification string `json:"classification,omitempty"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	At             string `json:"at"`
}

// NewKafkaWriter monta um writer assíncrono particionado pela regra.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("failed to publish rate limit stats",
					zap.Error(err),
					zap.Int("message_count", len(messages)))
			}
		},
	}
}

func NewKafkaStatsStore(w messageWriter, logger *zap.Logger) *KafkaStatsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaStatsStore{w: w, logger: logger}
}

func (s *KafkaStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	msg, err := encodeStatsEvent(ev)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka stats: %w", err)
	}
	return nil
}

func (s *KafkaStatsStore) Close() error {
	return s.w.Close()
}

func encodeStatsEvent(ev domain.StatsEvent) (kafka.Message, error) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	payload, err := json.Marshal(statsMessage{
		Subject:        ev.Subject,
		Rule:           ev.RuleID,
		Allowed:        ev.Allowed,
		Classification: string(ev.Classification),
		Method:         ev.Method,
		Path:           ev.Path,
		At:             at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode stats event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.RuleID),
		Value: payload,
		Time:  at,
	}, nil
}
