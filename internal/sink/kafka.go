package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/store"
)

// Header keys set on every published submission.
const (
	HeaderSubmissionID = "submission-id"
	HeaderFormID       = "form-id"
	HeaderSessionID    = "session-id"
	HeaderContentType  = "content-type"
)

// KafkaConfig describes the topic completed submissions are published to.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	Timeout  time.Duration
}

// Validate ensures the configuration is usable.
func (cfg KafkaConfig) Validate() error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka sink: at least one broker must be configured")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return errors.New("kafka sink: topic must be provided")
	}
	return nil
}

func (cfg KafkaConfig) effectiveTimeout() time.Duration {
	if cfg.Timeout <= 0 {
		return 5 * time.Second
	}
	return cfg.Timeout
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each submission as one JSON message keyed by form id,
// so all submissions of a form land on the same partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink constructs a Kafka-backed sink.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  strings.TrimSpace(cfg.Topic),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.effectiveTimeout(),
		BatchSize:              1,
	}
	if cfg.ClientID != "" {
		writer.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}

	slog.Info("kafka sink initialized", "brokers", strings.Join(brokers, ","), "topic", writer.Topic)
	return &KafkaSink{writer: writer, topic: writer.Topic}, nil
}

// Deliver publishes the submission.
func (k *KafkaSink) Deliver(ctx context.Context, sub store.Submission) error {
	msg, err := encodeSubmission(sub)
	if err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka sink: publish to %s: %w", k.topic, err)
	}
	slog.Debug("submission published", "submission", sub.ID, "topic", k.topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// submissionEvent is the published message body.
type submissionEvent struct {
	ID          string       `json:"id"`
	FormID      string       `json:"form_id"`
	SessionID   string       `json:"session_id,omitempty"`
	Answers     form.Answers `json:"answers"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

func encodeSubmission(sub store.Submission) (kafka.Message, error) {
	answers := sub.Answers
	if answers == nil {
		answers = form.NewAnswers()
	}

	value, err := json.Marshal(submissionEvent{
		ID:          sub.ID,
		FormID:      sub.FormID,
		SessionID:   sub.SessionID,
		Answers:     answers,
		SubmittedAt: sub.SubmittedAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode submission %s: %w", sub.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(sub.FormID),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderSubmissionID, Value: []byte(sub.ID)},
			{Key: HeaderFormID, Value: []byte(sub.FormID)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}
	if sub.SessionID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderSessionID, Value: []byte(sub.SessionID)})
	}
	return msg, nil
}
