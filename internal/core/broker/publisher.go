package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"shop-api/internal/core/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// DefaultPublishTimeout bounds Publish when the caller's context has no deadline.
const DefaultPublishTimeout = 5 * time.Second

// Publisher sends keyed messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// Writer is the subset of *kafka.Writer the publisher depends on.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds the producer settings.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchTimeout time.Duration
	// PublishTimeout bounds one Publish call. Defaults to DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// Validate checks the config is usable.
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return errors.New("kafka: broker address must not be empty")
		}
	}
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("kafka: topic is required")
	}
	return nil
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			brokers = append(brokers, part)
		}
	}
	return brokers
}

// KafkaPublisher implements Publisher with a synchronous kafka-go writer.
type KafkaPublisher struct {
	writer  Writer
	topic   string
	timeout time.Duration
	closed  atomic.Bool
}

// NewKafkaPublisher creates a publisher for cfg.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.PublishTimeout,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network string, address string) (net.Conn, error) {
				dialer := &kafka.Dialer{
					Timeout:   cfg.PublishTimeout,
					DualStack: true,
					KeepAlive: 30 * time.Second,
				}
				return dialer.DialContext(ctx, network, address)
			},
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Get().Error("Kafka writer error", zap.String("detail", fmt.Sprintf(msg, args...)))
		}),
	}

	return NewKafkaPublisherWithWriter(writer, cfg.Topic, cfg.PublishTimeout), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer. A non-positive
// timeout selects DefaultPublishTimeout.
func NewKafkaPublisherWithWriter(w Writer, topic string, timeout time.Duration) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &KafkaPublisher{writer: w, topic: topic, timeout: timeout}
}

// Publish writes one message and blocks until the brokers acknowledge it or
// the publish timeout elapses, whichever comes first.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer. Calling it twice is a no-op.
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
