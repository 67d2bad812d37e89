package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Gladiston-Porto/GladPros-sub002/internal/infra/config"
)

// Producer wraps an async sarama producer with topic naming.
type Producer struct {
	producer    sarama.AsyncProducer
	topicPrefix string
	logger      *zap.Logger
}

// NewProducer constructs an async producer against the configured brokers.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Return.Successes = false

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer:    producer,
		topicPrefix: strings.TrimSpace(cfg.TopicPrefix),
		logger:      logger,
	}

	// Drain the error channel so delivery failures surface in logs instead
	// of blocking the producer.
	go func() {
		for err := range producer.Errors() {
			p.logger.Warn("kafka publish failed", zap.String("topic", err.Msg.Topic), zap.Error(err.Err))
		}
	}()

	return p, nil
}

// Input exposes the async producer input channel.
func (p *Producer) Input() chan<- *sarama.ProducerMessage {
	return p.producer.Input()
}

// TopicName renders the fully qualified topic for an event type.
func (p *Producer) TopicName(eventType string) string {
	name := strings.ReplaceAll(eventType, ".", "-")
	if p.topicPrefix == "" {
		return name
	}
	return p.topicPrefix + "-" + name
}

// Close shuts the producer down, flushing buffered messages.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
