package kafka

import (
	"context"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer sends raw messages to a topic.
type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// Writer is the subset of segmentio kafka.Writer the producer needs,
// kept narrow so tests can inject a fake.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...segmentio.Message) error
	Close() error
}

type KafkaProducer struct {
	writer Writer
}

// NewKafkaProducer connects to the given broker. The topic is set per
// message, not on the writer, since audit and domain events share one
// producer.
func NewKafkaProducer(brokerURL string) *KafkaProducer {
	w := &segmentio.Writer{
		Addr:                   segmentio.TCP(brokerURL),
		Balancer:               &segmentio.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w}
}

// NewKafkaProducerWithWriter allows injecting a test writer.
func NewKafkaProducerWithWriter(w Writer) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

func (p *KafkaProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	return p.writer.WriteMessages(ctx, segmentio.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// ConsoleProducer logs messages instead of sending them. Used when no
// broker is configured, typically in local development.
type ConsoleProducer struct {
	log *zap.Logger
}

func NewConsoleProducer(log *zap.Logger) *ConsoleProducer {
	log.Info("initialized console kafka producer")
	return &ConsoleProducer{log: log}
}

func (p *ConsoleProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.log.Info("kafka message (console)",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.ByteString("value", value))
	return nil
}

func (p *ConsoleProducer) Close() error {
	return nil
}
