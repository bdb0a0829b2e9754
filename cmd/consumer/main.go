// Audit log consumer. Reads the audit topic and prints entries; useful
// for tailing what the backend records in production-like setups.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/binwise/backend/internal/config"
	"github.com/binwise/backend/internal/logger"
)

const groupID = "audit-log-consumer-group"

func main() {
	cfg := config.Load()
	log := logger.New(cfg.IsProduction())
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reader := segmentio.NewReader(segmentio.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		GroupID:        groupID,
		Topic:          cfg.AuditTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error("failed to close kafka reader", zap.Error(err))
		}
	}()

	log.Info("audit consumer connected",
		zap.String("topic", cfg.AuditTopic),
		zap.String("broker", cfg.KafkaBroker))

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("shutdown signal received, stopping consumer")
				return
			}
			log.Error("failed to read message", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		log.Info("audit entry",
			zap.Time("timestamp", m.Time),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.ByteString("key", m.Key),
			zap.ByteString("value", m.Value))
	}
}
