package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/binwise/backend/internal/repository"
)

type OutboxRepository interface {
	Create(ctx context.Context, task *repository.OutboxTask) error
}

// AuditManager batches request audit entries and hands them to a worker
// pool that persists them as outbox tasks. The outbox publisher later
// forwards the tasks to Kafka.
type AuditManager struct {
	outbox      OutboxRepository
	topic       string
	workerCount int
	batchSize   int
	timeout     time.Duration
	log         *zap.Logger

	inputChan  chan AuditLogEntry
	batchChan  chan []AuditLogEntry
	shutdownCh chan struct{}
	once       sync.Once

	wg sync.WaitGroup
}

func NewAuditManager(outbox OutboxRepository, topic string, workerCount, batchSize int, timeout time.Duration, log *zap.Logger) *AuditManager {
	return &AuditManager{
		outbox:      outbox,
		topic:       topic,
		workerCount: workerCount,
		batchSize:   batchSize,
		timeout:     timeout,
		log:         log,
		inputChan:   make(chan AuditLogEntry, workerCount*batchSize*2),
		batchChan:   make(chan []AuditLogEntry, workerCount*2),
		shutdownCh:  make(chan struct{}),
	}
}

func (m *AuditManager) Start(ctx context.Context) {
	m.log.Info("starting audit manager",
		zap.Int("workers", m.workerCount),
		zap.Int("batch_size", m.batchSize))

	m.wg.Add(1)
	go m.runAggregator(ctx)

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}

	go m.monitorShutdown(ctx)
}

func (m *AuditManager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		close(m.shutdownCh)

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			m.log.Info("audit manager shutdown completed")
		case <-ctx.Done():
			m.log.Warn("audit manager shutdown interrupted")
		}
	})
}

func (m *AuditManager) monitorShutdown(ctx context.Context) {
	<-ctx.Done()
	m.Shutdown(context.Background())
}

func (m *AuditManager) LogEntry(ctx context.Context, entry AuditLogEntry) {
	select {
	case m.inputChan <- entry:
	case <-ctx.Done():
		m.emergencyLog(entry)
	}
}

func (m *AuditManager) runAggregator(ctx context.Context) {
	defer m.wg.Done()

	var (
		batch    []AuditLogEntry
		timer    *time.Timer
		timeoutC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if len(batch) > 0 {
			m.dispatchBatch(batch)
		}
		close(m.batchChan)
	}()

	for {
		select {
		case entry, ok := <-m.inputChan:
			if !ok {
				return
			}

			batch = append(batch, entry)
			if len(batch) >= m.batchSize {
				m.dispatchBatch(batch)
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(m.timeout)
				timeoutC = timer.C
			}

		case <-timeoutC:
			m.dispatchBatch(batch)
			batch = nil
			timeoutC = nil

		case <-ctx.Done():
			return

		case <-m.shutdownCh:
			return
		}
	}
}

func (m *AuditManager) dispatchBatch(batch []AuditLogEntry) {
	batchCopy := make([]AuditLogEntry, len(batch))
	copy(batchCopy, batch)

	select {
	case m.batchChan <- batchCopy:
	default:
		// Workers are saturated; persist inline rather than drop.
		m.persistBatch(context.Background(), batchCopy)
	}
}

func (m *AuditManager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()

	for {
		select {
		case batch, ok := <-m.batchChan:
			if !ok {
				return
			}
			m.persistBatch(ctx, batch)
		case <-ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case batch, ok := <-m.batchChan:
					if !ok {
						return
					}
					m.persistBatch(context.Background(), batch)
				default:
					return
				}
			}
		}
	}
}

func (m *AuditManager) persistBatch(ctx context.Context, batch []AuditLogEntry) {
	for _, entry := range batch {
		payload, err := json.Marshal(entry)
		if err != nil {
			m.log.Error("failed to marshal audit entry", zap.Error(err))
			continue
		}
		task := &repository.OutboxTask{
			Topic:   m.topic,
			Payload: payload,
		}
		if err := m.outbox.Create(ctx, task); err != nil {
			m.log.Error("failed to persist audit entry",
				zap.String("path", entry.Path),
				zap.Error(err))
		}
	}
}

// emergencyLog dumps an entry to the log when the request context is gone
// and the entry cannot be queued.
func (m *AuditManager) emergencyLog(entry AuditLogEntry) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		m.log.Error("failed to marshal emergency audit entry", zap.Error(err))
		return
	}
	m.log.Warn("audit entry dropped to log", zap.ByteString("entry", entryJSON))
}
