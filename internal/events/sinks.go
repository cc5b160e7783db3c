package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"poolvault/internal/model"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) PutEvents(_ context.Context, records []model.EventRecord) error {
	for _, r := range records {
		s.logger.Info("program event",
			zap.String("event", r.Name),
			zap.String("tx_id", r.TxID),
			zap.Uint32("index", r.Index),
			zap.Any("decoded", r.Decoded),
			zap.String("data", r.Data),
		)
	}
	return nil
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []model.EventRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) PutEvents(_ context.Context, records []model.EventRecord) error {
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	return nil
}

// Records returns a copy of everything received so far.
func (s *MemorySink) Records() []model.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventRecord, len(s.records))
	copy(out, s.records)
	return out
}
