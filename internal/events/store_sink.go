package events

import (
	"context"
	"log"
	"time"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// StoreSink persists published events to an audit log store. Append
// failures are logged, never surfaced to the operation that emitted the
// event: the audit trail is best-effort relative to the committed state.
type StoreSink struct {
	store   storage.EventStore
	logger  *log.Logger
	timeout time.Duration
}

// NewStoreSink creates a sink writing to store.
func NewStoreSink(store storage.EventStore, logger *log.Logger) *StoreSink {
	if logger == nil {
		logger = log.Default()
	}
	return &StoreSink{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Publish appends the event to the store.
func (s *StoreSink) Publish(e domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.Append(ctx, &e); err != nil {
		s.logger.Printf("append %s event for vault %s: %v", e.Type, e.VaultID, err)
	}
}
