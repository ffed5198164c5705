package driven

import (
	"context"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// MappingEventSink receives automatic mapping decisions.
type MappingEventSink interface {
	// Publish emits one event.
	Publish(ctx context.Context, event domain.MappingEvent) error

	// Close flushes and releases the sink.
	Close() error
}
