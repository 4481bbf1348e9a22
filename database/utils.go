package database

import (
	"context"
	"time"
)

// Common timeout durations for database operations.
const (
	// ShortTimeout for single-document reads and writes.
	ShortTimeout = 5 * time.Second

	// MediumTimeout for queries returning multiple documents.
	MediumTimeout = 10 * time.Second

	// LongTimeout for bulk writes such as a roster sync.
	LongTimeout = 30 * time.Second
)

// withTimeout derives a bounded context from the caller's so request
// cancellation still propagates into the driver.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
