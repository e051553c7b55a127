package port

import (
	"context"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

// DocumentStore holds document blobs keyed by opaque ids. The claim core
// never reads bytes back.
type DocumentStore interface {
	// Store saves content and returns a reference carrying its storage key
	Store(ctx context.Context, claimID string, content []byte, meta entity.DocumentMeta) (entity.DocumentRef, error)

	// Delete removes a stored blob; deleting a missing blob is not an error
	Delete(ctx context.Context, ref entity.DocumentRef) error
}

// HealthChecker is implemented by backends that can report liveness
type HealthChecker interface {
	Ping(ctx context.Context) error
}
