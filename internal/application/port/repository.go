package port

import (
	"context"
	"errors"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

// ErrVersionConflict is returned by a conditional write whose expected
// version no longer matches the stored snapshot
var ErrVersionConflict = errors.New("version conflict")

// ErrAlreadyExists is returned when creating a record whose id is taken
var ErrAlreadyExists = errors.New("already exists")

// ClaimFilter narrows a claim listing. Zero values do not filter.
type ClaimFilter struct {
	EmployeeID string
	PolicyID   string
	Category   entity.Category
	Statuses   []workflow.State
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Matches reports whether a claim passes the filter, ignoring paging.
// Backends that cannot express a condition natively apply it with Matches.
func (f ClaimFilter) Matches(c *entity.Claim) bool {
	if f.EmployeeID != "" && c.EmployeeID != f.EmployeeID {
		return false
	}
	if f.PolicyID != "" && c.PolicyID != f.PolicyID {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && c.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && c.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// ClaimRepository persists claim snapshots with optimistic versioning
type ClaimRepository interface {
	// Create stores a new claim; ErrAlreadyExists when the id is taken
	Create(ctx context.Context, claim *entity.Claim) error

	// GetByID returns nil, nil when the claim does not exist
	GetByID(ctx context.Context, id string) (*entity.Claim, error)

	// CompareAndSwap replaces the stored snapshot only if its version still
	// equals expectedVersion; ErrVersionConflict otherwise
	CompareAndSwap(ctx context.Context, claim *entity.Claim, expectedVersion int64) error

	// Delete removes the claim only if its version equals expectedVersion
	Delete(ctx context.Context, id string, expectedVersion int64) error

	// List returns claims ordered by creation time, newest first
	List(ctx context.Context, filter ClaimFilter) ([]*entity.Claim, error)
}

// HistoryRepository persists the claim audit trail
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ClaimHistory) error
	GetByClaimID(ctx context.Context, claimID string) ([]*entity.ClaimHistory, error)
}

// ActorDirectory resolves actors and their roles
type ActorDirectory interface {
	// Resolve returns nil, nil when the actor is unknown
	Resolve(ctx context.Context, actorID string) (*entity.Actor, error)
}

// ActorRegistry is a directory that can be written to
type ActorRegistry interface {
	ActorDirectory
	Upsert(ctx context.Context, actor *entity.Actor) error
	List(ctx context.Context) ([]*entity.Actor, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
