// Package memory holds the in-process backend used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

type contextKey string

const txKey contextKey = "memory_tx"

// Store keeps claims, history and actors in maps. Transactions are
// serialized and rolled back by restoring a snapshot.
type Store struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	claims  map[string]*entity.Claim
	history []*entity.ClaimHistory
	actors  map[string]*entity.Actor

	logger *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		claims: make(map[string]*entity.Claim),
		actors: make(map[string]*entity.Actor),
		logger: logger,
	}
}

// WithTransaction implements port.TransactionManager
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	claims := make(map[string]*entity.Claim, len(s.claims))
	for k, v := range s.claims {
		claims[k] = v
	}
	historyLen := len(s.history)
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey, true)); err != nil {
		s.mu.Lock()
		s.claims = claims
		s.history = s.history[:historyLen]
		s.mu.Unlock()
		s.logger.Debug("Transaction rolled back", zap.Error(err))
		return err
	}
	return nil
}

// Ping implements port.HealthChecker
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Claims returns the claim repository view of the store
func (s *Store) Claims() *ClaimRepository {
	return &ClaimRepository{store: s}
}

// History returns the history repository view of the store
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{store: s}
}

// Actors returns the actor registry view of the store
func (s *Store) Actors() *ActorRepository {
	return &ActorRepository{store: s}
}

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	store *Store
}

// Create stores a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.claims[claim.ID]; ok {
		return port.ErrAlreadyExists
	}
	r.store.claims[claim.ID] = claim.Clone()
	return nil
}

// GetByID returns a copy of the stored snapshot
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.claims[id]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

// CompareAndSwap replaces the snapshot when the stored version matches
func (r *ClaimRepository) CompareAndSwap(ctx context.Context, claim *entity.Claim, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cur, ok := r.store.claims[claim.ID]
	if !ok || cur.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	r.store.claims[claim.ID] = claim.Clone()
	return nil
}

// Delete removes the claim when the stored version matches
func (r *ClaimRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cur, ok := r.store.claims[id]
	if !ok || cur.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	delete(r.store.claims, id)
	return nil
}

// List returns matching claims, newest first
func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	out := make([]*entity.Claim, 0, len(r.store.claims))
	for _, c := range r.store.claims {
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	store *Store
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ClaimHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h := *history
	r.store.history = append(r.store.history, &h)
	return nil
}

// GetByClaimID returns a claim's history in insertion order
func (r *HistoryRepository) GetByClaimID(ctx context.Context, claimID string) ([]*entity.ClaimHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.ClaimHistory
	for _, h := range r.store.history {
		if h.ClaimID == claimID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ActorRepository implements port.ActorRegistry
type ActorRepository struct {
	store *Store
}

// Resolve returns nil, nil for unknown ids
func (r *ActorRepository) Resolve(ctx context.Context, actorID string) (*entity.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.actors[actorID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Upsert adds or replaces an actor
func (r *ActorRepository) Upsert(ctx context.Context, actor *entity.Actor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := *actor
	r.store.actors[actor.ID] = &cp
	return nil
}

// List returns every actor ordered by id
func (r *ActorRepository) List(ctx context.Context) ([]*entity.Actor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	out := make([]*entity.Actor, 0, len(r.store.actors))
	for _, a := range r.store.actors {
		cp := *a
		out = append(out, &cp)
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var (
	_ port.TransactionManager = (*Store)(nil)
	_ port.HealthChecker      = (*Store)(nil)
	_ port.ClaimRepository    = (*ClaimRepository)(nil)
	_ port.HistoryRepository  = (*HistoryRepository)(nil)
	_ port.ActorRegistry      = (*ActorRepository)(nil)
)
