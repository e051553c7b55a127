package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NathIMN/Lumiere-sub005/internal/application/dispatcher"
	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
)

// mockClaimRepo is a versioned in-memory claim store
type mockClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*entity.Claim

	// readGate, when set, is called after every GetByID
	readGate func()
	// casHook, when set, replaces CompareAndSwap
	casHook func(ctx context.Context) error
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{claims: make(map[string]*entity.Claim)}
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[claim.ID]; ok {
		return port.ErrAlreadyExists
	}
	m.claims[claim.ID] = claim.Clone()
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	m.mu.Lock()
	c, ok := m.claims[id]
	var out *entity.Claim
	if ok {
		out = c.Clone()
	}
	gate := m.readGate
	m.mu.Unlock()

	if gate != nil {
		gate()
	}
	return out, nil
}

func (m *mockClaimRepo) CompareAndSwap(ctx context.Context, claim *entity.Claim, expectedVersion int64) error {
	if m.casHook != nil {
		return m.casHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.claims[claim.ID]
	if !ok || cur.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	m.claims[claim.ID] = claim.Clone()
	return nil
}

func (m *mockClaimRepo) Delete(ctx context.Context, id string, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.claims[id]
	if !ok || cur.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	delete(m.claims, id)
	return nil
}

func (m *mockClaimRepo) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Claim
	for _, c := range m.claims {
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockClaimRepo) get(id string) *entity.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[id]; ok {
		return c.Clone()
	}
	return nil
}

type mockHistoryRepo struct {
	mu        sync.Mutex
	histories []*entity.ClaimHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.ClaimHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories = append(m.histories, h)
	return nil
}

func (m *mockHistoryRepo) GetByClaimID(ctx context.Context, claimID string) ([]*entity.ClaimHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ClaimHistory
	for _, h := range m.histories {
		if h.ClaimID == claimID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockDirectory struct {
	actors map[string]*entity.Actor
	err    error
}

func (m *mockDirectory) Resolve(ctx context.Context, id string) (*entity.Actor, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.actors[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (m *mockDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}
func (m *mockDispatcher) Unsubscribe(event.Type, string)                        {}
func (m *mockDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo      { return nil }
func (m *mockDispatcher) Close() error                                          { return nil }

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// stepClock advances one minute per call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}
