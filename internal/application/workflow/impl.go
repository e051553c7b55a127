package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/NathIMN/Lumiere-sub005/internal/application/dispatcher"
	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/apperr"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/authz"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/event"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/questionnaire"
	domainwf "github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

const (
	depClaimStore = "claim_store"
	depDirectory  = "actor_directory"

	// DefaultPersistenceTimeout bounds store calls when the caller set no deadline
	DefaultPersistenceTimeout = 5 * time.Second
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	claimRepo   port.ClaimRepository
	historyRepo port.HistoryRepository
	directory   port.ActorDirectory
	txManager   port.TransactionManager
	catalog     *questionnaire.Catalog
	gate        *authz.Gate
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	now         func() time.Time
	timeout     time.Duration
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithPersistenceTimeout sets the deadline applied to contexts without one.
// Zero disables it.
func WithPersistenceTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.timeout = d
	}
}

// NewEngine creates a new claim workflow engine
func NewEngine(
	claimRepo port.ClaimRepository,
	historyRepo port.HistoryRepository,
	directory port.ActorDirectory,
	txManager port.TransactionManager,
	catalog *questionnaire.Catalog,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		claimRepo:   claimRepo,
		historyRepo: historyRepo,
		directory:   directory,
		txManager:   txManager,
		catalog:     catalog,
		gate:        authz.NewGate(),
		now:         func() time.Time { return time.Now().UTC() },
		timeout:     DefaultPersistenceTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *engineImpl) resolveActor(ctx context.Context, actorID string) (*entity.Actor, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, &apperr.PermissionError{Reason: "missing actor"}
	}
	actor, err := e.directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, apperr.Unavailable(depDirectory, err)
	}
	if actor == nil {
		return nil, &apperr.PermissionError{ActorID: actorID, Reason: "unknown actor"}
	}
	return actor, nil
}

func (e *engineImpl) loadClaim(ctx context.Context, claimID string) (*entity.Claim, error) {
	claim, err := e.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperr.Unavailable(depClaimStore, err)
	}
	if claim == nil {
		return nil, &apperr.NotFoundError{Kind: "claim", ID: claimID}
	}
	return claim, nil
}

// Authorize resolves the actor and, when claimID is set, loads the claim and checks the gate
func (e *engineImpl) Authorize(ctx context.Context, actorID string, t authz.Transition, claimID string) (*entity.Actor, *entity.Claim, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	actor, err := e.resolveActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	var claim *entity.Claim
	if claimID != "" {
		if claim, err = e.loadClaim(ctx, claimID); err != nil {
			return nil, nil, err
		}
	}

	if err := e.gate.Allow(actor, t, claim); err != nil {
		return nil, nil, err
	}
	return actor, claim, nil
}

// storeError maps a commit failure onto the error taxonomy
func storeError(claimID string, expectedVersion int64, err error) error {
	switch {
	case errors.Is(err, port.ErrVersionConflict):
		return &apperr.ConcurrentModificationError{ClaimID: claimID, ExpectedVersion: expectedVersion}
	case isTaxonomy(err):
		return err
	default:
		return apperr.Unavailable(depClaimStore, err)
	}
}

func isTaxonomy(err error) bool {
	for _, s := range []error{
		apperr.ErrPermission, apperr.ErrInvalidTransition, apperr.ErrValidation,
		apperr.ErrConcurrentModification, apperr.ErrNotFound, apperr.ErrDependencyUnavailable,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func containsState(states []domainwf.State, s domainwf.State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

// Mutate runs one read-modify-write of a claim
func (e *engineImpl) Mutate(ctx context.Context, req TransitionRequest, m Mutation) (*entity.Claim, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	actor, err := e.resolveActor(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	current, err := e.loadClaim(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion != 0 && current.Version != req.ExpectedVersion {
		return nil, &apperr.ConcurrentModificationError{ClaimID: current.ID, ExpectedVersion: req.ExpectedVersion}
	}

	if err := e.gate.Allow(actor, m.Transition, current); err != nil {
		return nil, err
	}

	from := current.Status
	ch := &Change{
		Claim: current.Clone(),
		Actor: actor,
		Now:   e.now(),
		From:  from,
	}

	var machine domainwf.StateMachine
	if len(m.Triggers) > 0 {
		var guards map[domainwf.Trigger]domainwf.GuardFunc
		if m.Guard != nil {
			guards = make(map[domainwf.Trigger]domainwf.GuardFunc, len(m.Triggers))
			for _, t := range m.Triggers {
				guards[t] = func(ctx context.Context) error { return m.Guard(ctx, ch) }
			}
		}
		machine = BuildClaimStateMachine(from, guards)
		for _, t := range m.Triggers {
			if machine.CanFire(t) {
				ch.Trigger = t
				break
			}
		}
		if ch.Trigger == "" {
			return nil, &apperr.InvalidTransitionError{
				Transition: m.Transition.String(),
				From:       from.String(),
				Cause:      domainwf.ErrInvalidTransition,
			}
		}
	} else if len(m.States) > 0 && !containsState(m.States, from) {
		return nil, &apperr.InvalidTransitionError{
			Transition: m.Transition.String(),
			From:       from.String(),
			Reason:     "claim can no longer be edited",
			Cause:      domainwf.ErrInvalidTransition,
		}
	}

	if m.Apply != nil {
		if err := m.Apply(ctx, ch); err != nil {
			return nil, err
		}
	}

	if machine != nil {
		if err := machine.Fire(ctx, ch.Trigger); err != nil {
			return nil, guardError(m.Transition, from, err)
		}
		ch.Claim.Status = machine.State()
	}

	next := ch.Claim
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = ch.Now
	if err := next.Validate(); err != nil {
		return nil, err
	}

	history := &entity.ClaimHistory{
		ID:             uuid.NewString(),
		ClaimID:        next.ID,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Transition:     m.Transition.String(),
		PreviousStatus: from,
		NewStatus:      next.Status,
		Version:        next.Version,
		Notes:          m.Notes,
		Timestamp:      ch.Now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.claimRepo.CompareAndSwap(txCtx, next, current.Version); err != nil {
			return err
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logError("Claim commit failed",
			"claim_id", next.ID,
			"transition", m.Transition,
			"actor_id", actor.ID,
			"error", err,
		)
		return nil, storeError(next.ID, current.Version, err)
	}

	e.logInfo("Claim committed",
		"claim_id", next.ID,
		"transition", m.Transition,
		"from", from,
		"to", next.Status,
		"actor_id", actor.ID,
		"version", next.Version,
	)

	eventType := m.EventType
	if eventType == "" {
		eventType = event.TypeClaimUpdated
		if from != next.Status || ch.Trigger != "" {
			eventType = event.TypeStatusChanged
		}
	}
	payload := map[string]interface{}{
		"transition": m.Transition.String(),
		"from":       from.String(),
		"to":         next.Status.String(),
		"version":    next.Version,
	}
	for k, v := range m.Payload {
		payload[k] = v
	}
	e.emit(ctx, event.NewEvent(eventType, next.ID, actor.ID, payload))

	return next.Clone(), nil
}

// guardError surfaces the precondition that stopped a transition
func guardError(t authz.Transition, from domainwf.State, err error) error {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	var unavailable *apperr.DependencyUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable
	}
	return &apperr.InvalidTransitionError{Transition: t.String(), From: from.String(), Cause: err}
}

// Create stores a new draft claim
func (e *engineImpl) Create(ctx context.Context, actorID string, claim *entity.Claim) (*entity.Claim, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	actor, err := e.resolveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := e.gate.Allow(actor, authz.TransitionCreateClaim, claim); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleEmployee && claim.EmployeeID != actor.ID {
		return nil, &apperr.PermissionError{
			Transition: authz.TransitionCreateClaim.String(),
			ActorID:    actor.ID,
			Role:       string(actor.Role),
			Reason:     "employees file claims for themselves only",
		}
	}

	now := e.now()
	next := claim.Clone()
	if next.ID == "" {
		next.ID = entity.NewClaimID(now)
	}
	next.Status = domainwf.StateDraft
	if next.Priority == "" {
		next.Priority = entity.DefaultPriority
	}
	if next.QuestionnaireVersion == "" && e.catalog != nil {
		next.QuestionnaireVersion = e.catalog.ActiveVersion()
	}
	next.Version = 1
	next.CreatedAt = now
	next.UpdatedAt = now
	if next.Documents == nil {
		next.Documents = []entity.DocumentRef{}
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	history := &entity.ClaimHistory{
		ID:         uuid.NewString(),
		ClaimID:    next.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Transition: authz.TransitionCreateClaim.String(),
		NewStatus:  next.Status,
		Version:    next.Version,
		Timestamp:  now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.claimRepo.Create(txCtx, next); err != nil {
			return err
		}
		return e.historyRepo.Create(txCtx, history)
	})
	if err != nil {
		if errors.Is(err, port.ErrAlreadyExists) {
			return nil, apperr.NewValidation("id", "a claim with this id already exists")
		}
		return nil, storeError(next.ID, 0, err)
	}

	e.logInfo("Claim created",
		"claim_id", next.ID,
		"employee_id", next.EmployeeID,
		"category", next.Category,
		"actor_id", actor.ID,
	)
	e.emit(ctx, event.NewEvent(event.TypeClaimCreated, next.ID, actor.ID, map[string]interface{}{
		"category": string(next.Category),
		"option":   string(next.Option),
		"version":  next.Version,
	}))

	return next.Clone(), nil
}

func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

func (e *engineImpl) logInfo(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}

func (e *engineImpl) logError(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, kv...)
	}
}

func checkNotes(field, notes string, max int) error {
	if utf8.RuneCountInString(notes) > max {
		return apperr.NewValidation(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}
