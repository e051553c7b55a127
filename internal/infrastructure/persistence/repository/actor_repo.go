package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/sqlite"
)

// ActorRepository implements port.ActorRegistry
type ActorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActorRepository creates a new actor repository
func NewActorRepository(db *sql.DB, logger *zap.Logger) *ActorRepository {
	return &ActorRepository{
		db:     db,
		logger: logger,
	}
}

// Resolve returns nil, nil for unknown ids
func (r *ActorRepository) Resolve(ctx context.Context, actorID string) (*entity.Actor, error) {
	var (
		a    entity.Actor
		role string
	)
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, display_name, email, role, active FROM actors WHERE id = ?`, actorID,
	).Scan(&a.ID, &a.DisplayName, &a.Email, &role, &a.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to resolve actor", zap.String("actor_id", actorID), zap.Error(err))
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}
	a.Role = entity.Role(role)
	return &a, nil
}

// Upsert inserts or replaces an actor
func (r *ActorRepository) Upsert(ctx context.Context, actor *entity.Actor) error {
	query := `
		INSERT INTO actors (id, display_name, email, role, active, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			role = excluded.role,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		actor.ID, actor.DisplayName, actor.Email, string(actor.Role), actor.Active,
	)
	if err != nil {
		r.logger.Error("Failed to upsert actor", zap.String("actor_id", actor.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert actor: %w", err)
	}
	return nil
}

// List returns every actor ordered by id
func (r *ActorRepository) List(ctx context.Context) ([]*entity.Actor, error) {
	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT id, display_name, email, role, active FROM actors ORDER BY id`,
	)
	if err != nil {
		r.logger.Error("Failed to list actors", zap.Error(err))
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	defer rows.Close()

	var actors []*entity.Actor
	for rows.Next() {
		var (
			a    entity.Actor
			role string
		)
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.Email, &role, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		a.Role = entity.Role(role)
		actors = append(actors, &a)
	}
	return actors, rows.Err()
}

var _ port.ActorRegistry = (*ActorRepository)(nil)
