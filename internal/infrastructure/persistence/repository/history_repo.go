package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ClaimHistory) error {
	query := `
		INSERT INTO claim_history (
			id, claim_id, actor_id, actor_role, transition,
			previous_status, new_status, version, notes, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		history.ID,
		history.ClaimID,
		history.ActorID,
		string(history.ActorRole),
		history.Transition,
		string(history.PreviousStatus),
		string(history.NewStatus),
		history.Version,
		history.Notes,
		formatTime(history.Timestamp),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("claim_id", history.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	return nil
}

// GetByClaimID retrieves all history records for a claim, oldest first
func (r *HistoryRepository) GetByClaimID(ctx context.Context, claimID string) ([]*entity.ClaimHistory, error) {
	query := `
		SELECT id, claim_id, actor_id, actor_role, transition,
			previous_status, new_status, version, notes, timestamp
		FROM claim_history
		WHERE claim_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get history by claim ID", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ClaimHistory
	for rows.Next() {
		var (
			record               entity.ClaimHistory
			role, prev, next, ts string
		)
		err := rows.Scan(
			&record.ID,
			&record.ClaimID,
			&record.ActorID,
			&role,
			&record.Transition,
			&prev,
			&next,
			&record.Version,
			&record.Notes,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		record.ActorRole = entity.Role(role)
		record.PreviousStatus = workflow.State(prev)
		record.NewStatus = workflow.State(next)
		if record.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("failed to parse history timestamp: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
