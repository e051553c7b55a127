package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/infrastructure/persistence/sqlite"
)

// ClaimRepository implements port.ClaimRepository. The full snapshot is
// stored as JSON; the filterable fields are mirrored into columns.
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	snapshot, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to encode claim: %w", err)
	}

	query := `
		INSERT INTO claims (
			id, employee_id, policy_id, category, claim_option, status, priority,
			requested_cents, approved_cents, final_cents, version, snapshot,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		claim.ID,
		claim.EmployeeID,
		claim.PolicyID,
		string(claim.Category),
		string(claim.Option),
		string(claim.Status),
		string(claim.Priority),
		claim.Amounts.RequestedCents,
		claim.Amounts.ApprovedCents,
		claim.Amounts.FinalCents,
		claim.Version,
		string(snapshot),
		formatTime(claim.CreatedAt),
		formatTime(claim.UpdatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return port.ErrAlreadyExists
		}
		r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID returns nil, nil when the claim does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	var snapshot string
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT snapshot FROM claims WHERE id = ?`, id,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return decodeClaim(snapshot)
}

// CompareAndSwap updates the row only while its version is expectedVersion
func (r *ClaimRepository) CompareAndSwap(ctx context.Context, claim *entity.Claim, expectedVersion int64) error {
	snapshot, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to encode claim: %w", err)
	}

	query := `
		UPDATE claims SET
			employee_id = ?, policy_id = ?, category = ?, claim_option = ?, status = ?,
			priority = ?, requested_cents = ?, approved_cents = ?, final_cents = ?,
			version = ?, snapshot = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		claim.EmployeeID,
		claim.PolicyID,
		string(claim.Category),
		string(claim.Option),
		string(claim.Status),
		string(claim.Priority),
		claim.Amounts.RequestedCents,
		claim.Amounts.ApprovedCents,
		claim.Amounts.FinalCents,
		claim.Version,
		string(snapshot),
		formatTime(claim.UpdatedAt),
		claim.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.String("claim_id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	return checkSwapped(result)
}

// Delete removes the row only while its version is expectedVersion
func (r *ClaimRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM claims WHERE id = ? AND version = ?`, id, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to delete claim", zap.String("claim_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete claim: %w", err)
	}

	return checkSwapped(result)
}

func checkSwapped(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

// List returns matching claims, newest first
func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.EmployeeID != "" {
		conds = append(conds, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.PolicyID != "" {
		conds = append(conds, "policy_id = ?")
		args = append(args, filter.PolicyID)
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(filter.Category))
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := "SELECT snapshot FROM claims"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		c, err := decodeClaim(snapshot)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

func decodeClaim(snapshot string) (*entity.Claim, error) {
	var c entity.Claim
	if err := json.Unmarshal([]byte(snapshot), &c); err != nil {
		return nil, fmt.Errorf("failed to decode claim: %w", err)
	}
	return &c, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
