package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
)

type contextKey string

const txKey contextKey = "tx"

// TxManager implements port.TransactionManager on a sql.DB. The open
// transaction travels in the context so repositories can join it.
type TxManager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *sql.DB, logger *zap.Logger) *TxManager {
	return &TxManager{
		db:     db,
		logger: logger,
	}
}

// WithTransaction runs fn inside a transaction, joining one already in ctx
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := ExtractTx(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			m.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		m.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExtractTx retrieves the transaction from context if present
func ExtractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetExecutor returns the transaction in ctx, or db
func GetExecutor(ctx context.Context, db *sql.DB) Executor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*TxManager)(nil)
