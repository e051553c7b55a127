package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
)

type contextKey string

const txKey contextKey = "dynamo_tx"

// txBuffer collects writes issued inside WithTransaction. onConflict[i]
// is returned when item i fails its condition.
type txBuffer struct {
	items      []types.TransactWriteItem
	onConflict []error
}

func (b *txBuffer) add(item types.TransactWriteItem, onConflict error) {
	b.items = append(b.items, item)
	b.onConflict = append(b.onConflict, onConflict)
}

func bufferFrom(ctx context.Context) *txBuffer {
	if b, ok := ctx.Value(txKey).(*txBuffer); ok {
		return b
	}
	return nil
}

// WithTransaction buffers the writes made by fn and commits them with a
// single TransactWriteItems call. Reads inside fn see committed data only.
func (t *Table) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if bufferFrom(ctx) != nil {
		return fn(ctx)
	}

	buf := &txBuffer{}
	if err := fn(context.WithValue(ctx, txKey, buf)); err != nil {
		return err
	}
	if len(buf.items) == 0 {
		return nil
	}

	_, err := t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: buf.items,
	})
	if err == nil {
		return nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" && i < len(buf.onConflict) {
				return buf.onConflict[i]
			}
		}
	}

	t.logger.Error("Failed to commit transaction", zap.Int("items", len(buf.items)), zap.Error(err))
	return fmt.Errorf("failed to commit transaction: %w", err)
}

// conditionFailed maps a single-item conditional failure onto onConflict
func conditionFailed(err error, onConflict error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return onConflict
	}
	return err
}

var _ port.TransactionManager = (*Table)(nil)
