package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/workflow"
)

type historyItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	Entity         string `dynamodbav:"entity"`
	ID             string `dynamodbav:"id"`
	ClaimID        string `dynamodbav:"claim_id"`
	ActorID        string `dynamodbav:"actor_id"`
	ActorRole      string `dynamodbav:"actor_role"`
	Transition     string `dynamodbav:"transition"`
	PreviousStatus string `dynamodbav:"previous_status"`
	NewStatus      string `dynamodbav:"new_status"`
	Version        int64  `dynamodbav:"version"`
	Notes          string `dynamodbav:"notes,omitempty"`
	Timestamp      string `dynamodbav:"timestamp"`
}

// historySK sorts records by time; the id breaks ties
func historySK(h *entity.ClaimHistory) string {
	return histPrefix + h.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z") + "#" + h.ID
}

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	table *Table
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(table *Table) *HistoryRepository {
	return &HistoryRepository{table: table}
}

// Create writes a history record under its claim's partition
func (r *HistoryRepository) Create(ctx context.Context, h *entity.ClaimHistory) error {
	item, err := attributevalue.MarshalMap(historyItem{
		PK:             claimPK(h.ClaimID),
		SK:             historySK(h),
		Entity:         entityHistory,
		ID:             h.ID,
		ClaimID:        h.ClaimID,
		ActorID:        h.ActorID,
		ActorRole:      string(h.ActorRole),
		Transition:     h.Transition,
		PreviousStatus: string(h.PreviousStatus),
		NewStatus:      string(h.NewStatus),
		Version:        h.Version,
		Notes:          h.Notes,
		Timestamp:      h.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal history item: %w", err)
	}

	if buf := bufferFrom(ctx); buf != nil {
		buf.add(types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.table.name),
			Item:      item,
		}}, fmt.Errorf("history record %s rejected", h.ID))
		return nil
	}

	if _, err := r.table.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table.name),
		Item:      item,
	}); err != nil {
		r.table.logger.Error("Failed to create history record", zap.String("claim_id", h.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

// GetByClaimID queries the claim partition for history records, oldest first
func (r *HistoryRepository) GetByClaimID(ctx context.Context, claimID string) ([]*entity.ClaimHistory, error) {
	keyCond := expression.Key(attrPK).Equal(expression.Value(claimPK(claimID))).
		And(expression.Key(attrSK).BeginsWith(histPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.table.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	})

	var records []*entity.ClaimHistory
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.table.logger.Error("Failed to query history", zap.String("claim_id", claimID), zap.Error(err))
			return nil, fmt.Errorf("failed to get history: %w", err)
		}
		for _, av := range page.Items {
			h, err := fromHistoryItem(av)
			if err != nil {
				return nil, err
			}
			records = append(records, h)
		}
	}
	return records, nil
}

func fromHistoryItem(av map[string]types.AttributeValue) (*entity.ClaimHistory, error) {
	var item historyItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history item: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse history timestamp: %w", err)
	}
	return &entity.ClaimHistory{
		ID:             item.ID,
		ClaimID:        item.ClaimID,
		ActorID:        item.ActorID,
		ActorRole:      entity.Role(item.ActorRole),
		Transition:     item.Transition,
		PreviousStatus: workflow.State(item.PreviousStatus),
		NewStatus:      workflow.State(item.NewStatus),
		Version:        item.Version,
		Notes:          item.Notes,
		Timestamp:      ts,
	}, nil
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
