package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

// claimItem is the stored form of a claim. Filterable fields sit beside
// the JSON snapshot.
type claimItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Entity     string `dynamodbav:"entity"`
	EmployeeID string `dynamodbav:"employee_id"`
	PolicyID   string `dynamodbav:"policy_id"`
	Category   string `dynamodbav:"category"`
	Status     string `dynamodbav:"status"`
	Version    int64  `dynamodbav:"version"`
	CreatedAt  string `dynamodbav:"created_at"`
	Snapshot   string `dynamodbav:"snapshot"`
}

func toClaimItem(c *entity.Claim) (map[string]types.AttributeValue, error) {
	snapshot, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claim: %w", err)
	}
	item, err := attributevalue.MarshalMap(claimItem{
		PK:         claimPK(c.ID),
		SK:         skClaim,
		Entity:     entityClaim,
		EmployeeID: c.EmployeeID,
		PolicyID:   c.PolicyID,
		Category:   string(c.Category),
		Status:     string(c.Status),
		Version:    c.Version,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339Nano),
		Snapshot:   string(snapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claim item: %w", err)
	}
	return item, nil
}

func fromClaimItem(av map[string]types.AttributeValue) (*entity.Claim, error) {
	var item claimItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim item: %w", err)
	}
	var c entity.Claim
	if err := json.Unmarshal([]byte(item.Snapshot), &c); err != nil {
		return nil, fmt.Errorf("failed to decode claim: %w", err)
	}
	return &c, nil
}

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	table *Table
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(table *Table) *ClaimRepository {
	return &ClaimRepository{table: table}
}

// put writes item under cond, joining a transaction in ctx if any
func (r *ClaimRepository) put(ctx context.Context, item map[string]types.AttributeValue, cond expression.ConditionBuilder, onConflict error) error {
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	if buf := bufferFrom(ctx); buf != nil {
		buf.add(types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(r.table.name),
			Item:                      item,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}}, onConflict)
		return nil
	}

	_, err = r.table.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.table.name),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return conditionFailed(err, onConflict)
	}
	return nil
}

// Create stores a new claim; the key must not exist yet
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	item, err := toClaimItem(claim)
	if err != nil {
		return err
	}
	return r.put(ctx, item, expression.AttributeNotExists(expression.Name(attrPK)), port.ErrAlreadyExists)
}

// GetByID returns nil, nil when the claim does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table.name),
		Key:            keyOf(claimPK(id), skClaim),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.table.logger.Error("Failed to get claim", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return fromClaimItem(out.Item)
}

// CompareAndSwap replaces the item only while its version is expectedVersion
func (r *ClaimRepository) CompareAndSwap(ctx context.Context, claim *entity.Claim, expectedVersion int64) error {
	item, err := toClaimItem(claim)
	if err != nil {
		return err
	}
	cond := expression.Name("version").Equal(expression.Value(expectedVersion))
	return r.put(ctx, item, cond, port.ErrVersionConflict)
}

// Delete removes the claim item only while its version is expectedVersion.
// History items under the same partition are kept.
func (r *ClaimRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("version").Equal(expression.Value(expectedVersion))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	if buf := bufferFrom(ctx); buf != nil {
		buf.add(types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 aws.String(r.table.name),
			Key:                       keyOf(claimPK(id), skClaim),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}}, port.ErrVersionConflict)
		return nil
	}

	_, err = r.table.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.table.name),
		Key:                       keyOf(claimPK(id), skClaim),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return conditionFailed(err, port.ErrVersionConflict)
	}
	return nil
}

// claimFilterExpression translates the equality conditions of a filter
func claimFilterExpression(filter port.ClaimFilter) (expression.Expression, error) {
	cond := expression.Name(attrEntity).Equal(expression.Value(entityClaim))
	if filter.EmployeeID != "" {
		cond = cond.And(expression.Name("employee_id").Equal(expression.Value(filter.EmployeeID)))
	}
	if filter.PolicyID != "" {
		cond = cond.And(expression.Name("policy_id").Equal(expression.Value(filter.PolicyID)))
	}
	if filter.Category != "" {
		cond = cond.And(expression.Name("category").Equal(expression.Value(string(filter.Category))))
	}
	if len(filter.Statuses) > 0 {
		operands := make([]expression.OperandBuilder, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			operands = append(operands, expression.Value(string(s)))
		}
		in := expression.Name("status").In(operands[0], operands[1:]...)
		cond = cond.And(in)
	}
	return expression.NewBuilder().WithFilter(cond).Build()
}

// List scans the table. Time windows and paging are applied after the scan.
func (r *ClaimRepository) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	expr, err := claimFilterExpression(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.table.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table.name),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var claims []*entity.Claim
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.table.logger.Error("Failed to scan claims", zap.Error(err))
			return nil, fmt.Errorf("failed to list claims: %w", err)
		}
		for _, av := range page.Items {
			c, err := fromClaimItem(av)
			if err != nil {
				return nil, err
			}
			if filter.Matches(c) {
				claims = append(claims, c)
			}
		}
	}

	sort.Slice(claims, func(i, j int) bool {
		if claims[i].CreatedAt.Equal(claims[j].CreatedAt) {
			return claims[i].ID > claims[j].ID
		}
		return claims[i].CreatedAt.After(claims[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(claims) {
			return nil, nil
		}
		claims = claims[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(claims) {
		claims = claims[:filter.Limit]
	}
	return claims, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
