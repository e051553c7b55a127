package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/port"
	"github.com/NathIMN/Lumiere-sub005/internal/domain/entity"
)

type actorItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Entity      string `dynamodbav:"entity"`
	ID          string `dynamodbav:"id"`
	DisplayName string `dynamodbav:"display_name,omitempty"`
	Email       string `dynamodbav:"email,omitempty"`
	Role        string `dynamodbav:"role"`
	Active      bool   `dynamodbav:"active"`
}

func (i actorItem) toEntity() *entity.Actor {
	return &entity.Actor{
		ID:          i.ID,
		DisplayName: i.DisplayName,
		Email:       i.Email,
		Role:        entity.Role(i.Role),
		Active:      i.Active,
	}
}

// ActorRepository implements port.ActorRegistry
type ActorRepository struct {
	table *Table
}

// NewActorRepository creates a new actor repository
func NewActorRepository(table *Table) *ActorRepository {
	return &ActorRepository{table: table}
}

// Resolve returns nil, nil for unknown ids
func (r *ActorRepository) Resolve(ctx context.Context, actorID string) (*entity.Actor, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table.name),
		Key:       keyOf(actorPK(actorID), skActor),
	})
	if err != nil {
		r.table.logger.Error("Failed to resolve actor", zap.String("actor_id", actorID), zap.Error(err))
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item actorItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor item: %w", err)
	}
	return item.toEntity(), nil
}

// Upsert writes the actor unconditionally
func (r *ActorRepository) Upsert(ctx context.Context, actor *entity.Actor) error {
	item, err := attributevalue.MarshalMap(actorItem{
		PK:          actorPK(actor.ID),
		SK:          skActor,
		Entity:      entityActor,
		ID:          actor.ID,
		DisplayName: actor.DisplayName,
		Email:       actor.Email,
		Role:        string(actor.Role),
		Active:      actor.Active,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal actor item: %w", err)
	}

	if _, err := r.table.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table.name),
		Item:      item,
	}); err != nil {
		r.table.logger.Error("Failed to upsert actor", zap.String("actor_id", actor.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert actor: %w", err)
	}
	return nil
}

// List returns every actor ordered by id
func (r *ActorRepository) List(ctx context.Context) ([]*entity.Actor, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name(attrEntity).Equal(expression.Value(entityActor))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.table.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table.name),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var actors []*entity.Actor
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list actors: %w", err)
		}
		var items []actorItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actor items: %w", err)
		}
		for _, it := range items {
			actors = append(actors, it.toEntity())
		}
	}

	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })
	return actors, nil
}

var _ port.ActorRegistry = (*ActorRepository)(nil)
