package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type itemRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	domain.Item
}

// ItemStore implements repository.ItemStore on DynamoDB.
type ItemStore struct {
	client API
	table  string
	logger *zap.Logger
}

// NewItemStore creates an item store on table.
func NewItemStore(client API, table string, logger *zap.Logger) *ItemStore {
	return &ItemStore{client: client, table: table, logger: logger}
}

func itemPK(id string) string { return "ITEM#" + id }

// List scans the live items and orders them by creation time.
func (s *ItemStore) List(ctx context.Context) ([]domain.Item, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityItem)).
		And(expression.Name("Deleted").Equal(expression.Value(false)))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var items []domain.Item
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("Item scan failed", zap.String("code", errorCode(err)), zap.Error(err))
			return nil, fmt.Errorf("failed to scan items: %w", err)
		}
		var records []itemRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		for _, r := range records {
			items = append(items, r.Item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Create puts a new item, refusing to overwrite an existing id.
func (s *ItemStore) Create(ctx context.Context, item domain.Item) error {
	av, err := attributevalue.MarshalMap(itemRecord{
		PK:         itemPK(item.ID),
		SK:         skMetadata,
		EntityType: entityItem,
		Item:       item,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		s.logger.Error("Item put failed", zap.String("itemID", item.ID), zap.String("code", errorCode(err)), zap.Error(err))
		return fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Debug("Item created", zap.String("itemID", item.ID), zap.String("ownerID", item.OwnerID))
	return nil
}

// Update sets the content of a live item owned by ownerID.
func (s *ItemStore) Update(ctx context.Context, id, ownerID, content string, now time.Time) (domain.Item, error) {
	update := expression.Set(expression.Name("Content"), expression.Value(content)).
		Set(expression.Name("UpdatedAt"), expression.Value(now))

	out, err := s.conditionalUpdate(ctx, id, ownerID, update)
	if err != nil {
		return domain.Item{}, err
	}

	var record itemRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &record); err != nil {
		return domain.Item{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return record.Item, nil
}

// SoftDelete flags a live item owned by ownerID as deleted.
func (s *ItemStore) SoftDelete(ctx context.Context, id, ownerID string, now time.Time) error {
	update := expression.Set(expression.Name("Deleted"), expression.Value(true)).
		Set(expression.Name("UpdatedAt"), expression.Value(now))

	_, err := s.conditionalUpdate(ctx, id, ownerID, update)
	return err
}

func (s *ItemStore) conditionalUpdate(ctx context.Context, id, ownerID string, update expression.UpdateBuilder) (*dynamodb.UpdateItemOutput, error) {
	condition := expression.Name("OwnerID").Equal(expression.Value(ownerID)).
		And(expression.Name("Deleted").Equal(expression.Value(false)))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(itemPK(id)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, repository.ErrNotFoundOrForbidden
		}
		s.logger.Error("Item update failed", zap.String("itemID", id), zap.String("code", errorCode(err)), zap.Error(err))
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return out, nil
}
