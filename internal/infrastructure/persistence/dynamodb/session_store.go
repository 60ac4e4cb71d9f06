package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

type sessionRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	// CreatedAtMillis mirrors CreatedAt as a number so the prune scan can
	// compare it.
	CreatedAtMillis int64 `dynamodbav:"CreatedAtMillis"`
	domain.Session
}

// SessionStore implements repository.SessionStore on DynamoDB.
type SessionStore struct {
	client API
	table  string
	logger *zap.Logger
}

// NewSessionStore creates a session store on table.
func NewSessionStore(client API, table string, logger *zap.Logger) *SessionStore {
	return &SessionStore{client: client, table: table, logger: logger}
}

func sessionPK(hash string) string { return "SESSION#" + hash }

// Save puts a session keyed by its token hash.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	av, err := attributevalue.MarshalMap(sessionRecord{
		PK:              sessionPK(session.TokenHash),
		SK:              skMetadata,
		EntityType:      entitySession,
		CreatedAtMillis: session.CreatedAt.UnixMilli(),
		Session:         session,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		s.logger.Error("Session put failed", zap.String("code", errorCode(err)), zap.Error(err))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByTokenHash gets the session stored under tokenHash.
func (s *SessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(sessionPK(tokenHash)),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if out.Item == nil {
		return domain.Session{}, repository.ErrSessionNotFound
	}

	var record sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return record.Session, nil
}

// DeleteCreatedBefore scans for sessions older than cutoff and deletes them.
func (s *SessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entitySession)).
		And(expression.Name("CreatedAtMillis").LessThan(expression.Value(cutoff.UnixMilli())))
	expr, err := expression.NewBuilder().
		WithFilter(filter).
		WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK"))).
		Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	removed := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("failed to scan sessions: %w", err)
		}
		for _, k := range page.Items {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.table),
				Key:       k,
			})
			if err != nil {
				return removed, fmt.Errorf("failed to delete session: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
