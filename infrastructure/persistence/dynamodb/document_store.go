// Package dynamodb keeps the content document as a single DynamoDB item so
// several server instances can share it.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/content"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const sortKey = "DOCUMENT"

// ErrDocumentMissing is returned by Load before Ensure has created the item.
var ErrDocumentMissing = errors.New("content document not found")

// API is the subset of the DynamoDB client the store needs
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// documentItem is the DynamoDB item structure for the content document
type documentItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Document  string `dynamodbav:"Document"`
	Revision  int64  `dynamodbav:"Revision"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// DocumentStore persists the document as one item. Every Save is
// conditional on the revision read by the matching Load.
type DocumentStore struct {
	client    API
	tableName string
	key       string
	logger    *zap.Logger
}

// NewDocumentStore creates a store for the item keyed by documentKey
func NewDocumentStore(client API, tableName, documentKey string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		client:    client,
		tableName: tableName,
		key:       "CONTENT#" + documentKey,
		logger:    logger,
	}
}

// Load reads the item with a consistent read
func (s *DocumentStore) Load(ctx context.Context) (*content.Document, error) {
	item, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrDocumentMissing
	}

	doc, err := content.Decode([]byte(item.Document))
	if err != nil {
		return nil, err
	}
	doc.Revision = item.Revision
	return doc, nil
}

// Save writes doc. A document without a revision may only create the item;
// otherwise the stored revision must still match the one doc was loaded at.
func (s *DocumentStore) Save(ctx context.Context, doc *content.Document) error {
	data, err := content.Encode(doc)
	if err != nil {
		return err
	}

	var condition expression.ConditionBuilder
	if doc.Revision > 0 {
		condition = expression.Name("Revision").Equal(expression.Value(doc.Revision))
	} else {
		condition = expression.Name("PK").AttributeNotExists()
	}

	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	next := doc.Revision + 1
	item, err := attributevalue.MarshalMap(documentItem{
		PK:        s.key,
		SK:        sortKey,
		Document:  string(data),
		Revision:  next,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal content item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s", ports.ErrRevisionConflict, s.key)
		}
		return s.apiError("save", err)
	}

	doc.Revision = next
	s.logger.Debug("Content item saved",
		zap.String("table", s.tableName),
		zap.String("key", s.key),
		zap.Int64("revision", next),
	)
	return nil
}

// Ensure creates the item with the empty document when it is absent
func (s *DocumentStore) Ensure(ctx context.Context) (bool, error) {
	item, err := s.get(ctx)
	if err != nil {
		return false, err
	}
	if item != nil {
		return false, nil
	}

	err = s.Save(ctx, content.NewDocument())
	if errors.Is(err, ports.ErrRevisionConflict) {
		// Another instance created it first
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.Info("Created content item", zap.String("table", s.tableName), zap.String("key", s.key))
	return true, nil
}

func (s *DocumentStore) get(ctx context.Context) (*documentItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: s.key},
			"SK": &types.AttributeValueMemberS{Value: sortKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.apiError("get", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content item: %w", err)
	}
	return &item, nil
}

// apiError logs the DynamoDB error code and wraps err for the caller
func (s *DocumentStore) apiError(operation string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		s.logger.Error("DynamoDB request failed",
			zap.String("operation", operation),
			zap.String("table", s.tableName),
			zap.String("code", ae.ErrorCode()),
			zap.String("message", ae.ErrorMessage()),
		)
		return fmt.Errorf("failed to %s content item (%s): %w", operation, ae.ErrorCode(), err)
	}
	return fmt.Errorf("failed to %s content item: %w", operation, err)
}
