package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	knowledgePK = "KNOWLEDGE"
	knowledgeSK = "SNIPPET"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// KnowledgeStore is the accessor contract for the operator-editable snippet.
type KnowledgeStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, text string) error
}

// Client stores the single shared knowledge snippet under one fixed key.
// There is no versioning; concurrent writers overwrite (last write wins) at
// the item-level atomicity DynamoDB guarantees.
type Client struct {
	api       dynamodbAPI
	tableName string
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// Get returns the stored snippet. A missing item is an empty string, not an
// error; callers absorb store errors to an empty string as well.
func (c *Client) Get(ctx context.Context) (string, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: knowledgePK},
			"SK": &types.AttributeValueMemberS{Value: knowledgeSK},
		},
	})
	if err != nil {
		return "", fmt.Errorf("repository: Get knowledge: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", nil
	}

	v, ok := out.Item["text"]
	if !ok {
		return "", nil
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("repository: knowledge attribute is not a string")
	}
	return s.Value, nil
}

// Set overwrites the snippet unconditionally.
func (c *Client) Set(ctx context.Context, text string) error {
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: knowledgePK},
			"SK":        &types.AttributeValueMemberS{Value: knowledgeSK},
			"text":      &types.AttributeValueMemberS{Value: text},
			"updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Set knowledge: %w", err)
	}
	return nil
}
