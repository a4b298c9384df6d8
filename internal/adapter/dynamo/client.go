package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pscheid92/voteban/internal/platform/schema"
)

// Options locate a DynamoDB-compatible endpoint (AWS or Yandex YDB document API).
type Options struct {
	Endpoint    string
	Region      string
	AccessKeyID string
	SecretKey   string
}

// NewClient builds a DynamoDB client with static credentials.
func NewClient(ctx context.Context, opts Options) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// EnsureTables creates the votings and user_stats tables if they are missing.
func EnsureTables(ctx context.Context, client *dynamodb.Client) error {
	tables := map[string]string{
		schema.Votings.Table:   schema.Votings.KeyAttr,
		schema.UserStats.Table: schema.UserStats.KeyAttr,
	}

	for table, keyAttr := range tables {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(table),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(keyAttr), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(keyAttr), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})

		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// Ping checks that the endpoint answers and the votings table exists.
func Ping(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(schema.Votings.Table)})
	if err != nil {
		return fmt.Errorf("dynamo ping: %w", err)
	}
	return nil
}
