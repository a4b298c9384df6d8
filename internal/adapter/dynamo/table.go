package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/schema"
)

const backendLabel = "dynamo"

// table stores one schema's records, guarding writes with a version condition.
type table[T any] struct {
	client  *dynamodb.Client
	schema  *schema.Schema[T]
	metrics *metrics.StoreMetrics
}

func (t *table[T]) keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.schema.KeyAttr: &types.AttributeValueMemberS{Value: id},
	}
}

// get returns nil, nil when the record does not exist.
func (t *table[T]) get(ctx context.Context, id string) (*T, error) {
	start := time.Now()
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.schema.Table),
		Key:            t.keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	t.observe("get_item", err, start)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", t.schema.Table, id, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return t.schema.Decode(fromAttributeValues(out.Item))
}

func (t *table[T]) put(ctx context.Context, v *T) error {
	expected := t.schema.Version(v)
	next := *v
	t.schema.SetVersion(&next, expected+1)

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.schema.Table),
		Item:      toAttributeValues(t.schema.Encode(&next)),
		ExpressionAttributeNames: map[string]string{
			"#v": schema.VersionAttr,
		},
	}
	if expected == 0 {
		// Records written before versioning carry no version attribute.
		input.ExpressionAttributeNames["#pk"] = t.schema.KeyAttr
		input.ConditionExpression = aws.String("attribute_not_exists(#pk) OR attribute_not_exists(#v)")
	} else {
		input.ConditionExpression = aws.String("#v = :v")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
		}
	}

	start := time.Now()
	_, err := t.client.PutItem(ctx, input)
	id := t.schema.Key(v)

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		t.observe("put_item", nil, start)
		return fmt.Errorf("put %s %s at version %d: %w", t.schema.Table, id, expected, domain.ErrConflict)
	}
	t.observe("put_item", err, start)
	if err != nil {
		return fmt.Errorf("failed to put %s %s: %w", t.schema.Table, id, err)
	}

	t.schema.SetVersion(v, expected+1)
	return nil
}

func (t *table[T]) delete(ctx context.Context, id string) error {
	start := time.Now()
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.schema.Table),
		Key:       t.keyOf(id),
	})
	t.observe("delete_item", err, start)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", t.schema.Table, id, err)
	}
	return nil
}

func (t *table[T]) observe(operation string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.OpsTotal.WithLabelValues(backendLabel, operation, status).Inc()
	t.metrics.OpDuration.WithLabelValues(backendLabel, operation).Observe(time.Since(start).Seconds())
}
