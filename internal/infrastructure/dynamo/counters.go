package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CounterNotifications names the sequence that numbers notifications.
const CounterNotifications = "notifications"

// CounterRepo hands out strictly increasing int64 sequences using atomic ADD updates.
type CounterRepo struct {
	client    API
	tableName string
}

func NewCounterRepo(client API, tableName string) *CounterRepo {
	return &CounterRepo{client: client, tableName: tableName}
}

// Next increments the named counter and returns its new value (first call returns 1).
func (r *CounterRepo) Next(ctx context.Context, name string) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldCounterName, name),
		UpdateExpression: aws.String("ADD #seq :one"),
		ExpressionAttributeNames: map[string]string{
			"#seq": fieldCounterSeq,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numValue(1),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	var seq int64
	if err := attributevalue.Unmarshal(out.Attributes[fieldCounterSeq], &seq); err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", name, err)
	}
	return seq, nil
}
