package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/garage-notify/internal/domain"
)

// DeviceRepo provides typed DynamoDB operations for the device_bindings table.
// The partition key is device_token, which makes a token unique by construction.
type DeviceRepo struct {
	client    API
	tableName string
}

func NewDeviceRepo(client API, tableName string) *DeviceRepo {
	return &DeviceRepo{client: client, tableName: tableName}
}

// Upsert writes the binding for token in a single atomic update. An existing
// binding keeps its id and is handed over to userID; a new one gets newID.
func (r *DeviceRepo) Upsert(ctx context.Context, token string, userID int64, platform, newID string) (*domain.DeviceBinding, error) {
	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal updated_at: %w", err)
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldDeviceToken, token),
		UpdateExpression: aws.String("SET #uid = :uid, #pf = :pf, #ts = :ts, #bid = if_not_exists(#bid, :bid)"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
			"#pf":  fieldPlatform,
			"#ts":  fieldUpdatedAt,
			"#bid": fieldBindingID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": numValue(userID),
			":pf":  &types.AttributeValueMemberS{Value: platform},
			":ts":  now,
			":bid": &types.AttributeValueMemberS{Value: newID},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert device binding: %w", err)
	}
	var d domain.DeviceBinding
	if err := attributevalue.UnmarshalMap(out.Attributes, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepo) GetByToken(ctx context.Context, token string) (*domain.DeviceBinding, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldDeviceToken, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device binding not found: %w", domain.ErrNotFound)
	}
	var d domain.DeviceBinding
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepo) ListByUser(ctx context.Context, userID int64) ([]domain.DeviceBinding, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexBindingsByUser),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": numValue(userID),
		},
	})
	if err != nil {
		return nil, err
	}
	bindings := []domain.DeviceBinding{}
	if err := attributevalue.UnmarshalListOfMaps(items, &bindings); err != nil {
		return nil, err
	}
	return bindings, nil
}

// Delete removes the binding for token. Deleting an unknown token succeeds.
func (r *DeviceRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldDeviceToken, token),
	})
	return err
}

// DeleteIfOwner removes the binding only while it still belongs to userID.
// It reports false when the binding is gone or now owned by someone else.
func (r *DeviceRepo) DeleteIfOwner(ctx context.Context, token string, userID int64) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldDeviceToken, token),
		ConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": numValue(userID),
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteByUser removes all bindings owned by userID. Used by account cleanup.
func (r *DeviceRepo) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	bindings, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(bindings))
	for _, b := range bindings {
		keys = append(keys, strKey(fieldDeviceToken, b.Token))
	}
	if err := batchDelete(ctx, r.client, r.tableName, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}
