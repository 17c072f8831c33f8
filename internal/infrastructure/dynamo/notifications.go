package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/garage-notify/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
// Items are keyed by the numeric notification_id; per-user listings go through the
// user_id/notification_id GSI, so descending index order is recency order.
type NotificationRepo struct {
	client    API
	tableName string
}

func NewNotificationRepo(client API, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(notification_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("notification %d already exists: %w", n.ID, domain.ErrConflict)
	}
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID int64) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       numKey(fieldNotificationID, notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns every notification of the user, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	items, err := queryAll(ctx, r.client, r.byUserQuery(userID, false))
	if err != nil {
		return nil, err
	}
	notifications := []domain.Notification{}
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ListUnread returns the user's unread notifications, newest first.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error) {
	items, err := queryAll(ctx, r.client, r.byUserQuery(userID, true))
	if err != nil {
		return nil, err
	}
	notifications := []domain.Notification{}
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	in := r.byUserQuery(userID, true)
	in.Select = types.SelectCount
	total := 0
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// MarkAsRead flips the read flag of a notification owned by userID. A missing
// record and a record owned by someone else are both reported as ErrNotFound.
func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldRead: true})
	if err != nil {
		return nil, err
	}
	ue.Names["#uid"] = fieldUserID
	ue.Values[":uid"] = numValue(userID)
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       numKey(fieldNotificationID, notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#uid = :uid"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flips every unread notification of the user and returns how many changed.
// Records already read by a concurrent call are skipped, not counted.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	unread, err := r.ListUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, n := range unread {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(r.tableName),
			Key:                 numKey(fieldNotificationID, n.ID),
			UpdateExpression:    aws.String("SET #rd = :t"),
			ConditionExpression: aws.String("#rd = :f"),
			ExpressionAttributeNames: map[string]string{
				"#rd": fieldRead,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberBOOL{Value: true},
				":f": &types.AttributeValueMemberBOOL{Value: false},
			},
		})
		if isConditionFailed(err) {
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("mark notification %d read: %w", n.ID, err)
		}
		updated++
	}
	return updated, nil
}

// DeleteByUser removes every notification of the user. Used by account cleanup.
func (r *NotificationRepo) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	in := r.byUserQuery(userID, false)
	in.ProjectionExpression = aws.String("#nid")
	in.ExpressionAttributeNames["#nid"] = fieldNotificationID
	items, err := queryAll(ctx, r.client, in)
	if err != nil {
		return 0, err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for _, it := range items {
		keys = append(keys, map[string]types.AttributeValue{fieldNotificationID: it[fieldNotificationID]})
	}
	if err := batchDelete(ctx, r.client, r.tableName, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (r *NotificationRepo) byUserQuery(userID int64, unreadOnly bool) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexNotificationsByUser),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": numValue(userID),
		},
		ScanIndexForward: aws.Bool(false),
	}
	if unreadOnly {
		in.FilterExpression = aws.String("#rd = :f")
		in.ExpressionAttributeNames["#rd"] = fieldRead
		in.ExpressionAttributeValues[":f"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	return in
}
