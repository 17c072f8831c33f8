package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/garage-notify/internal/config"
)

// TableAPI is the subset of the DynamoDB client Bootstrap needs.
type TableAPI interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type keyAttr struct {
	name string
	kind types.ScalarAttributeType
}

type tableDef struct {
	name    string
	hash    keyAttr
	indexes []indexDef
}

// indexDef describes a GSI. A zero rangeKey makes it hash-only.
type indexDef struct {
	name     string
	hash     keyAttr
	rangeKey keyAttr
}

var (
	attrNotificationID = keyAttr{fieldNotificationID, types.ScalarAttributeTypeN}
	attrUserID         = keyAttr{fieldUserID, types.ScalarAttributeTypeN}
	attrDeviceToken    = keyAttr{fieldDeviceToken, types.ScalarAttributeTypeS}
	attrCounterName    = keyAttr{fieldCounterName, types.ScalarAttributeTypeS}
)

func schema(tables config.DynamoTables) []tableDef {
	return []tableDef{
		{
			name:    tables.Notifications,
			hash:    attrNotificationID,
			indexes: []indexDef{{name: indexNotificationsByUser, hash: attrUserID, rangeKey: attrNotificationID}},
		},
		{
			name:    tables.DeviceBindings,
			hash:    attrDeviceToken,
			indexes: []indexDef{{name: indexBindingsByUser, hash: attrUserID}},
		},
		{name: tables.Counters, hash: attrCounterName},
	}
}

// Bootstrap creates the notification tables and their GSIs. Tables that
// already exist are left untouched, so it runs on every startup.
func Bootstrap(ctx context.Context, client TableAPI, tables config.DynamoTables) {
	for _, def := range schema(tables) {
		_, err := client.CreateTable(ctx, def.input())
		var inUse *types.ResourceInUseException
		switch {
		case err == nil:
			slog.Info("created table", "table", def.name)
		case errors.As(err, &inUse):
		default:
			slog.Warn("could not create table", "table", def.name, "err", err)
		}
	}
}

func (d tableDef) input() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(d.name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema:   []types.KeySchemaElement{keyElement(d.hash, types.KeyTypeHash)},
	}
	attrs := []keyAttr{d.hash}
	for _, idx := range d.indexes {
		ks := []types.KeySchemaElement{keyElement(idx.hash, types.KeyTypeHash)}
		attrs = append(attrs, idx.hash)
		if idx.rangeKey.name != "" {
			ks = append(ks, keyElement(idx.rangeKey, types.KeyTypeRange))
			attrs = append(attrs, idx.rangeKey)
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.name),
			KeySchema:  ks,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	// Each attribute may be declared once even when it keys several indexes.
	seen := map[string]bool{}
	for _, a := range attrs {
		if seen[a.name] {
			continue
		}
		seen[a.name] = true
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(a.name),
			AttributeType: a.kind,
		})
	}
	return in
}

func keyElement(a keyAttr, kt types.KeyType) types.KeySchemaElement {
	return types.KeySchemaElement{AttributeName: aws.String(a.name), KeyType: kt}
}
