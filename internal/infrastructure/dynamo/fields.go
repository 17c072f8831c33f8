package dynamo

// DynamoDB attribute and index names shared by the repos and Bootstrap.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldNotificationID = "notification_id"
	fieldUserID         = "user_id"
	fieldRead           = "read" // reserved word: always go through ExpressionAttributeNames
	fieldDeviceToken    = "device_token"
	fieldBindingID      = "binding_id"
	fieldPlatform       = "platform"
	fieldUpdatedAt      = "updated_at"
	fieldCounterName    = "name"
	fieldCounterSeq     = "seq"

	indexNotificationsByUser = "user_id-notification_id-index"
	indexBindingsByUser      = "user_id-index"
)

// batchWriteLimit is DynamoDB's maximum number of requests per BatchWriteItem call.
const batchWriteLimit = 25
