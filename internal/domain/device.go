package domain

import "time"

// Platform values accepted for a device binding.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// DeviceBinding links a push-capable device token to the user that receives pushes on it.
// DeviceToken is the table's partition key, so a token belongs to at most one binding.
type DeviceBinding struct {
	ID        string    `json:"id" dynamodbav:"binding_id"`
	UserID    int64     `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"device_token" dynamodbav:"device_token"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"deviceToken" validate:"required,max=4096"`
	Platform    string `json:"platform" validate:"omitempty,max=64"`
}
