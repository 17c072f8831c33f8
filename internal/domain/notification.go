package domain

import "time"

// Notification is the durable record behind every notify call. Only Read ever changes.
type Notification struct {
	ID        int64     `json:"id" dynamodbav:"notification_id"`
	UserID    int64     `json:"user_id" dynamodbav:"user_id"`
	Title     string    `json:"title" dynamodbav:"title"`
	Message   string    `json:"message" dynamodbav:"message"`
	Read      bool      `json:"read" dynamodbav:"read"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// NotificationDTO is the listing shape returned to clients.
type NotificationDTO struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n *Notification) DTO() NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// SendNotificationRequest is the body of the admin send endpoint.
type SendNotificationRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Title  string `json:"title" validate:"required,max=255"`
	Body   string `json:"body" validate:"max=4000"`
}
