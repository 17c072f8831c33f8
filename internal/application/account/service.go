package account

import (
	"context"
	"fmt"
	"log/slog"
)

// Result reports what DeleteUserData removed.
type Result struct {
	Notifications int `json:"notifications"`
	Devices       int `json:"devices"`
}

// Service removes a user's notification data when the account is deleted.
type Service interface {
	DeleteUserData(ctx context.Context, userID int64) (*Result, error)
}

type notificationStore interface {
	DeleteByUser(ctx context.Context, userID int64) (int, error)
}

type deviceRegistry interface {
	RemoveAllFor(ctx context.Context, userID int64) (int, error)
}

type service struct {
	notifications notificationStore
	devices       deviceRegistry
}

func NewService(notifications notificationStore, devices deviceRegistry) Service {
	return &service{notifications: notifications, devices: devices}
}

// DeleteUserData unbinds devices first so no push reaches a deleted account
// while its notifications are being removed.
func (s *service) DeleteUserData(ctx context.Context, userID int64) (*Result, error) {
	devices, err := s.devices.RemoveAllFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("remove device bindings: %w", err)
	}
	notifications, err := s.notifications.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("remove notifications: %w", err)
	}
	slog.Info("user notification data deleted", "user_id", userID, "notifications", notifications, "devices", devices)
	return &Result{Notifications: notifications, Devices: devices}, nil
}
