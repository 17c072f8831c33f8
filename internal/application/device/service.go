package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garage-notify/internal/domain"
	pkgdevice "github.com/garage-notify/internal/pkg/device"
	"github.com/garage-notify/internal/pkg/id"
)

// Service is the device registry: the durable token -> user mapping that push fan-out reads.
type Service interface {
	// Register upserts the binding for token. A token registered by another user
	// is handed over to userID.
	Register(ctx context.Context, userID int64, token, platform string) (*domain.DeviceBinding, error)
	FindByToken(ctx context.Context, token string) (*domain.DeviceBinding, error)
	ListFor(ctx context.Context, userID int64) ([]domain.DeviceBinding, error)
	// Remove deletes a binding. Callers enforce ownership; unknown tokens are a no-op.
	Remove(ctx context.Context, binding *domain.DeviceBinding) error
	// Unregister removes token on behalf of requestingUserID, refusing tokens owned by someone else.
	Unregister(ctx context.Context, token string, requestingUserID int64) error
	RemoveAllFor(ctx context.Context, userID int64) (int, error)
}

type deviceStore interface {
	Upsert(ctx context.Context, token string, userID int64, platform, newID string) (*domain.DeviceBinding, error)
	GetByToken(ctx context.Context, token string) (*domain.DeviceBinding, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.DeviceBinding, error)
	Delete(ctx context.Context, token string) error
	DeleteIfOwner(ctx context.Context, token string, userID int64) (bool, error)
	DeleteByUser(ctx context.Context, userID int64) (int, error)
}

type service struct {
	repo deviceStore
}

func NewService(repo deviceStore) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, userID int64, token, platform string) (*domain.DeviceBinding, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("deviceToken is required: %w", domain.ErrBadRequest)
	}
	platform = pkgdevice.NormalizePlatform(platform)

	if prev, err := s.repo.GetByToken(ctx, token); err == nil && prev.UserID != userID {
		slog.Info("device token changes owner", "binding_id", prev.ID, "from_user", prev.UserID, "to_user", userID)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("device lookup before register failed", "err", err)
	}

	b, err := s.repo.Upsert(ctx, token, userID, platform, id.New())
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) FindByToken(ctx context.Context, token string) (*domain.DeviceBinding, error) {
	return s.repo.GetByToken(ctx, token)
}

func (s *service) ListFor(ctx context.Context, userID int64) ([]domain.DeviceBinding, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Remove(ctx context.Context, binding *domain.DeviceBinding) error {
	if binding == nil {
		return nil
	}
	return s.repo.Delete(ctx, binding.Token)
}

func (s *service) Unregister(ctx context.Context, token string, requestingUserID int64) error {
	b, err := s.repo.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.UserID != requestingUserID {
		return fmt.Errorf("device token belongs to another user: %w", domain.ErrForbidden)
	}
	removed, err := s.repo.DeleteIfOwner(ctx, token, requestingUserID)
	if err != nil {
		return err
	}
	if !removed {
		// Re-registered by another user between the read and the delete.
		if _, err := s.repo.GetByToken(ctx, token); err == nil {
			return fmt.Errorf("device token belongs to another user: %w", domain.ErrForbidden)
		}
	}
	return nil
}

func (s *service) RemoveAllFor(ctx context.Context, userID int64) (int, error) {
	return s.repo.DeleteByUser(ctx, userID)
}
