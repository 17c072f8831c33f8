package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/domain"
	"github.com/garage-notify/internal/infrastructure/dynamo"
)

// Service is the single entry point collaborators use to raise and acknowledge
// notifications. The store is the durable truth; realtime and push delivery are
// best-effort and never fail a call.
type Service interface {
	Notify(ctx context.Context, userID int64, title, body string) (*domain.Notification, error)
	// Get returns one of the user's notifications. Records owned by someone
	// else are reported as ErrNotFound.
	Get(ctx context.Context, notificationID, userID int64) (*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error)
	// MarkAllRead returns how many records changed.
	MarkAllRead(ctx context.Context, userID int64) (int, error)
	List(ctx context.Context, userID int64) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID int64) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}

type idSource interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Publisher delivers an event to the user's live sessions.
type Publisher interface {
	Publish(userID int64, payload any)
}

// PushQueue accepts detached push jobs.
type PushQueue interface {
	Submit(job push.Job) bool
}

type service struct {
	repo     notificationStore
	ids      idSource
	realtime Publisher
	pushes   PushQueue
	now      func() time.Time
}

func NewService(repo notificationStore, ids idSource, realtime Publisher, pushes PushQueue) Service {
	return &service{repo: repo, ids: ids, realtime: realtime, pushes: pushes, now: time.Now}
}

func (s *service) Notify(ctx context.Context, userID int64, title, body string) (*domain.Notification, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id %d: %w", userID, domain.ErrBadRequest)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrBadRequest)
	}

	nid, err := s.ids.Next(ctx, dynamo.CounterNotifications)
	if err != nil {
		return nil, fmt.Errorf("allocate notification id: %w", err)
	}
	n := &domain.Notification{
		ID:        nid,
		UserID:    userID,
		Title:     title,
		Message:   body,
		Read:      false,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	s.publish(userID, domain.NewEvent(domain.EventCreated, n.ID))
	if s.pushes != nil {
		ok := s.pushes.Submit(push.Job{
			UserID: userID,
			Title:  title,
			Body:   body,
			Data: map[string]string{
				"type":           string(domain.EventCreated),
				"notificationId": strconv.FormatInt(n.ID, 10),
			},
		})
		if !ok {
			slog.Warn("push job not queued", "user_id", userID, "notification_id", n.ID)
		}
	}
	return n, nil
}

func (s *service) Get(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrNotFound)
	}
	return n, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	n, err := s.repo.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	s.publish(userID, domain.NewEvent(domain.EventRead, n.ID))
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return updated, err
	}
	s.publish(userID, domain.Event{Type: domain.EventReadAll})
	return updated, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) publish(userID int64, ev domain.Event) {
	if s.realtime == nil {
		return
	}
	s.realtime.Publish(userID, ev)
}
