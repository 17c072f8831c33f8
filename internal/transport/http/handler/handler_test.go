package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/garage-notify/internal/application/account"
	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/domain"
	jwtinfra "github.com/garage-notify/internal/infrastructure/jwt"
	"github.com/garage-notify/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) Notify(ctx context.Context, userID int64, title, body string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, title, body)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationSvc) Get(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationSvc) MarkRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationSvc) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationSvc) List(ctx context.Context, userID int64) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}
func (m *mockNotificationSvc) UnreadCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockDeviceSvc struct{ mock.Mock }

func (m *mockDeviceSvc) Register(ctx context.Context, userID int64, token, platform string) (*domain.DeviceBinding, error) {
	args := m.Called(ctx, userID, token, platform)
	if b, _ := args.Get(0).(*domain.DeviceBinding); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceSvc) FindByToken(ctx context.Context, token string) (*domain.DeviceBinding, error) {
	args := m.Called(ctx, token)
	if b, _ := args.Get(0).(*domain.DeviceBinding); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDeviceSvc) ListFor(ctx context.Context, userID int64) ([]domain.DeviceBinding, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]domain.DeviceBinding)
	return list, args.Error(1)
}
func (m *mockDeviceSvc) Remove(ctx context.Context, binding *domain.DeviceBinding) error {
	return m.Called(ctx, binding).Error(0)
}
func (m *mockDeviceSvc) Unregister(ctx context.Context, token string, requestingUserID int64) error {
	return m.Called(ctx, token, requestingUserID).Error(0)
}
func (m *mockDeviceSvc) RemoveAllFor(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockPushSvc struct{ mock.Mock }

func (m *mockPushSvc) SendToUser(ctx context.Context, userID int64, title, body string, data map[string]string, opts push.Options) int {
	return m.Called(ctx, userID, title, body, data, opts).Int(0)
}

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) DeleteUserData(ctx context.Context, userID int64) (*account.Result, error) {
	args := m.Called(ctx, userID)
	if res, _ := args.Get(0).(*account.Result); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// authedReq builds a request that already carries access claims for userID.
func authedReq(method, target, userID string, body interface{}) *http.Request {
	var r *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	claims := &jwtinfra.Claims{
		Role:             domain.RoleCustomer,
		Kind:             jwtinfra.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleNotification(id int64, read bool) domain.Notification {
	return domain.Notification{
		ID:        id,
		UserID:    42,
		Title:     "New Service Request",
		Message:   "Request #" + strconv.FormatInt(id, 10),
		Read:      read,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, int(id), 0, time.UTC),
	}
}
