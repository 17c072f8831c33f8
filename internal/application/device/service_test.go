package device

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/garage-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// memStore mirrors the DynamoDB table semantics: one row per token.
type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.DeviceBinding
}

func newMemStore() *memStore { return &memStore{rows: map[string]domain.DeviceBinding{}} }

func (m *memStore) Upsert(_ context.Context, token string, userID int64, platform, newID string) (*domain.DeviceBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[token]
	if !ok {
		b = domain.DeviceBinding{ID: newID, Token: token}
	}
	b.UserID = userID
	b.Platform = platform
	b.UpdatedAt = time.Now().UTC()
	m.rows[token] = b
	return &b, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*domain.DeviceBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]domain.DeviceBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.DeviceBinding{}
	for _, b := range m.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memStore) DeleteIfOwner(_ context.Context, token string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.rows[token]; ok && b.UserID == userID {
		delete(m.rows, token)
		return true, nil
	}
	return false, nil
}

func (m *memStore) DeleteByUser(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, b := range m.rows {
		if b.UserID == userID {
			delete(m.rows, token)
			n++
		}
	}
	return n, nil
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Upsert(ctx context.Context, token string, userID int64, platform, newID string) (*domain.DeviceBinding, error) {
	args := m.Called(ctx, token, userID, platform, newID)
	if b, _ := args.Get(0).(*domain.DeviceBinding); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) GetByToken(ctx context.Context, token string) (*domain.DeviceBinding, error) {
	args := m.Called(ctx, token)
	if b, _ := args.Get(0).(*domain.DeviceBinding); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListByUser(ctx context.Context, userID int64) ([]domain.DeviceBinding, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.DeviceBinding), args.Error(1)
}
func (m *mockStore) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockStore) DeleteIfOwner(ctx context.Context, token string, userID int64) (bool, error) {
	args := m.Called(ctx, token, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) DeleteByUser(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// --- tests ---

func TestRegister_RequiresToken(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Register(context.Background(), 42, "   ", "android")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRegister_IdempotentForSameArguments(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Register(ctx, 42, "tokA", "android")
	require.NoError(t, err)
	second, err := svc.Register(ctx, 42, "tokA", "android")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	list, err := svc.ListFor(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegister_TransfersOwnership(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	original, err := svc.Register(ctx, 1, "tokA", "ios")
	require.NoError(t, err)
	moved, err := svc.Register(ctx, 2, "tokA", "ios")
	require.NoError(t, err)
	assert.Equal(t, original.ID, moved.ID)

	oldList, err := svc.ListFor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, oldList)

	newList, err := svc.ListFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, newList, 1)
	assert.Equal(t, "tokA", newList[0].Token)
	assert.Equal(t, domain.PlatformIOS, newList[0].Platform)
}

func TestRegister_NormalizesPlatform(t *testing.T) {
	svc := NewService(newMemStore())
	b, err := svc.Register(context.Background(), 42, "tokA", "iPhone")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformIOS, b.Platform)
}

func TestRegister_PropagatesStoreError(t *testing.T) {
	store := &mockStore{}
	store.On("GetByToken", mock.Anything, "tokA").Return(nil, domain.ErrNotFound)
	store.On("Upsert", mock.Anything, "tokA", int64(42), domain.PlatformAndroid, mock.AnythingOfType("string")).
		Return(nil, errors.New("dynamo down"))

	_, err := NewService(store).Register(context.Background(), 42, "tokA", "android")
	assert.ErrorContains(t, err, "dynamo down")
}

func TestFindByToken(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	_, err := svc.FindByToken(ctx, "tokA")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Register(ctx, 42, "tokA", "android")
	require.NoError(t, err)
	b, err := svc.FindByToken(ctx, "tokA")
	require.NoError(t, err)
	assert.Equal(t, int64(42), b.UserID)
}

func TestRemove_UnknownIsNoop(t *testing.T) {
	svc := NewService(newMemStore())
	assert.NoError(t, svc.Remove(context.Background(), &domain.DeviceBinding{Token: "ghost"}))
	assert.NoError(t, svc.Remove(context.Background(), nil))
}

func TestUnregister(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	_, err := svc.Register(ctx, 42, "tokA", "android")
	require.NoError(t, err)

	assert.NoError(t, svc.Unregister(ctx, "ghost", 42), "unknown token")
	assert.ErrorIs(t, svc.Unregister(ctx, "tokA", 7), domain.ErrForbidden)

	require.NoError(t, svc.Unregister(ctx, "tokA", 42))
	list, err := svc.ListFor(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUnregister_LostRaceToNewOwner(t *testing.T) {
	store := &mockStore{}
	store.On("GetByToken", mock.Anything, "tokA").Return(&domain.DeviceBinding{Token: "tokA", UserID: 42}, nil).Once()
	store.On("DeleteIfOwner", mock.Anything, "tokA", int64(42)).Return(false, nil)
	store.On("GetByToken", mock.Anything, "tokA").Return(&domain.DeviceBinding{Token: "tokA", UserID: 9}, nil).Once()

	err := NewService(store).Unregister(context.Background(), "tokA", 42)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRemoveAllFor(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()
	for _, tok := range []string{"a", "b", "c"} {
		_, err := svc.Register(ctx, 42, tok, "android")
		require.NoError(t, err)
	}
	_, err := svc.Register(ctx, 7, "d", "android")
	require.NoError(t, err)

	n, err := svc.RemoveAllFor(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	left, err := svc.ListFor(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
