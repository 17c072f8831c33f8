package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockStore) Get(ctx context.Context, notificationID int64) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}
func (m *mockStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockStore) MarkAsRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type seqIDs struct {
	mu   sync.Mutex
	last int64
	err  error
}

func (s *seqIDs) Next(_ context.Context, _ string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last, nil
}

type published struct {
	userID int64
	event  domain.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(userID int64, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, event: payload.(domain.Event)})
}

type recordingQueue struct {
	full bool
	jobs []push.Job
}

func (q *recordingQueue) Submit(job push.Job) bool {
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func newTestService(store *mockStore) (Service, *recordingPublisher, *recordingQueue) {
	pub := &recordingPublisher{}
	queue := &recordingQueue{}
	return NewService(store, &seqIDs{}, pub, queue), pub, queue
}

// --- tests ---

func TestNotify_PersistsPublishesAndQueuesPush(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == 42 && n.Title == "New Service Request" && !n.Read
	})).Return(nil).Once()
	svc, pub, queue := newTestService(store)

	n, err := svc.Notify(context.Background(), 42, "New Service Request", "Request #7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.ID)
	assert.False(t, n.Read)
	assert.False(t, n.CreatedAt.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(42), pub.events[0].userID)
	assert.Equal(t, domain.EventCreated, pub.events[0].event.Type)
	assert.Equal(t, n.ID, *pub.events[0].event.ID)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, int64(42), queue.jobs[0].UserID)
	assert.Equal(t, "Request #7", queue.jobs[0].Body)
	assert.Equal(t, "1", queue.jobs[0].Data["notificationId"])
	store.AssertExpectations(t)
}

func TestNotify_IDsIncrease(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	svc, _, _ := newTestService(store)

	first, err := svc.Notify(context.Background(), 42, "a", "b")
	require.NoError(t, err)
	second, err := svc.Notify(context.Background(), 42, "a", "b")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestNotify_StoreFailureIsReturnedAndNothingIsDelivered(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))
	svc, pub, queue := newTestService(store)

	_, err := svc.Notify(context.Background(), 42, "a", "b")
	assert.ErrorContains(t, err, "dynamo down")
	assert.Empty(t, pub.events)
	assert.Empty(t, queue.jobs)
}

func TestNotify_IDAllocationFailure(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, &seqIDs{err: errors.New("counter unavailable")}, &recordingPublisher{}, &recordingQueue{})

	_, err := svc.Notify(context.Background(), 42, "a", "b")
	assert.ErrorContains(t, err, "counter unavailable")
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotify_FullPushQueueDoesNotFail(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub := &recordingPublisher{}
	svc := NewService(store, &seqIDs{}, pub, &recordingQueue{full: true})

	_, err := svc.Notify(context.Background(), 42, "a", "b")
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestNotify_WithoutDeliveryChannels(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(store, &seqIDs{}, nil, nil)

	_, err := svc.Notify(context.Background(), 42, "a", "b")
	assert.NoError(t, err)
}

func TestNotify_RejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(&mockStore{})
	_, err := svc.Notify(context.Background(), 0, "a", "b")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = svc.Notify(context.Background(), 42, "  ", "b")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestMarkRead_PublishesReadEvent(t *testing.T) {
	store := &mockStore{}
	store.On("MarkAsRead", mock.Anything, int64(9), int64(42)).
		Return(&domain.Notification{ID: 9, UserID: 42, Read: true}, nil)
	svc, pub, queue := newTestService(store)

	n, err := svc.MarkRead(context.Background(), 9, 42)
	require.NoError(t, err)
	assert.True(t, n.Read)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventRead, pub.events[0].event.Type)
	assert.Equal(t, int64(9), *pub.events[0].event.ID)
	assert.Empty(t, queue.jobs, "read events are not pushed")
}

func TestMarkRead_ForeignOrMissing(t *testing.T) {
	store := &mockStore{}
	store.On("MarkAsRead", mock.Anything, int64(9), int64(7)).Return(nil, domain.ErrNotFound)
	svc, pub, _ := newTestService(store)

	_, err := svc.MarkRead(context.Background(), 9, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestMarkAllRead_EmitsOneEventAndIsIdempotent(t *testing.T) {
	store := &mockStore{}
	store.On("MarkAllRead", mock.Anything, int64(42)).Return(3, nil).Once()
	store.On("MarkAllRead", mock.Anything, int64(42)).Return(0, nil).Once()
	svc, pub, _ := newTestService(store)

	n, err := svc.MarkAllRead(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventReadAll, pub.events[0].event.Type)
	assert.Nil(t, pub.events[0].event.ID)

	n, err = svc.MarkAllRead(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMarkAllRead_StoreError(t *testing.T) {
	store := &mockStore{}
	store.On("MarkAllRead", mock.Anything, int64(42)).Return(1, errors.New("throttled"))
	svc, pub, _ := newTestService(store)

	_, err := svc.MarkAllRead(context.Background(), 42)
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestListAndUnreadCount(t *testing.T) {
	store := &mockStore{}
	store.On("ListByUser", mock.Anything, int64(42)).Return([]domain.Notification{{ID: 2}, {ID: 1}}, nil)
	store.On("CountUnread", mock.Anything, int64(42)).Return(1, nil)
	svc, _, _ := newTestService(store)

	list, err := svc.List(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list[0].ID)

	count, err := svc.UnreadCount(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGet_OwnerOnly(t *testing.T) {
	store := &mockStore{}
	store.On("Get", mock.Anything, int64(9)).Return(&domain.Notification{ID: 9, UserID: 42, Title: "Quote ready"}, nil)
	store.On("Get", mock.Anything, int64(10)).Return(nil, domain.ErrNotFound)
	svc, pub, _ := newTestService(store)

	n, err := svc.Get(context.Background(), 9, 42)
	require.NoError(t, err)
	assert.Equal(t, "Quote ready", n.Title)

	_, err = svc.Get(context.Background(), 9, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound, "foreign record looks missing")

	_, err = svc.Get(context.Background(), 10, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, pub.events, "lookups publish nothing")
}
