package notification

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockStore) GetPushSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]PushSubscription)
	return subs, args.Error(1)
}

func (m *mockStore) DeactivatePushSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CreateInAppNotification(ctx context.Context, n *InAppNotification) error {
	return m.Called(ctx, n).Error(0)
}

// fakeAdapter records what it was asked to send and answers with respond,
// or success when respond is nil.
type fakeAdapter[T any] struct {
	ready   bool
	respond func(T) SendResult

	mu       sync.Mutex
	targets  []T
	payloads []Payload
}

func newFakeAdapter[T any](respond func(T) SendResult) *fakeAdapter[T] {
	return &fakeAdapter[T]{ready: true, respond: respond}
}

func (f *fakeAdapter[T]) IsReady() bool { return f.ready }

func (f *fakeAdapter[T]) Send(_ context.Context, target T, payload Payload) SendResult {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	if f.respond == nil {
		return Succeeded("ok")
	}
	return f.respond(target)
}

func (f *fakeAdapter[T]) SendBatch(ctx context.Context, targets []T, payload Payload) []SendResult {
	return SendEach(ctx, targets, 0, func(ctx context.Context, t T) SendResult {
		return f.Send(ctx, t, payload)
	})
}

func (f *fakeAdapter[T]) sent() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), f.targets...)
}

type fakeFCM struct {
	*fakeAdapter[FCMTarget]
	valid map[string]bool
}

func (f *fakeFCM) VerifyToken(_ context.Context, token string) bool {
	return f.valid[token]
}

type fakeRecorder struct {
	mu            sync.Mutex
	sends         map[string][]SendResult
	deactivations map[string]int
	durations     map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		sends:         map[string][]SendResult{},
		deactivations: map[string]int{},
		durations:     map[string]int{},
	}
}

func (r *fakeRecorder) ChannelSend(channel string, result SendResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends[channel] = append(r.sends[channel], result)
}

func (r *fakeRecorder) SubscriptionDeactivated(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivations[channel]++
}

func (r *fakeRecorder) DispatchDuration(mode string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[mode]++
}

func boolPtr(b bool) *bool { return &b }
