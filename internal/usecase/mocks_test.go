package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
)

// MockRemoteCalendar は RemoteCalendar のテスト用モック
type MockRemoteCalendar struct {
	mock.Mock
}

func (m *MockRemoteCalendar) CreateEvent(ctx context.Context, ev domain.Event) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteCalendar) UpdateEvent(ctx context.Context, remoteID string, ev domain.Event) error {
	return m.Called(ctx, remoteID, ev).Error(0)
}

func (m *MockRemoteCalendar) DeleteEvent(ctx context.Context, remoteID string) error {
	return m.Called(ctx, remoteID).Error(0)
}

func (m *MockRemoteCalendar) TokenValid(ctx context.Context, accessToken string) bool {
	return m.Called(ctx, accessToken).Bool(0)
}

// MockMappingStore は MappingStore のテスト用モック
type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) LoadMapping(ctx context.Context) (domain.Mapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Mapping).Clone(), args.Error(1)
}

func (m *MockMappingStore) SaveMapping(ctx context.Context, mapping domain.Mapping) error {
	return m.Called(ctx, mapping).Error(0)
}

func (m *MockMappingStore) LastSync(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockMappingStore) SaveLastSync(ctx context.Context, t time.Time) error {
	return m.Called(ctx, t).Error(0)
}

// MockSyncGuard は SyncGuard のテスト用モック
type MockSyncGuard struct {
	mock.Mock
}

func (m *MockSyncGuard) Acquire(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSyncGuard) Release(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

// MockRecordSource は RecordSource のテスト用モック
type MockRecordSource struct {
	mock.Mock
}

func (m *MockRecordSource) records(args mock.Arguments) ([]domain.Record, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *MockRecordSource) ListClients(ctx context.Context) ([]domain.Record, error) {
	return m.records(m.Called(ctx))
}

func (m *MockRecordSource) ListProperties(ctx context.Context) ([]domain.Record, error) {
	return m.records(m.Called(ctx))
}

func (m *MockRecordSource) ListTasks(ctx context.Context) ([]domain.Record, error) {
	return m.records(m.Called(ctx))
}

func (m *MockRecordSource) ListOpportunities(ctx context.Context, clientID string) ([]domain.Record, error) {
	return m.records(m.Called(ctx, clientID))
}

// MockEventCollector は EventCollector のテスト用モック
type MockEventCollector struct {
	mock.Mock
}

func (m *MockEventCollector) Execute(ctx context.Context) ([]domain.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

// MockNotifier は Notifier のテスト用モック
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendScheduleNotification(ctx context.Context, todayEvents, tomorrowEvents []domain.Event) error {
	args := m.Called(ctx, todayEvents, tomorrowEvents)
	return args.Error(0)
}
