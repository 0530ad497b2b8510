package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/crm-calendar-sync/internal/domain"
	"github.com/k-negishi/crm-calendar-sync/internal/store"
	"github.com/k-negishi/crm-calendar-sync/internal/usecase"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Execute(ctx context.Context, onProgress usecase.ProgressFunc) (domain.SyncResult, error) {
	args := m.Called(ctx, onProgress)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

func newSettings(t *testing.T, enabled bool) *store.SettingsRepository {
	t.Helper()
	settings := store.NewSettingsRepository(store.NewMemoryKV(), "acc-1")
	require.NoError(t, settings.SetAutoSync(context.Background(), enabled))
	return settings
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every minute", new(MockRunner), newSettings(t, true), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron式")
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("無効なら実行しない", func(t *testing.T) {
		runner := new(MockRunner)
		s, err := New("@hourly", runner, newSettings(t, false), nil)
		require.NoError(t, err)

		ran, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.False(t, ran)
		runner.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("有効なら実行", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Execute", mock.Anything, mock.Anything).Return(domain.SyncResult{RunID: "r-1", Created: 2}, nil)
		s, err := New("0 */6 * * *", runner, newSettings(t, true), nil)
		require.NoError(t, err)

		ran, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, ran)
		runner.AssertExpectations(t)
	})

	t.Run("同期中はスキップ", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Execute", mock.Anything, mock.Anything).Return(domain.SyncResult{}, usecase.ErrSyncInProgress)
		s, err := New("@hourly", runner, newSettings(t, true), nil)
		require.NoError(t, err)

		ran, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.False(t, ran)
	})

	t.Run("同期エラー", func(t *testing.T) {
		runner := new(MockRunner)
		runner.On("Execute", mock.Anything, mock.Anything).Return(domain.SyncResult{}, errors.New("token expired"))
		s, err := New("@hourly", runner, newSettings(t, true), nil)
		require.NoError(t, err)

		ran, err := s.RunOnce(ctx)
		assert.True(t, ran)
		assert.EqualError(t, err, "token expired")
	})
}

func TestStartStop(t *testing.T) {
	runner := new(MockRunner)
	s, err := New("@every 1h", runner, newSettings(t, true), nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	runner.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}
