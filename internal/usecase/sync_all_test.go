package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/crm-calendar-sync/internal/store"
)

func TestSyncAll_Execute(t *testing.T) {
	events := threeEvents()
	collector := new(MockEventCollector)
	collector.On("Execute", mock.Anything).Return(events, nil)
	remote := new(MockRemoteCalendar)
	remote.On("CreateEvent", mock.Anything, mock.Anything).Return("remote", nil)

	repo := store.NewMappingRepository(store.NewMemoryKV(), "acc-1")
	syncer := NewSyncCalendarUseCase("acc-1", remote, repo, newMemoryGuard(), WithSyncDelay(0))

	result, err := NewSyncAllUseCase(collector, syncer).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
}

func TestSyncAll_CollectError(t *testing.T) {
	collector := new(MockEventCollector)
	collector.On("Execute", mock.Anything).Return(nil, errors.New("db down"))
	remote := new(MockRemoteCalendar)
	mappings := new(MockMappingStore)
	syncer := NewSyncCalendarUseCase("acc-1", remote, mappings, newMemoryGuard())

	_, err := NewSyncAllUseCase(collector, syncer).Execute(context.Background(), nil)
	assert.EqualError(t, err, "db down")
	mappings.AssertNotCalled(t, "LoadMapping", mock.Anything)
}
