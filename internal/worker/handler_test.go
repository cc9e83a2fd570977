package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository/mocks"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/tasks"
)

func TestPixelPersistenceHandler_SavesBatch(t *testing.T) {
	// Arrange
	repo := new(mocks.PixelRepository)
	handler := NewPixelPersistenceHandler(repo)
	pixels := []domain.Pixel{{UserID: 1, Username: "a", X: 1, Y: 2, Color: 3}}
	task, err := tasks.NewPixelPersistenceTask(pixels)
	require.NoError(t, err)
	repo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(p []domain.Pixel) bool {
		return len(p) == 1 && p[0].X == 1 && p[0].Y == 2 && p[0].Color == 3
	})).Return(nil).Once()

	// Act
	err = handler.ProcessTask(context.Background(), task)

	// Assert
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestPixelPersistenceHandler_CorruptPayloadSkipsRetry(t *testing.T) {
	repo := new(mocks.PixelRepository)
	handler := NewPixelPersistenceHandler(repo)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypePixelPersistence, []byte("not json")))

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	repo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestPixelPersistenceHandler_RepoFailureRetries(t *testing.T) {
	repo := new(mocks.PixelRepository)
	handler := NewPixelPersistenceHandler(repo)
	task, _ := tasks.NewPixelPersistenceTask([]domain.Pixel{{X: 1}})
	repo.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("mysql gone")).Once()

	err := handler.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

type fixedCounter int

func (c fixedCounter) ActiveCount() int { return int(c) }

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) BroadcastActivity(ctx context.Context, count int) error {
	return m.Called(ctx, count).Error(0)
}

func TestActivityBroadcastHandler(t *testing.T) {
	// Arrange
	b := new(mockBroadcaster)
	handler := NewActivityBroadcastHandler(fixedCounter(42), b)
	b.On("BroadcastActivity", mock.Anything, 42).Return(nil).Once()

	// Act
	err := handler.ProcessTask(context.Background(), tasks.NewActivityBroadcastTask())

	// Assert
	assert.NoError(t, err)
	b.AssertExpectations(t)
}

func TestActivityBroadcastHandler_PropagatesError(t *testing.T) {
	b := new(mockBroadcaster)
	handler := NewActivityBroadcastHandler(fixedCounter(1), b)
	b.On("BroadcastActivity", mock.Anything, 1).Return(errors.New("pubsub down")).Once()

	err := handler.ProcessTask(context.Background(), tasks.NewActivityBroadcastTask())

	assert.Error(t, err)
}

func TestNewServeMux_RoutesTaskTypes(t *testing.T) {
	repo := new(mocks.PixelRepository)
	b := new(mockBroadcaster)
	mux := NewServeMux(repo, fixedCounter(3), b)
	b.On("BroadcastActivity", mock.Anything, 3).Return(nil).Once()

	err := mux.ProcessTask(context.Background(), tasks.NewActivityBroadcastTask())

	assert.NoError(t, err)
	b.AssertExpectations(t)
}
