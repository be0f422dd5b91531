package creditscore

import (
	"context"
	"errors"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) GetByUserID(ctx context.Context, userID string) (*Score, error) {
	ret := _m.Called(ctx, userID)

	var r0 *Score
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Score)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) Adjust(ctx context.Context, userID string, delta int, at time.Time) (*Score, error) {
	ret := _m.Called(ctx, userID, delta, at)

	var r0 *Score
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Score)
	}
	return r0, ret.Error(1)
}

var fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *serviceImpl {
	svc := NewService(repo, logger).(*serviceImpl)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 300, Clamp(120))
	assert.Equal(t, 900, Clamp(950))
	assert.Equal(t, 610, Clamp(610))
}

func TestService_Adjust(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates the delta to storage", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Adjust", ctx, "u1", DeltaVerified, fixedNow).Return(&Score{UserID: "u1", Score: 620, LastUpdated: fixedNow}, nil).Once()

		score, err := newTestService(repo).Adjust(ctx, "u1", DeltaVerified)

		require.NoError(t, err)
		assert.Equal(t, 620, score.Score)
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
	})

	t.Run("propagates storage failures", func(t *testing.T) {
		repo := new(MockRepository)
		dbErr := errors.New("connection reset")
		repo.On("Adjust", ctx, "u4", DeltaApplied, fixedNow).Return(nil, dbErr)

		_, err := newTestService(repo).Adjust(ctx, "u4", DeltaApplied)

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("existing score", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByUserID", ctx, "u5").Return(&Score{UserID: "u5", Score: 700}, nil)

		score, err := newTestService(repo).Get(ctx, "u5")

		require.NoError(t, err)
		assert.Equal(t, 700, score.Score)
		repo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates the default score lazily", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByUserID", ctx, "u6").Return(nil, apperrors.ErrNotFound)
		repo.On("Adjust", ctx, "u6", 0, fixedNow).Return(&Score{UserID: "u6", Score: DefaultScore, LastUpdated: fixedNow}, nil)

		score, err := newTestService(repo).Get(ctx, "u6")

		require.NoError(t, err)
		assert.Equal(t, DefaultScore, score.Score)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockRepository)
		dbErr := errors.New("connection reset")
		repo.On("GetByUserID", ctx, "u7").Return(nil, dbErr)

		_, err := newTestService(repo).Get(ctx, "u7")

		assert.ErrorIs(t, err, dbErr)
	})
}
