package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_AcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewLocker(client, "sweeper")
	ctx := context.Background()

	mock.ExpectSetNX("sweeper:cash-orders", "token-1", time.Minute).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"sweeper:cash-orders"}, "token-1").SetVal(int64(1))

	l, err := locker.acquireWithToken(ctx, "cash-orders", "token-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, l)

	assert.NoError(t, l.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_AcquireHeldElsewhere(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewLocker(client, "sweeper")

	mock.ExpectSetNX("sweeper:seat-holds", "token-2", time.Minute).SetVal(false)

	l, err := locker.acquireWithToken(context.Background(), "seat-holds", "token-2", time.Minute)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_AcquireRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewLocker(client, "sweeper")

	mock.ExpectSetNX("sweeper:room-holds", "token-3", time.Minute).SetErr(errors.New("connection refused"))

	_, err := locker.acquireWithToken(context.Background(), "room-holds", "token-3", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLease_ReleaseNil(t *testing.T) {
	var l *Lease
	assert.NoError(t, l.Release(context.Background()))
}
