package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStoreWithMock(t *testing.T, now time.Time) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, WithPrefix("sess:"))
	s.now = func() time.Time { return now }
	return s, mock
}

func TestRedisStore_SaveUsesRemainingLifetimeAsTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newRedisStoreWithMock(t, now)

	s := newSession("sid", now, 2*time.Hour)
	data, err := encode(s)
	require.NoError(t, err)

	mock.ExpectSet("sess:sid", data, 2*time.Hour).SetVal("OK")

	require.NoError(t, store.Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SaveExpiredDeletes(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, mock := newRedisStoreWithMock(t, now)

	s := newSession("sid", now.Add(-2*time.Hour), time.Hour)
	mock.ExpectDel("sess:sid").SetVal(1)

	require.NoError(t, store.Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Load(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	stored := newSession("sid", now, time.Hour)
	stored.Login("u-1")
	data, err := encode(stored)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectGet("sess:sid").SetVal(string(data))

		got, err := store.Load(context.Background(), "sid")
		require.NoError(t, err)
		assert.Equal(t, "u-1", got.UserID)
		assert.True(t, got.ExpiresAt.Equal(stored.ExpiresAt))
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectGet("sess:sid").RedisNil()

		_, err := store.Load(context.Background(), "sid")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("lapsed record", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now.Add(2*time.Hour))
		mock.ExpectGet("sess:sid").SetVal(string(data))

		_, err := store.Load(context.Background(), "sid")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("backend error", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectGet("sess:sid").SetErr(errors.New("connection refused"))

		_, err := store.Load(context.Background(), "sid")
		assert.ErrorIs(t, err, common.ErrorSessionStore)
	})

	t.Run("garbage", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectGet("sess:sid").SetVal("{not json")

		_, err := store.Load(context.Background(), "sid")
		assert.ErrorIs(t, err, common.ErrorSessionStore)
	})
}

func TestRedisStore_ReplaceOnlyUpdatesExisting(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newSession("sid", now, time.Hour)
	data, err := encode(s)
	require.NoError(t, err)

	t.Run("existing", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectSetXX("sess:sid", data, time.Hour).SetVal(true)
		assert.NoError(t, store.Replace(context.Background(), s))
	})

	t.Run("gone", func(t *testing.T) {
		store, mock := newRedisStoreWithMock(t, now)
		mock.ExpectSetXX("sess:sid", data, time.Hour).SetVal(false)
		assert.ErrorIs(t, store.Replace(context.Background(), s), common.ErrorNotFound)
	})
}

func TestRedisStore_ReplaceLapsedSession(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newRedisStoreWithMock(t, now)

	s := newSession("sid", now.Add(-2*time.Hour), time.Hour)
	assert.ErrorIs(t, store.Replace(context.Background(), s), common.ErrorNotFound)
}

func TestRedisStore_DeleteError(t *testing.T) {
	store, mock := newRedisStoreWithMock(t, time.Now())
	mock.ExpectDel("sess:sid").SetErr(errors.New("readonly"))

	assert.ErrorIs(t, store.Delete(context.Background(), "sid"), common.ErrorSessionStore)
}
