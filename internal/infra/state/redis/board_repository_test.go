package redisstate

import (
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

func newTestRepo(t *testing.T, prefix string) *RedisBoardRepository {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBoardRepository(client, prefix, 10, 5)
}

func TestRedisBoardRepository_Keys(t *testing.T) {
	repo := newTestRepo(t, "test:")

	assert.Equal(t, "test:board", repo.boardKey())
	assert.Equal(t, "test:cooldown:42", repo.cooldownKey(42))
	assert.Equal(t, "test:updates", repo.updatesChannel())
}

func TestRedisBoardRepository_DefaultPrefix(t *testing.T) {
	repo := newTestRepo(t, "")

	assert.Equal(t, "place:board", repo.boardKey())
}

func TestRedisBoardRepository_Offset(t *testing.T) {
	repo := newTestRepo(t, "test:")

	off, err := repo.offset(3, 2)
	require.NoError(t, err)
	assert.Equal(t, "#23", off)

	for _, p := range [][2]int{{-1, 0}, {10, 0}, {0, 5}, {0, -1}} {
		_, err := repo.offset(p[0], p[1])
		assert.ErrorIs(t, err, domain.ErrOutOfBounds, "point %v", p)
	}
}

func TestNewRedisBoardRepository_Panics(t *testing.T) {
	assert.Panics(t, func() { NewRedisBoardRepository(nil, "", 1, 1) })
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	assert.Panics(t, func() { NewRedisBoardRepository(client, "", 0, 1) })
}
