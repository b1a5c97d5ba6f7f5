package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionDefaults(t *testing.T) {
	s := New()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, RoleCustomer, s.Role)
	assert.True(t, s.Cart.IsEmpty())
	assert.NotEqual(t, s.ID, New().ID)
}

func TestRoles(t *testing.T) {
	role, err := ParseRole("Farmer")
	require.NoError(t, err)
	assert.True(t, role.CanSell())
	assert.False(t, role.CanBuy())

	assert.True(t, RoleCustomer.CanBuy())
	assert.True(t, RoleVisitor.CanBuy())
	assert.False(t, RoleVisitor.CanSell())

	_, err = ParseRole("Admin")
	assert.Error(t, err)
}

func TestPopFlashes(t *testing.T) {
	s := New()
	s.AddFlash(FlashError, "Select quantity > 0")
	s.AddFlash(FlashInfo, "hello")

	flashes := s.PopFlashes()
	require.Len(t, flashes, 2)
	assert.Equal(t, Flash{Level: FlashError, Text: "Select quantity > 0"}, flashes[0])
	assert.Empty(t, s.PopFlashes())
}

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := New()
	s.Role = RoleVisitor
	s.Cart[3] = 2
	s.Cart[1] = 5
	s.AddFlash(FlashSuccess, "Order #1 placed")
	s.LastOrderID = 1
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleVisitor, got.Role)
	assert.Equal(t, 2, got.Cart[3])
	assert.Equal(t, 5, got.Cart[1])
	assert.Equal(t, int64(1), got.LastOrderID)
	require.Len(t, got.Flashes, 1)

	// Changing a loaded copy is invisible until saved.
	got.Cart.Clear()
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Cart[3])

	require.NoError(t, store.Save(ctx, got))
	again, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, again.Cart.IsEmpty())

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	first, second := New(), New()
	require.NoError(t, store.Save(ctx, first))

	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, second))

	now = now.Add(45 * time.Second)
	_, err := store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, second.ID)
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseStore(t, NewRedisStore(client))
}

func TestRedisStoreTTLAndPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	s := New()
	require.NoError(t, store.Save(ctx, s))
	assert.True(t, mr.Exists("test:"+s.ID))
	assert.Equal(t, time.Minute, mr.TTL("test:"+s.ID))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client)

	require.NoError(t, mr.Set(DefaultRedisPrefix+"bad", "{not json"))
	_, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedisClient(t *testing.T) {
	mr, _ := setupTestRedis(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "::not a url")
	assert.Error(t, err)
}
