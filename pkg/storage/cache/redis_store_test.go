package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tinygit/pkg/core"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SpyStore 统计底层方法被调用的次数，验证请求是否穿透了缓存
type SpyStore struct {
	hasCount int32
	putCount int32
	getCount int32

	mu      sync.Mutex
	objects map[types.Hash][]byte
}

func NewSpyStore() *SpyStore {
	return &SpyStore{objects: make(map[types.Hash][]byte)}
}

func (s *SpyStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	atomic.AddInt32(&s.hasCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[hash]
	return ok, nil
}

func (s *SpyStore) Put(ctx context.Context, obj core.Object) error {
	atomic.AddInt32(&s.putCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID()] = obj.Bytes()
	return nil
}

func (s *SpyStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	atomic.AddInt32(&s.getCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// 其他接口存根
func (s *SpyStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return "", storage.ErrNotFound
}
func (s *SpyStore) Walk(ctx context.Context, fn func(types.Hash) error) error { return nil }
func (s *SpyStore) PutFile(ctx context.Context, commit types.Hash, path string, data []byte) error {
	return nil
}
func (s *SpyStore) GetFile(ctx context.Context, commit types.Hash, path string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

type mockObject struct {
	id types.Hash
}

func (m mockObject) ID() types.Hash        { return m.id }
func (m mockObject) Bytes() []byte         { return []byte("fake data") }
func (m mockObject) Type() core.ObjectType { return core.TypeBlob }

func newTestStore(t *testing.T) (*CachedStore, *SpyStore) {
	t.Helper()
	redisAddr := "localhost:6379"
	conn, err := net.DialTimeout("tcp", redisAddr, 1*time.Second)
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	conn.Close()

	spy := NewSpyStore()
	cs, err := NewCachedStore(spy, Config{
		RedisURL: fmt.Sprintf("redis://%s/0", redisAddr),
		TTL:      time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })

	// 清理 Redis (防止上次测试残留)
	cs.client.FlushDB(context.Background())
	return cs, spy
}

func TestCachedStore_Existence(t *testing.T) {
	cs, spy := newTestStore(t)
	ctx := context.Background()

	hash := types.Hash("1111222233334444555566667777888899990000aaaabbbbccccddddeeeeffff")
	obj := mockObject{id: hash}

	// 1. Cache Miss
	exists, err := cs.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.hasCount), "Backend Has() should be called on miss")

	// 2. Put (Write-Through)，内部的 Has 预检会再查一次底层
	require.NoError(t, cs.Put(ctx, obj))
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.putCount))

	redisVal, err := cs.client.Exists(ctx, cs.cacheKey(hash)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), redisVal, "Redis key should be set after Put")

	// 3. Cache Hit: 底层 Has 的调用次数不再增长
	exists, err = cs.Has(ctx, hash)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(2), atomic.LoadInt32(&spy.hasCount), "Backend Has() should NOT be called on hit")
}

func TestCachedStore_ReadThrough(t *testing.T) {
	cs, spy := newTestStore(t)
	ctx := context.Background()

	hash := types.Hash("aaaa222233334444555566667777888899990000aaaabbbbccccddddeeeeffff")
	require.NoError(t, cs.Put(ctx, mockObject{id: hash}))

	// 第一次读穿到底层，第二次命中 Redis
	for range 2 {
		data, err := storage.ReadAll(ctx, cs, hash)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake data"), data)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.getCount))

	_, err := cs.Get(ctx, "ffff000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

