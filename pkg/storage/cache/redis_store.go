package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tinygit/pkg/core"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	existsPrefix = "tg:obj:"
	dataPrefix   = "tg:data:"

	// 只缓存小对象 (commit 元数据)，大文件直接走后端
	defaultMaxValueSize = 64 << 10
)

// CachedStore 是一个装饰器，它为底层的 storage.Backend 添加 Redis 缓存层
type CachedStore struct {
	backend storage.Backend // 被装饰的底层存储 (disk / S3)
	client  *redis.Client
	ttl     time.Duration
	maxSize int
	ns      string
	log     zerolog.Logger
}

type Config struct {
	RedisURL     string        // redis://<user>:<password>@<host>:<port>/<db>
	TTL          time.Duration // 过期时间
	MaxValueSize int           // 0 表示使用默认值

	// Namespace 区分共用同一个 Redis 的多个仓库
	Namespace string
}

func NewCachedStore(backend storage.Backend, cfg Config, log zerolog.Logger) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	maxSize := cfg.MaxValueSize
	if maxSize <= 0 {
		maxSize = defaultMaxValueSize
	}

	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		maxSize: maxSize,
		ns:      namespace(cfg.Namespace),
		log:     log.With().Str("component", "redis-cache").Logger(),
	}, nil
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return existsPrefix + s.ns + string(hash)
}

func (s *CachedStore) dataKey(hash types.Hash) string {
	return dataPrefix + s.ns + string(hash)
}

func namespace(ns string) string {
	if ns == "" {
		return ""
	}
	return ns + ":"
}

// Close 释放 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：退化为无缓存模式，直接查底层
		s.log.Warn().Err(err).Str("hash", hash.Short()).Msg("redis exists failed, falling back")
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	if found {
		// 异步回填，不阻塞主流程
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 利用 Has 的缓存能力进行预检
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了才写 Redis，错误可以忽略
	s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl)
	return nil
}

// Get 小对象读穿缓存，大对象透传
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	data, err := s.client.Get(ctx, s.dataKey(hash)).Bytes()
	switch {
	case err == nil:
		return io.NopCloser(bytes.NewReader(data)), nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("hash", hash.Short()).Msg("redis get failed, falling back")
	}

	r, err := s.backend.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) <= s.maxSize {
		s.client.Set(ctx, s.dataKey(hash), data, s.ttl)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ExpandHash 透传
func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}

// Walk 透传
func (s *CachedStore) Walk(ctx context.Context, fn func(types.Hash) error) error {
	return s.backend.Walk(ctx, fn)
}

// PutFile 透传
func (s *CachedStore) PutFile(ctx context.Context, commit types.Hash, path string, data []byte) error {
	return s.backend.PutFile(ctx, commit, path, data)
}

// GetFile 透传
func (s *CachedStore) GetFile(ctx context.Context, commit types.Hash, path string) (io.ReadCloser, error) {
	return s.backend.GetFile(ctx, commit, path)
}
