package storage

import (
	"context"
	"errors"
	"io"

	"tinygit/pkg/core"
	"tinygit/pkg/types"
)

// MinPrefixLen 是短哈希的最小长度
const MinPrefixLen = 6

var (
	ErrNotFound       = errors.New("object not found")
	ErrAmbiguousHash  = errors.New("ambiguous hash prefix")
	ErrPrefixTooShort = errors.New("hash prefix too short")
)

// Store defines the interface for a content-addressed object backend.
// Implementations can be local disk, S3, or a cache decorator.
type Store interface {
	// Put 将一个核心对象持久化
	// Hash 已经在 core.Object 里了；已存在的对象直接跳过 (不可变)
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取原始数据
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash 把短哈希解析成唯一的完整 Hash
	ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.Hash, error)

	// Walk 遍历所有对象的 Hash (顺序不保证)
	Walk(ctx context.Context, fn func(types.Hash) error) error
}

// BackupStore 保存每个 commit 的文件备份
// 布局: backup/<commit-id>/<path>
type BackupStore interface {
	PutFile(ctx context.Context, commit types.Hash, path string, data []byte) error
	GetFile(ctx context.Context, commit types.Hash, path string) (io.ReadCloser, error)
}

// Backend 是一个完整的存储后端 (disk / s3 都同时实现两者)
type Backend interface {
	Store
	BackupStore
}

// ReadAll 读取对象的全部字节并关闭 reader
func ReadAll(ctx context.Context, s Store, hash types.Hash) ([]byte, error) {
	r, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// ReadFile 读取备份文件的全部字节并关闭 reader
func ReadFile(ctx context.Context, b BackupStore, commit types.Hash, path string) ([]byte, error) {
	r, err := b.GetFile(ctx, commit, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// CheckPrefix 校验短哈希的长度和字符集
// 非十六进制的前缀不可能匹配任何对象
func CheckPrefix(prefix types.HashPrefix) error {
	if len(prefix) < MinPrefixLen {
		return ErrPrefixTooShort
	}
	if !prefix.IsHex() {
		return ErrNotFound
	}
	return nil
}
