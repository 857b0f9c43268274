package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tinygit/pkg/core"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
)

const (
	objectsDir = "objects"
	backupDir  = "backup"
	tempPrefix = "temp-"
)

// Adapter 实现了 storage.Store 和 storage.BackupStore 接口
type Adapter struct {
	rootPath string // 比如: /home/user/project/.tg
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	for _, dir := range []string{filepath.Join(root, objectsDir), filepath.Join(root, backupDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create root storage dir: %w", err)
		}
	}
	return &Adapter{rootPath: root}, nil
}

// layout 返回哈希对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: hash "aabbcc..." -> root/objects/aa/bbcc...
func (s *Adapter) layout(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return filepath.Join(s.rootPath, objectsDir, h)
	}
	return filepath.Join(s.rootPath, objectsDir, h[:2], h[2:])
}

// backupLayout 返回 backup/<commit>/<path> 的物理路径
func (s *Adapter) backupLayout(commit types.Hash, path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid backup path %q", path)
	}
	return filepath.Join(s.rootPath, backupDir, string(commit), clean), nil
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	return writeOnce(s.layout(obj.ID()), obj.Bytes())
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(hash))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.layout(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandHash 在分片目录里按前缀查找
func (s *Adapter) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.Hash, error) {
	prefix = prefix.Normalize()
	if err := storage.CheckPrefix(prefix); err != nil {
		return "", err
	}
	p := string(prefix)

	entries, err := os.ReadDir(filepath.Join(s.rootPath, objectsDir, p[:2]))
	if os.IsNotExist(err) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var found types.Hash
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		if !strings.HasPrefix(e.Name(), p[2:]) {
			continue
		}
		if found != "" {
			return "", storage.ErrAmbiguousHash
		}
		found = types.Hash(p[:2] + e.Name())
	}

	if found == "" {
		return "", storage.ErrNotFound
	}
	return found, nil
}

// Walk 遍历 objects/ 下所有分片
func (s *Adapter) Walk(ctx context.Context, fn func(types.Hash) error) error {
	root := filepath.Join(s.rootPath, objectsDir)
	shards, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, shard.Name()))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(types.Hash(shard.Name() + e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Adapter) PutFile(ctx context.Context, commit types.Hash, path string, data []byte) error {
	target, err := s.backupLayout(commit, path)
	if err != nil {
		return err
	}
	return writeOnce(target, data)
}

func (s *Adapter) GetFile(ctx context.Context, commit types.Hash, path string) (io.ReadCloser, error) {
	target, err := s.backupLayout(commit, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// writeOnce 原子写入，目标已存在时直接跳过 (幂等性)
func writeOnce(targetPath string, data []byte) error {
	// 1. 检查是否存在
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 3. 原子写入 (Atomic Write)
	// 先写到一个临时文件，然后 Rename。
	// 这样保证要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// 4. 移动到最终位置
	return os.Rename(tempFile.Name(), targetPath)
}
