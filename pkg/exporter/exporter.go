package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
)

type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Resolve 把完整 Hash 或前缀展开成对象库里的 Hash
func (e *Exporter) Resolve(ctx context.Context, id types.HashPrefix) (types.Hash, error) {
	id = id.Normalize()
	if h := types.Hash(id); h.IsValid() {
		return h, nil
	}
	h, err := e.store.ExpandHash(ctx, id)
	if err != nil {
		return "", errs.Wrap(errs.AmbiguousOrMissingID, "cat-object", id.String(), err)
	}
	return h, nil
}

// ExportFile 把 blob 的原始字节写入 writer
func (e *Exporter) ExportFile(ctx context.Context, hash types.Hash, writer io.Writer) error {
	reader, err := e.store.Get(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.Wrap(errs.ObjectNotFound, "cat-object", hash.Short(), err)
	}
	if err != nil {
		return fmt.Errorf("failed to get blob %s: %w", hash.Short(), err)
	}
	defer reader.Close()

	// 流式拷贝
	if _, err := io.Copy(writer, reader); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", hash.Short(), err)
	}
	return nil
}

// PrintObject 按类型打印对象：commit 打印结构，blob 直接输出内容
func (e *Exporter) PrintObject(ctx context.Context, hash types.Hash, writer io.Writer) error {
	data, err := storage.ReadAll(ctx, e.store, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.Wrap(errs.ObjectNotFound, "cat-object", hash.Short(), err)
	}
	if err != nil {
		return err
	}

	ok, err := PrintStructure(data, writer)
	if err != nil {
		return err
	}
	if !ok {
		_, err = writer.Write(data)
	}
	return err
}

type RestoreCallback func(path string, hash types.Hash, size int64)

// ExportCommit 把 commit 的快照写到一个独立目录 (不碰工作区和暂存区)
func (e *Exporter) ExportCommit(ctx context.Context, commitHash types.Hash, targetDir string, onRestore RestoreCallback) error {
	data, err := storage.ReadAll(ctx, e.store, commitHash)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.Wrap(errs.ObjectNotFound, "export", commitHash.Short(), err)
	}
	if err != nil {
		return fmt.Errorf("failed to get commit %s: %w", commitHash, err)
	}

	commit, err := core.DecodeCommit(data)
	if err != nil {
		return errs.Wrap(errs.AmbiguousOrMissingID, "export", commitHash.Short(), err)
	}

	for _, p := range commit.Paths() {
		hash, _ := commit.Lookup(p)
		fullPath := filepath.Join(targetDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create dir for %s: %w", p, err)
		}

		size, err := e.exportTo(ctx, hash, fullPath)
		if err != nil {
			return err
		}

		// 触发回调 (通知上层打印进度)
		if onRestore != nil {
			onRestore(p, hash, size)
		}
	}
	return nil
}

func (e *Exporter) exportTo(ctx context.Context, hash types.Hash, fullPath string) (int64, error) {
	file, err := os.Create(fullPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if err := e.ExportFile(ctx, hash, file); err != nil {
		return 0, err
	}
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
