// Package checkout 把 commit 快照还原到工作区。
package checkout

import (
	"context"
	"errors"
	"fmt"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/index"
	"tinygit/pkg/storage"
	"tinygit/pkg/worktree"

	"github.com/rs/zerolog"
)

type Restorer struct {
	store storage.Backend
	tree  *worktree.Worktree
	log   zerolog.Logger
}

func NewRestorer(store storage.Backend, tree *worktree.Worktree, log zerolog.Logger) *Restorer {
	return &Restorer{store: store, tree: tree, log: log}
}

// ReadTracked 读取 commit 里某个路径的字节
// 先从 origin commit 的备份里找，找不到再按内容 Hash 去对象库里找
func (r *Restorer) ReadTracked(ctx context.Context, c *core.Commit, path string) ([]byte, error) {
	hash, ok := c.Lookup(path)
	if !ok {
		return nil, errs.E(errs.FileNotInCommit, "read", path)
	}

	if origin, ok := c.OriginOf(path); ok {
		data, err := storage.ReadFile(ctx, r.store, origin, path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to read backup of %s: %w", path, err)
		}
		r.log.Debug().Str("path", path).Str("origin", origin.Short()).Msg("backup missing, reading blob")
	}

	data, err := storage.ReadAll(ctx, r.store, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errs.Wrap(errs.ObjectNotFound, "read", path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob of %s: %w", path, err)
	}
	return data, nil
}

// CheckUntracked 在修改之前扫描所有路径：
// target 跟踪的文件如果已经在工作区里、但 HEAD 没有跟踪，就拒绝覆盖
func (r *Restorer) CheckUntracked(head, target *core.Commit) error {
	for _, p := range target.Paths() {
		if !head.Tracks(p) && r.tree.Exists(p) {
			return errs.E(errs.UntrackedFileConflict, "checkout", p)
		}
	}
	return nil
}

// RestoreSnapshot 把工作区切换成 target 的快照，并清空暂存区
func (r *Restorer) RestoreSnapshot(ctx context.Context, head, target *core.Commit, idx *index.Index) error {
	// 1. 安全检查必须全部通过才开始写
	if err := r.CheckUntracked(head, target); err != nil {
		return err
	}

	// 2. 写出 target 跟踪的所有文件
	for _, p := range target.Paths() {
		if err := r.writeFile(ctx, target, p); err != nil {
			return err
		}
		idx.Unstage(p)
	}

	// 3. 删除 target 没有跟踪的文件
	files, err := r.tree.List()
	if err != nil {
		return err
	}
	for _, p := range files {
		if target.Tracks(p) || r.tree.Protected(p) {
			continue
		}
		if err := r.tree.Remove(p); err != nil {
			return err
		}
	}

	// 4. 暂存区整体替换
	idx.Reset()

	r.log.Debug().
		Str("from", head.ID().Short()).
		Str("to", target.ID().Short()).
		Int("files", len(target.Tracked)).
		Msg("snapshot restored")
	return nil
}

// RestoreFile 只还原一个文件
func (r *Restorer) RestoreFile(ctx context.Context, c *core.Commit, path string, idx *index.Index) error {
	if !c.Tracks(path) {
		return errs.E(errs.FileNotInCommit, "checkout", path)
	}
	if err := r.writeFile(ctx, c, path); err != nil {
		return err
	}
	idx.Unstage(path)
	return nil
}

func (r *Restorer) writeFile(ctx context.Context, c *core.Commit, path string) error {
	data, err := r.ReadTracked(ctx, c, path)
	if err != nil {
		return err
	}
	if err := r.tree.Write(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
