package repo

import (
	"context"
	"fmt"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
)

// StageFile 把工作区文件加入暂存区
// 内容与 HEAD 一致时不记录，并撤销之前的暂存
func (r *Repository) StageFile(ctx context.Context, path string) error {
	rel, err := r.relPath("add", path)
	if err != nil {
		return err
	}
	// 被忽略的路径 (包括 .tg 自己) 对工作区不可见，不能进入快照
	if r.tree.Ignored(rel) || !r.tree.Exists(rel) {
		return errs.E(errs.FileNotFound, "add", rel)
	}

	head, err := r.head(ctx)
	if err != nil {
		return err
	}

	data, err := r.tree.Read(rel)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	blob := core.NewBlob(data)

	// 先落盘 blob，commit 的时候不再读工作区
	if head.IsModified(rel, blob.ID()) {
		if err := r.store.Put(ctx, blob); err != nil {
			return fmt.Errorf("failed to store blob for %s: %w", rel, err)
		}
	}

	staged := r.index.Stage(rel, blob.ID(), blob.Size(), head)
	if err := r.index.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	r.log.Debug().Str("path", rel).Str("blob", blob.ID().Short()).Bool("staged", staged).Msg("add")
	return nil
}

// RemoveFile 撤销暂存，或者标记删除并从工作区删除
func (r *Repository) RemoveFile(ctx context.Context, path string) error {
	rel, err := r.tree.Rel(path)
	if err != nil {
		return errs.Wrap(errs.NothingToRemove, "rm", path, err)
	}

	head, err := r.head(ctx)
	if err != nil {
		return err
	}

	switch {
	case r.index.Unstage(rel):
		r.log.Debug().Str("path", rel).Msg("unstaged")
	case head.Tracks(rel):
		r.index.MarkRemoved(rel)
		if err := r.tree.Remove(rel); err != nil {
			return err
		}
		r.log.Debug().Str("path", rel).Msg("staged for removal")
	default:
		return errs.E(errs.NothingToRemove, "rm", rel)
	}

	if err := r.index.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// Commit 用 HEAD 加上暂存区生成新的 commit
func (r *Repository) Commit(ctx context.Context, message string) (types.Hash, error) {
	if message == "" {
		return "", errs.E(errs.EmptyMessage, "commit", "")
	}
	if r.index.IsEmpty() {
		return "", errs.E(errs.NoChanges, "commit", "")
	}
	c, err := r.commit(ctx, message, "")
	if err != nil {
		return "", err
	}
	return c.ID(), nil
}

// commit 构造、备份并保存 commit，然后移动当前分支、清空暂存区
// second 不为空时生成 merge commit
func (r *Repository) commit(ctx context.Context, message string, second types.Hash) (*core.Commit, error) {
	head, err := r.head(ctx)
	if err != nil {
		return nil, err
	}

	tracked := head.Snapshot()
	origin := head.Origins()
	staged := r.index.Snapshot()
	for p, e := range staged {
		tracked[p] = e.Hash
		delete(origin, p) // 新暂存的文件备份在新 commit 下
	}
	for _, p := range r.index.RemovedPaths() {
		delete(tracked, p)
		delete(origin, p)
	}

	parents := []types.Hash{head.ID()}
	if second != "" {
		parents = append(parents, second)
	}

	c, err := core.NewCommit(parents, message, r.now().Unix(), tracked, origin)
	if err != nil {
		return nil, err
	}

	// 1. 先写备份，保证已保存的 commit 不会引用缺失的文件
	for p, e := range staged {
		data, err := storage.ReadAll(ctx, r.store, e.Hash)
		if err != nil {
			if isNotFound(err) {
				return nil, errs.Wrap(errs.ObjectNotFound, "commit", p, err)
			}
			return nil, fmt.Errorf("failed to read staged blob for %s: %w", p, err)
		}
		if err := r.store.PutFile(ctx, c.ID(), p, data); err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", p, err)
		}
	}

	// 2. 保存 commit，移动分支，清空暂存区
	if err := r.graph.Save(ctx, c); err != nil {
		return nil, err
	}
	r.refs.Advance(c.ID())
	r.index.Reset()
	if err := r.persist(); err != nil {
		return nil, err
	}

	r.project(ctx, c)
	r.projectRef(ctx, r.refs.CurrentBranch())

	r.log.Info().
		Str("commit", c.ID().Short()).
		Str("branch", r.refs.CurrentBranch()).
		Int("files", len(tracked)).
		Bool("merge", c.IsMerge()).
		Msg("committed")
	return c, nil
}
