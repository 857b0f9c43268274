package repo

import (
	"context"
	"fmt"

	"tinygit/pkg/core"
	"tinygit/pkg/types"
)

// CheckoutBranch 把工作区切换到另一个分支的 tip
func (r *Repository) CheckoutBranch(ctx context.Context, name string) error {
	tip, err := r.refs.Target(name)
	if err != nil {
		return err
	}

	head, err := r.head(ctx)
	if err != nil {
		return err
	}
	target, err := r.graph.Load(ctx, tip)
	if err != nil {
		return err
	}

	if err := r.restorer.RestoreSnapshot(ctx, head, target, r.index); err != nil {
		return err
	}
	if err := r.refs.Switch(name); err != nil {
		return err
	}
	if err := r.persist(); err != nil {
		return err
	}

	r.log.Info().Str("branch", name).Str("commit", tip.Short()).Msg("checked out branch")
	return nil
}

// CheckoutFileFromHead 用 HEAD 里的版本覆盖工作区文件
func (r *Repository) CheckoutFileFromHead(ctx context.Context, path string) error {
	head, err := r.head(ctx)
	if err != nil {
		return err
	}
	return r.checkoutFile(ctx, head, path)
}

// CheckoutFileFromCommit 用指定 commit 里的版本覆盖工作区文件
// id 可以是完整 Hash 或者唯一前缀
func (r *Repository) CheckoutFileFromCommit(ctx context.Context, id types.HashPrefix, path string) error {
	c, err := r.graph.Resolve(ctx, id)
	if err != nil {
		return err
	}
	return r.checkoutFile(ctx, c, path)
}

func (r *Repository) checkoutFile(ctx context.Context, c *core.Commit, path string) error {
	rel, err := r.tree.Rel(path)
	if err != nil {
		// 仓库外的路径不可能被跟踪
		return r.restorer.RestoreFile(ctx, c, path, r.index)
	}
	if err := r.restorer.RestoreFile(ctx, c, rel, r.index); err != nil {
		return err
	}
	if err := r.index.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	r.log.Debug().Str("path", rel).Str("commit", c.ID().Short()).Msg("checked out file")
	return nil
}

// CreateBranch 在 HEAD 上创建分支，不切换
func (r *Repository) CreateBranch(ctx context.Context, name string) error {
	if err := r.refs.Create(name); err != nil {
		return err
	}
	if err := r.refs.Save(); err != nil {
		return fmt.Errorf("failed to save refs: %w", err)
	}
	r.projectRef(ctx, name)
	r.log.Info().Str("branch", name).Str("commit", r.refs.Head().Short()).Msg("branch created")
	return nil
}

// DeleteBranch 删除分支指针，commit 保留
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	if err := r.refs.Delete(name); err != nil {
		return err
	}
	if err := r.refs.Save(); err != nil {
		return fmt.Errorf("failed to save refs: %w", err)
	}
	r.projectRef(ctx, name)
	r.log.Info().Str("branch", name).Msg("branch deleted")
	return nil
}

// Reset 把工作区和当前分支一起移动到任意 commit
func (r *Repository) Reset(ctx context.Context, id types.HashPrefix) error {
	target, err := r.graph.Resolve(ctx, id)
	if err != nil {
		return err
	}
	head, err := r.head(ctx)
	if err != nil {
		return err
	}

	if err := r.restorer.RestoreSnapshot(ctx, head, target, r.index); err != nil {
		return err
	}
	r.refs.Advance(target.ID())
	if err := r.persist(); err != nil {
		return err
	}
	r.projectRef(ctx, r.refs.CurrentBranch())

	r.log.Info().Str("branch", r.refs.CurrentBranch()).Str("commit", target.ID().Short()).Msg("reset")
	return nil
}
