package merge

import (
	"context"
	"fmt"

	"tinygit/pkg/checkout"
	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/index"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
	"tinygit/pkg/worktree"

	"github.com/rs/zerolog"
)

// Kind 描述合并的结果类型
type Kind uint8

const (
	// FastForward: HEAD 就是分叉点，直接前进到 other
	FastForward Kind = iota + 1
	// AlreadyAncestor: other 已经是 HEAD 的祖先，什么也不做
	AlreadyAncestor
	// Merged: 真正的三路合并，生成了一个 merge commit
	Merged
)

func (k Kind) String() string {
	switch k {
	case FastForward:
		return "fast-forward"
	case AlreadyAncestor:
		return "already-ancestor"
	case Merged:
		return "merged"
	default:
		return "unknown"
	}
}

// Outcome 是一次合并的结果，冲突不是错误
type Outcome struct {
	Kind       Kind
	Conflicted bool
	Commit     types.Hash // 合并后 HEAD 指向的 commit
}

// Decide 根据分叉点判断合并类型
func Decide(base, head, other types.Hash) Kind {
	switch base {
	case other:
		return AlreadyAncestor
	case head:
		return FastForward
	default:
		return Merged
	}
}

// Message 返回 merge commit 的提交信息
func Message(other, current string) string {
	return fmt.Sprintf("Merged %s into %s.", other, current)
}

type Engine struct {
	store    storage.Backend
	tree     *worktree.Worktree
	restorer *checkout.Restorer
	log      zerolog.Logger
}

func NewEngine(store storage.Backend, tree *worktree.Worktree, restorer *checkout.Restorer, log zerolog.Logger) *Engine {
	return &Engine{store: store, tree: tree, restorer: restorer, log: log}
}

// CheckUntracked 在修改之前扫描工作区：
// HEAD 没有跟踪、但 other 跟踪且内容相对 split 有变化的文件会被覆盖，拒绝合并
func (e *Engine) CheckUntracked(plan *Plan) error {
	files, err := e.tree.List()
	if err != nil {
		return err
	}
	for _, p := range files {
		if plan.Head.Tracks(p) {
			continue
		}
		o, ok := plan.Other.Lookup(p)
		if !ok {
			continue
		}
		if s, ok := plan.Split.Lookup(p); !ok || s != o {
			return errs.E(errs.UntrackedFileConflict, "merge", p)
		}
	}
	return nil
}

// Apply 执行计划：写工作区并更新暂存区，返回是否有冲突
func (e *Engine) Apply(ctx context.Context, plan *Plan, idx *index.Index) (bool, error) {
	if err := e.CheckUntracked(plan); err != nil {
		return false, err
	}

	conflicted := false
	for _, c := range plan.Changes {
		switch c.Action {
		case TakeOther:
			data, err := e.restorer.ReadTracked(ctx, plan.Other, c.Path)
			if err != nil {
				return false, err
			}
			if err := e.stage(ctx, c.Path, data, plan.Head, idx); err != nil {
				return false, err
			}

		case Remove:
			idx.MarkRemoved(c.Path)
			if err := e.tree.Remove(c.Path); err != nil {
				return false, err
			}

		case Conflict:
			head, err := e.side(ctx, plan.Head, c.Path)
			if err != nil {
				return false, err
			}
			other, err := e.side(ctx, plan.Other, c.Path)
			if err != nil {
				return false, err
			}
			if err := e.stage(ctx, c.Path, ConflictContent(head, other), plan.Head, idx); err != nil {
				return false, err
			}
			conflicted = true
			e.log.Debug().Str("path", c.Path).Msg("merge conflict")
		}
	}
	return conflicted, nil
}

// side 读取一侧的字节，未跟踪返回 nil
func (e *Engine) side(ctx context.Context, c *core.Commit, path string) ([]byte, error) {
	if !c.Tracks(path) {
		return nil, nil
	}
	return e.restorer.ReadTracked(ctx, c, path)
}

// stage 写工作区文件、保存 blob 并暂存
func (e *Engine) stage(ctx context.Context, path string, data []byte, head *core.Commit, idx *index.Index) error {
	if err := e.tree.Write(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	blob := core.NewBlob(data)
	if err := e.store.Put(ctx, blob); err != nil {
		return fmt.Errorf("failed to store blob for %s: %w", path, err)
	}
	idx.Stage(path, blob.ID(), blob.Size(), head)
	return nil
}
