// Package graph 维护 commit DAG。
//
// commit 以 Hash 为 key 放在一个 arena 里，父节点只通过 Hash 引用，
// 所以遍历永远不会持有指针环。
package graph

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
)

type Graph struct {
	store storage.Store
	arena map[types.Hash]*core.Commit
}

func New(store storage.Store) *Graph {
	return &Graph{
		store: store,
		arena: make(map[types.Hash]*core.Commit),
	}
}

// Load 读取一个 commit，优先命中 arena
func (g *Graph) Load(ctx context.Context, hash types.Hash) (*core.Commit, error) {
	if c, ok := g.arena[hash]; ok {
		return c, nil
	}

	data, err := storage.ReadAll(ctx, g.store, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errs.Wrap(errs.ObjectNotFound, "load commit", hash.Short(), err)
		}
		return nil, fmt.Errorf("failed to read commit %s: %w", hash.Short(), err)
	}

	if core.DetectType(data) != core.TypeCommit {
		return nil, errs.E(errs.ObjectNotFound, "load commit", hash.Short())
	}
	c, err := core.DecodeCommit(data)
	if err != nil {
		return nil, err
	}
	// 内容恰好是一段 commit 编码的 blob: identity 和存放它的 Hash 对不上
	if c.ID() != hash {
		return nil, errs.E(errs.ObjectNotFound, "load commit", hash.Short())
	}

	g.arena[hash] = c
	return c, nil
}

// Save 持久化 commit；同样的 identity 只会写一次
func (g *Graph) Save(ctx context.Context, c *core.Commit) error {
	if err := g.store.Put(ctx, c); err != nil {
		return fmt.Errorf("failed to save commit %s: %w", c.ID().Short(), err)
	}
	g.arena[c.ID()] = c
	return nil
}

// Resolve 把完整 Hash 或 >= 6 位的前缀解析成 commit
func (g *Graph) Resolve(ctx context.Context, id types.HashPrefix) (*core.Commit, error) {
	id = id.Normalize()

	var hash types.Hash
	if types.Hash(id).IsValid() {
		hash = types.Hash(id)
	} else {
		h, err := g.store.ExpandHash(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound),
			errors.Is(err, storage.ErrAmbiguousHash),
			errors.Is(err, storage.ErrPrefixTooShort):
			return nil, errs.Wrap(errs.AmbiguousOrMissingID, "resolve", id.String(), err)
		case err != nil:
			return nil, err
		}
		hash = h
	}

	c, err := g.Load(ctx, hash)
	if errs.KindOf(err) == errs.ObjectNotFound {
		return nil, errs.Wrap(errs.AmbiguousOrMissingID, "resolve", id.String(), err)
	}
	return c, err
}

// Ancestors 返回 from 的全部祖先 (包含自己)，沿两条父边遍历
func (g *Graph) Ancestors(ctx context.Context, from types.Hash) (map[types.Hash]struct{}, error) {
	seen := map[types.Hash]struct{}{from: {}}
	stack := []types.Hash{from}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c, err := g.Load(ctx, h)
		if err != nil {
			return nil, err
		}
		for _, p := range c.ParentIDs() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			stack = append(stack, p)
		}
	}
	return seen, nil
}

// MergeBase 求 a 和 b 的分叉点
//
// 先收集 a 的祖先集合，再从 b 开始 BFS，第一个落在集合里的节点就是结果。
// 多个 merge 点时这不一定是严格意义上的 LCA，平手按 b 这一侧的 BFS 顺序决定。
func (g *Graph) MergeBase(ctx context.Context, a, b types.Hash) (types.Hash, error) {
	ancestors, err := g.Ancestors(ctx, a)
	if err != nil {
		return "", err
	}

	seen := map[types.Hash]struct{}{b: {}}
	queue := []types.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		if _, ok := ancestors[h]; ok {
			return h, nil
		}

		c, err := g.Load(ctx, h)
		if err != nil {
			return "", err
		}
		for _, p := range c.ParentIDs() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}

	// 所有 commit 都来自同一个 root，走到这里说明数据损坏
	return "", fmt.Errorf("no common ancestor for %s and %s", a.Short(), b.Short())
}

// FirstParentLog 沿第一父节点回溯到 root
func (g *Graph) FirstParentLog(ctx context.Context, from types.Hash) ([]*core.Commit, error) {
	var out []*core.Commit
	h, ok := from, true
	for ok {
		c, err := g.Load(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		h, ok = c.FirstParent()
	}
	return out, nil
}

// All 扫描对象库里的全部 commit，按时间倒序 (同一时间按 Hash 排)
func (g *Graph) All(ctx context.Context) ([]*core.Commit, error) {
	var out []*core.Commit
	err := g.store.Walk(ctx, func(h types.Hash) error {
		if c, ok := g.arena[h]; ok {
			out = append(out, c)
			return nil
		}
		data, err := storage.ReadAll(ctx, g.store, h)
		if err != nil {
			return err
		}
		if core.DetectType(data) != core.TypeCommit {
			return nil
		}
		c, err := core.DecodeCommit(data)
		if err != nil {
			return err
		}
		if c.ID() != h {
			return nil
		}
		g.arena[h] = c
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk object store: %w", err)
	}

	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst 按时间倒序排序
func SortNewestFirst(commits []*core.Commit) {
	slices.SortFunc(commits, func(a, b *core.Commit) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}
