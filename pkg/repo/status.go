package repo

import (
	"context"
	"slices"
	"strings"
)

// ChangeReason 是未暂存修改的类型
type ChangeReason string

const (
	Modified ChangeReason = "modified"
	Deleted  ChangeReason = "deleted"
)

type FileChange struct {
	Path   string
	Reason ChangeReason
}

// Status 是 `tg status` 展示的全部信息，所有列表都已排序
type Status struct {
	Current   string
	Branches  []string
	Staged    []string
	Removed   []string
	Modified  []FileChange
	Untracked []string
}

// Status 比较 HEAD、暂存区和工作区
func (r *Repository) Status(ctx context.Context) (*Status, error) {
	head, err := r.head(ctx)
	if err != nil {
		return nil, err
	}
	files, err := r.tree.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Current:  r.refs.CurrentBranch(),
		Branches: r.refs.Names(),
		Staged:   r.index.StagedPaths(),
		Removed:  r.index.RemovedPaths(),
	}

	// 期望内容：HEAD 叠加暂存区
	expected := head.Snapshot()
	for p, e := range r.index.Snapshot() {
		expected[p] = e.Hash
	}

	// 标记删除后又重建的文件只算 untracked
	for p, want := range expected {
		got, ok := files[p]
		switch {
		case !ok && !r.index.IsRemoved(p):
			st.Modified = append(st.Modified, FileChange{Path: p, Reason: Deleted})
		case ok && got != want && !r.index.IsRemoved(p):
			st.Modified = append(st.Modified, FileChange{Path: p, Reason: Modified})
		}
	}
	slices.SortFunc(st.Modified, func(a, b FileChange) int {
		return strings.Compare(a.Path, b.Path)
	})

	for p := range files {
		if r.index.IsStaged(p) {
			continue
		}
		if !head.Tracks(p) || r.index.IsRemoved(p) {
			st.Untracked = append(st.Untracked, p)
		}
	}
	slices.Sort(st.Untracked)

	return st, nil
}

// Clean 判断工作区、暂存区和 HEAD 是否完全一致
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Removed) == 0 && len(s.Modified) == 0 && len(s.Untracked) == 0
}

