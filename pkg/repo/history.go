package repo

import (
	"context"
	"time"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/meta"
	"tinygit/pkg/types"
)

// CommitSummary 是日志里展示的一条 commit
type CommitSummary struct {
	ID      types.Hash
	Parents []types.Hash
	Message string
	Time    time.Time
}

// IsMerge 判断是否是 merge commit
func (s CommitSummary) IsMerge() bool { return len(s.Parents) > 1 }

func summarize(c *core.Commit) CommitSummary {
	return CommitSummary{
		ID:      c.ID(),
		Parents: c.ParentIDs(),
		Message: c.Message,
		Time:    c.Time(),
	}
}

func summarizeModel(m meta.CommitModel) CommitSummary {
	return CommitSummary{
		ID:      m.Hash,
		Parents: m.ParentHashes(),
		Message: m.Message,
		Time:    time.Unix(m.Timestamp, 0),
	}
}

// LogFromHead 沿第一父节点从 HEAD 回溯到 root
func (r *Repository) LogFromHead(ctx context.Context) ([]CommitSummary, error) {
	commits, err := r.graph.FirstParentLog(ctx, r.refs.Head())
	if err != nil {
		return nil, err
	}
	out := make([]CommitSummary, len(commits))
	for i, c := range commits {
		out[i] = summarize(c)
	}
	return out, nil
}

// LogAll 返回保存过的每一个 commit，最新的在前
func (r *Repository) LogAll(ctx context.Context) ([]CommitSummary, error) {
	if r.queryable(ctx) {
		models, err := r.proj.ListCommits(ctx, 0)
		if err == nil {
			out := make([]CommitSummary, len(models))
			for i, m := range models {
				out[i] = summarizeModel(m)
			}
			return out, nil
		}
		r.log.Warn().Err(err).Msg("projection query failed, scanning object store")
	}

	commits, err := r.graph.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CommitSummary, len(commits))
	for i, c := range commits {
		out[i] = summarize(c)
	}
	return out, nil
}

// FindByMessage 返回提交信息完全相同的 commit
func (r *Repository) FindByMessage(ctx context.Context, message string) ([]types.Hash, error) {
	var ids []types.Hash

	if r.queryable(ctx) {
		models, err := r.proj.FindCommitsByMessage(ctx, message)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Msg("projection query failed, scanning object store")
		case len(models) > 0:
			for _, m := range models {
				ids = append(ids, m.Hash)
			}
			return ids, nil
		}
		// 没有命中时再扫一遍对象库，投影可能落后
	}

	commits, err := r.graph.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range commits {
		if c.Message == message {
			ids = append(ids, c.ID())
		}
	}
	return found(ids, message)
}

func found(ids []types.Hash, message string) ([]types.Hash, error) {
	if len(ids) == 0 {
		return nil, errs.E(errs.NotFound, "find", message)
	}
	return ids, nil
}

// CommitDetail 是 Show 的结果
type CommitDetail struct {
	CommitSummary
	Files map[string]types.Hash
}

// Show 按完整 Hash 或前缀读取一个 commit
func (r *Repository) Show(ctx context.Context, id types.HashPrefix) (*CommitDetail, error) {
	c, err := r.graph.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CommitDetail{CommitSummary: summarize(c), Files: c.Snapshot()}, nil
}
