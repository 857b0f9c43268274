package repo

import (
	"context"

	"tinygit/pkg/errs"
	"tinygit/pkg/merge"
)

// Merge 把另一个分支合并进当前分支
// 冲突不是错误：Outcome.Conflicted 为 true，merge commit 照常生成
func (r *Repository) Merge(ctx context.Context, branch string) (merge.Outcome, error) {
	if !r.index.IsEmpty() {
		return merge.Outcome{}, errs.E(errs.UncommittedChanges, "merge", branch)
	}
	otherID, ok := r.refs.Lookup(branch)
	if !ok {
		return merge.Outcome{}, errs.E(errs.UnknownBranch, "merge", branch)
	}
	headID := r.refs.Head()
	if otherID == headID {
		return merge.Outcome{}, errs.E(errs.CannotMergeSelf, "merge", branch)
	}

	base, err := r.graph.MergeBase(ctx, headID, otherID)
	if err != nil {
		return merge.Outcome{}, err
	}
	log := r.log.With().
		Str("branch", branch).
		Str("head", headID.Short()).
		Str("other", otherID.Short()).
		Str("base", base.Short()).
		Logger()

	kind := merge.Decide(base, headID, otherID)
	switch kind {
	case merge.AlreadyAncestor:
		log.Info().Msg("given branch is an ancestor, nothing to merge")
		return merge.Outcome{Kind: kind, Commit: headID}, nil

	case merge.FastForward:
		head, err := r.graph.Load(ctx, headID)
		if err != nil {
			return merge.Outcome{}, err
		}
		other, err := r.graph.Load(ctx, otherID)
		if err != nil {
			return merge.Outcome{}, err
		}
		if err := r.restorer.RestoreSnapshot(ctx, head, other, r.index); err != nil {
			return merge.Outcome{}, err
		}
		r.refs.Advance(otherID)
		if err := r.persist(); err != nil {
			return merge.Outcome{}, err
		}
		r.projectRef(ctx, r.refs.CurrentBranch())
		log.Info().Msg("fast-forwarded")
		return merge.Outcome{Kind: kind, Commit: otherID}, nil
	}

	// 三路合并
	split, err := r.graph.Load(ctx, base)
	if err != nil {
		return merge.Outcome{}, err
	}
	head, err := r.graph.Load(ctx, headID)
	if err != nil {
		return merge.Outcome{}, err
	}
	other, err := r.graph.Load(ctx, otherID)
	if err != nil {
		return merge.Outcome{}, err
	}

	plan := merge.NewPlan(split, head, other)
	conflicted, err := r.merger.Apply(ctx, plan, r.index)
	if err != nil {
		return merge.Outcome{}, err
	}

	c, err := r.commit(ctx, merge.Message(branch, r.refs.CurrentBranch()), otherID)
	if err != nil {
		return merge.Outcome{}, err
	}

	log.Info().Int("changes", len(plan.Changes)).Bool("conflicted", conflicted).Msg("merged")
	return merge.Outcome{Kind: kind, Conflicted: conflicted, Commit: c.ID()}, nil
}
