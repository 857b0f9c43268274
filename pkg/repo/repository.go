// Package repo 是版本控制引擎对外的入口。
//
// Repository 持有一个仓库的全部状态 (暂存区、分支、commit 图)，
// 每个用户操作都是它的一个方法，返回结构化的错误 (见 pkg/errs)。
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tinygit/pkg/checkout"
	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/graph"
	"tinygit/pkg/ignore"
	"tinygit/pkg/index"
	"tinygit/pkg/merge"
	"tinygit/pkg/meta"
	"tinygit/pkg/refs"
	"tinygit/pkg/storage"
	"tinygit/pkg/types"
	"tinygit/pkg/worktree"

	"github.com/rs/zerolog"
)

const (
	MetaDir   = ".tg"
	RefsFile  = "refs.json"
	IndexFile = "index.json"
)

// Projection 是 commit 和分支的可查询副本 (见 pkg/meta)
// 写失败只打日志，权威数据始终是对象库和 refs.json
type Projection interface {
	IndexCommit(ctx context.Context, c *core.Commit) error
	SaveRef(ctx context.Context, name string, hash types.Hash) error
	DeleteRef(ctx context.Context, name string) error
	ListCommits(ctx context.Context, limit int) ([]meta.CommitModel, error)
	FindCommitsByMessage(ctx context.Context, message string) ([]meta.CommitModel, error)
	CountCommits(ctx context.Context) (int64, error)
}

type Repository struct {
	root    string
	metaDir string

	store    storage.Backend
	graph    *graph.Graph
	tree     *worktree.Worktree
	restorer *checkout.Restorer
	merger   *merge.Engine

	index *index.Index
	refs  *refs.Manager

	proj Projection
	log  zerolog.Logger
	now  func() time.Time

	// stale 表示有写入投影失败，查询前需要重新同步
	stale bool
}

type Option func(*Repository)

func WithLogger(log zerolog.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// WithClock 替换时间来源 (测试用)
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithProjection 启用 SQL 投影
func WithProjection(p Projection) Option {
	return func(r *Repository) { r.proj = p }
}

// IsInitialized 判断 root 下是否已经有仓库
func IsInitialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, MetaDir, RefsFile))
	return err == nil
}

func newRepository(root string, store storage.Backend, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	r := &Repository{
		root:    abs,
		metaDir: filepath.Join(abs, MetaDir),
		store:   store,
		graph:   graph.New(store),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", "repo").Logger()

	matcher, err := ignore.NewMatcher(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}
	r.tree = worktree.New(abs, matcher)
	r.restorer = checkout.NewRestorer(store, r.tree, r.log)
	r.merger = merge.NewEngine(store, r.tree, r.restorer, r.log)
	return r, nil
}

// Init 在 root 下创建仓库：root commit + master 分支 + 空暂存区
func Init(ctx context.Context, root string, store storage.Backend, opts ...Option) (*Repository, error) {
	if IsInitialized(root) {
		return nil, errs.E(errs.AlreadyInitialized, "init", root)
	}

	r, err := newRepository(root, store, opts...)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.metaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetaDir, err)
	}

	initial, err := core.NewInitialCommit()
	if err != nil {
		return nil, err
	}
	if err := r.graph.Save(ctx, initial); err != nil {
		return nil, err
	}

	r.refs = refs.NewManager(filepath.Join(r.metaDir, RefsFile))
	r.refs.Init(refs.DefaultBranch, initial.ID())

	r.index, err = index.NewIndex(filepath.Join(r.metaDir, IndexFile))
	if err != nil {
		return nil, err
	}
	if err := r.persist(); err != nil {
		return nil, err
	}

	r.project(ctx, initial)
	r.projectRef(ctx, refs.DefaultBranch)

	r.log.Info().Str("root", r.root).Str("commit", initial.ID().Short()).Msg("repository initialized")
	return r, nil
}

// Open 打开已有的仓库
func Open(root string, store storage.Backend, opts ...Option) (*Repository, error) {
	if !IsInitialized(root) {
		return nil, errs.E(errs.NotInitialized, "open", root)
	}

	r, err := newRepository(root, store, opts...)
	if err != nil {
		return nil, err
	}
	if r.refs, err = refs.Load(filepath.Join(r.metaDir, RefsFile)); err != nil {
		return nil, err
	}
	if r.index, err = index.NewIndex(filepath.Join(r.metaDir, IndexFile)); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) Root() string { return r.root }

// CurrentBranch 返回当前分支名
func (r *Repository) CurrentBranch() string { return r.refs.CurrentBranch() }

// HeadID 返回 HEAD 指向的 commit
func (r *Repository) HeadID() types.Hash { return r.refs.Head() }

// Branches 返回排好序的分支名
func (r *Repository) Branches() []string { return r.refs.Names() }

func (r *Repository) head(ctx context.Context) (*core.Commit, error) {
	return r.graph.Load(ctx, r.refs.Head())
}

// persist 把分支和暂存区写回磁盘
func (r *Repository) persist() error {
	if err := r.refs.Save(); err != nil {
		return fmt.Errorf("failed to save refs: %w", err)
	}
	if err := r.index.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// relPath 把用户输入转换为仓库内路径，路径非法视为文件不存在
func (r *Repository) relPath(op, path string) (string, error) {
	rel, err := r.tree.Rel(path)
	if err != nil {
		return "", errs.Wrap(errs.FileNotFound, op, path, err)
	}
	return rel, nil
}

func (r *Repository) project(ctx context.Context, c *core.Commit) {
	if r.proj == nil {
		return
	}
	if err := r.proj.IndexCommit(ctx, c); err != nil {
		r.stale = true
		r.log.Warn().Err(err).Str("commit", c.ID().Short()).Msg("failed to project commit")
	}
}

func (r *Repository) projectRef(ctx context.Context, name string) {
	if r.proj == nil {
		return
	}
	h, ok := r.refs.Lookup(name)
	var err error
	if ok {
		err = r.proj.SaveRef(ctx, name, h)
	} else {
		err = r.proj.DeleteRef(ctx, name)
	}
	if err != nil {
		r.stale = true
		r.log.Warn().Err(err).Str("branch", name).Msg("failed to project branch")
	}
}

// SyncProjection 把对象库里的全部 commit 和分支重新写入投影
// IndexCommit 是幂等的，已经存在的 commit 不会重复写
func (r *Repository) SyncProjection(ctx context.Context) error {
	if r.proj == nil {
		return nil
	}
	commits, err := r.graph.All(ctx)
	if err != nil {
		return err
	}
	return r.syncProjection(ctx, commits)
}

func (r *Repository) syncProjection(ctx context.Context, commits []*core.Commit) error {
	for _, c := range commits {
		if err := r.proj.IndexCommit(ctx, c); err != nil {
			return fmt.Errorf("failed to project commit %s: %w", c.ID().Short(), err)
		}
	}
	for _, name := range r.refs.Names() {
		h, _ := r.refs.Lookup(name)
		if err := r.proj.SaveRef(ctx, name, h); err != nil {
			return fmt.Errorf("failed to project branch %s: %w", name, err)
		}
	}
	r.stale = false
	r.log.Info().Int("commits", len(commits)).Msg("projection synced")
	return nil
}

// EnsureProjection 投影里的 commit 比对象库少时补齐
// 例如 meta 关闭期间产生的 commit
func (r *Repository) EnsureProjection(ctx context.Context) error {
	if r.proj == nil {
		return nil
	}
	n, err := r.proj.CountCommits(ctx)
	if err != nil {
		r.stale = true
		return err
	}
	commits, err := r.graph.All(ctx)
	if err != nil {
		return err
	}
	if n >= int64(len(commits)) && !r.stale {
		return nil
	}
	// 同步失败时保持 stale，之后的查询会重试或退回扫描对象库
	r.stale = true
	return r.syncProjection(ctx, commits)
}

// queryable 判断查询能否走投影
func (r *Repository) queryable(ctx context.Context) bool {
	if r.proj == nil {
		return false
	}
	if r.stale {
		if err := r.SyncProjection(ctx); err != nil {
			r.log.Warn().Err(err).Msg("projection resync failed, scanning object store")
			return false
		}
	}
	return true
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
