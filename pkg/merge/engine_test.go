package merge

import (
	"context"
	"path/filepath"
	"testing"

	"tinygit/pkg/checkout"
	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/ignore"
	"tinygit/pkg/index"
	"tinygit/pkg/storage/disk"
	"tinygit/pkg/types"
	"tinygit/pkg/worktree"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	store  *disk.Adapter
	tree   *worktree.Worktree
	idx    *index.Index
	engine *Engine
}

func setup(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	meta := filepath.Join(root, ".tg")

	store, err := disk.NewAdapter(meta)
	require.NoError(t, err)
	m, err := ignore.NewMatcher(root)
	require.NoError(t, err)
	idx, err := index.NewIndex(filepath.Join(meta, "index.json"))
	require.NoError(t, err)

	tree := worktree.New(root, m)
	restorer := checkout.NewRestorer(store, tree, zerolog.Nop())
	return &env{
		store:  store,
		tree:   tree,
		idx:    idx,
		engine: NewEngine(store, tree, restorer, zerolog.Nop()),
	}
}

// mustCommit 保存 blob、备份和 commit
func (e *env) mustCommit(t *testing.T, msg string, files map[string]string) *core.Commit {
	t.Helper()
	ctx := context.Background()

	tracked := make(map[string]types.Hash, len(files))
	for p, content := range files {
		tracked[p] = core.CalculateBlobHash([]byte(content))
	}
	c, err := core.NewCommit(nil, msg, 0, tracked, nil)
	require.NoError(t, err)
	for p, content := range files {
		require.NoError(t, e.store.PutFile(ctx, c.ID(), p, []byte(content)))
	}
	require.NoError(t, e.store.Put(ctx, c))
	return c
}

// checkoutTree 让工作区和 commit 的内容一致
func (e *env) checkoutTree(t *testing.T, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, e.tree.Write(p, []byte(content)))
	}
}

func (e *env) read(t *testing.T, path string) string {
	t.Helper()
	data, err := e.tree.Read(path)
	require.NoError(t, err)
	return string(data)
}

func TestApply_ConflictAndRemovalSymmetry(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	headFiles := map[string]string{"f.txt": "A", "k.txt": "K2"}
	split := e.mustCommit(t, "split", map[string]string{"f.txt": "C", "g.txt": "G", "k.txt": "K"})
	head := e.mustCommit(t, "head", headFiles)
	other := e.mustCommit(t, "other", map[string]string{"f.txt": "B", "g.txt": "G", "k.txt": "K", "n.txt": "new"})
	e.checkoutTree(t, headFiles)

	plan := NewPlan(split, head, other)
	conflicted, err := e.engine.Apply(ctx, plan, e.idx)
	require.NoError(t, err)
	assert.True(t, conflicted)

	// 1. 三方都不同，写入冲突标记并暂存
	assert.Equal(t, "<<<<<<< HEAD\nA\n=======\nB\n>>>>>>>\n", e.read(t, "f.txt"))
	assert.True(t, e.idx.IsStaged("f.txt"))

	// 2. head 删除、other 未改动的文件保持删除
	assert.False(t, e.tree.Exists("g.txt"))
	assert.False(t, e.idx.IsStaged("g.txt"))

	// 3. 只有 head 改过的文件保持 head 的版本
	assert.Equal(t, "K2", e.read(t, "k.txt"))
	assert.False(t, e.idx.IsStaged("k.txt"))

	// 4. other 新增的文件被取过来
	assert.Equal(t, "new", e.read(t, "n.txt"))
	entry, ok := e.idx.Lookup("n.txt")
	require.True(t, ok)
	assert.Equal(t, core.CalculateBlobHash([]byte("new")), entry.Hash)

	// 暂存的 blob 必须在对象库里
	has, err := e.store.Has(ctx, entry.Hash)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestApply_Remove(t *testing.T) {
	e := setup(t)

	files := map[string]string{"r.txt": "R", "keep.txt": "1"}
	split := e.mustCommit(t, "split", files)
	head := e.mustCommit(t, "head", files)
	other := e.mustCommit(t, "other", map[string]string{"keep.txt": "1"})
	e.checkoutTree(t, files)

	conflicted, err := e.engine.Apply(context.Background(), NewPlan(split, head, other), e.idx)
	require.NoError(t, err)
	assert.False(t, conflicted)
	assert.False(t, e.tree.Exists("r.txt"))
	assert.True(t, e.idx.IsRemoved("r.txt"))
	assert.Equal(t, "1", e.read(t, "keep.txt"))
}

func TestApply_UntrackedFileGuard(t *testing.T) {
	e := setup(t)

	split := e.mustCommit(t, "split", map[string]string{"f.txt": "C"})
	head := e.mustCommit(t, "head", map[string]string{"f.txt": "C"})
	other := e.mustCommit(t, "other", map[string]string{"f.txt": "D", "u.txt": "theirs"})
	e.checkoutTree(t, map[string]string{"f.txt": "C", "u.txt": "mine"})

	_, err := e.engine.Apply(context.Background(), NewPlan(split, head, other), e.idx)
	assert.ErrorIs(t, err, errs.UntrackedFileConflict)

	// 没有任何文件被修改
	assert.Equal(t, "C", e.read(t, "f.txt"))
	assert.Equal(t, "mine", e.read(t, "u.txt"))
	assert.True(t, e.idx.IsEmpty())
}

func TestCheckUntracked_IgnoresUnchangedOtherFiles(t *testing.T) {
	e := setup(t)

	// other 里的 u.txt 与 split 相同，不会被覆盖
	split := e.mustCommit(t, "split", map[string]string{"u.txt": "same"})
	head := e.mustCommit(t, "head", map[string]string{})
	other := e.mustCommit(t, "other", map[string]string{"u.txt": "same"})
	e.checkoutTree(t, map[string]string{"u.txt": "scratch"})

	assert.NoError(t, e.engine.CheckUntracked(NewPlan(split, head, other)))
}
