package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tinygit/pkg/core"
	"tinygit/pkg/errs"
	"tinygit/pkg/meta"
	"tinygit/pkg/storage/disk"
	"tinygit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFromHead(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	c1 := mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})
	c2 := mustCommitFiles(t, r, "c2", map[string]string{"a": "2"})

	logs, err := r.LogFromHead(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, c2, logs[0].ID)
	assert.Equal(t, c1, logs[1].ID)
	assert.Equal(t, core.InitialMessage, logs[2].Message)
	assert.True(t, logs[0].Time.After(logs[1].Time))
	assert.Zero(t, logs[2].Time.Unix())
}

func TestLogFromHead_MergeFollowsFirstParent(t *testing.T) {
	ctx := context.Background()
	r := divergent(t,
		map[string]string{"f": "1"},
		map[string]string{"ours": "o"},
		map[string]string{"theirs": "t"},
		nil, nil,
	)
	_, err := r.Merge(ctx, "feature")
	require.NoError(t, err)

	logs, err := r.LogFromHead(ctx)
	require.NoError(t, err)

	var messages []string
	for _, l := range logs {
		messages = append(messages, l.Message)
	}
	assert.Equal(t, []string{"Merged feature into master.", "ours", "split", core.InitialMessage}, messages)
	assert.True(t, logs[0].IsMerge())
}

func TestFindByMessage(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	a := mustCommitFiles(t, r, "same", map[string]string{"a": "1"})
	b := mustCommitFiles(t, r, "same", map[string]string{"a": "2"})
	mustCommitFiles(t, r, "other", map[string]string{"a": "3"})

	ids, err := r.FindByMessage(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{b, a}, ids, "最新的在前")

	_, err = r.FindByMessage(ctx, "nothing")
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestShow(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	c1 := mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	d, err := r.Show(ctx, types.HashPrefix(c1.String()[:6]))
	require.NoError(t, err)
	assert.Equal(t, c1, d.ID)
	assert.Equal(t, map[string]types.Hash{"a": blobHash("1")}, d.Files)
}

func TestProjection(t *testing.T) {
	ctx := context.Background()
	proj := setupProjection(t)
	r := setupRepo(t, WithProjection(proj))

	c1 := mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})
	require.NoError(t, r.CreateBranch(ctx, "dev"))
	c2 := mustCommitFiles(t, r, "c2", map[string]string{"a": "2"})

	n, err := proj.CountCommits(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	ref, err := proj.GetRef(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, c2, ref.CommitHash)
	ref, err = proj.GetRef(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, c1, ref.CommitHash)

	// 投影和对象库扫描的结果一致
	fromSQL, err := r.LogAll(ctx)
	require.NoError(t, err)
	plain, err := Open(r.Root(), r.store)
	require.NoError(t, err)
	fromStore, err := plain.LogAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids(fromStore), ids(fromSQL))

	found, err := r.FindByMessage(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{c1}, found)

	require.NoError(t, r.DeleteBranch(ctx, "dev"))
	refs, err := proj.ListRefs(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "master", refs[0].Name)
}

func TestEnsureProjection(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	r := setupRepoAt(t, root)
	mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	// 已有仓库第一次启用投影
	proj := setupProjection(t)
	store, err := disk.NewAdapter(filepath.Join(root, MetaDir))
	require.NoError(t, err)
	withProj, err := Open(root, store, WithProjection(proj))
	require.NoError(t, err)

	require.NoError(t, withProj.EnsureProjection(ctx))
	n, err := proj.CountCommits(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ref, err := proj.GetRef(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, r.HeadID(), ref.CommitHash)

	// 第二次什么也不做
	require.NoError(t, withProj.EnsureProjection(ctx))
}

func TestLogAll_FileHoldingCommitBytes(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	c1 := mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	loaded, err := r.graph.Load(ctx, c1)
	require.NoError(t, err)
	mustCommitFiles(t, r, "copy", map[string]string{"copy.bin": string(loaded.Bytes())})

	// 用新的 Repository 打开，arena 为空，只能扫描对象库
	plain, err := Open(r.Root(), r.store)
	require.NoError(t, err)

	logs, err := plain.LogAll(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	found, err := plain.FindByMessage(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{c1}, found)
}

func TestEnsureProjection_CatchesUpMissedCommits(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	proj := setupProjection(t)
	r := setupRepoAt(t, root, WithProjection(proj))
	mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	// meta 关闭期间提交
	store, err := disk.NewAdapter(filepath.Join(root, MetaDir))
	require.NoError(t, err)
	plain, err := Open(root, store)
	require.NoError(t, err)
	c2 := mustCommitFiles(t, plain, "c2-without-meta", map[string]string{"a": "2"})

	reopened, err := Open(root, store, WithProjection(proj))
	require.NoError(t, err)

	// 投影没有命中时退回扫描对象库
	found, err := reopened.FindByMessage(ctx, "c2-without-meta")
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{c2}, found)

	require.NoError(t, reopened.EnsureProjection(ctx))
	n, err := proj.CountCommits(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	logs, err := reopened.LogAll(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, c2, logs[0].ID)

	ref, err := proj.GetRef(ctx, "master")
	require.NoError(t, err)
	assert.Equal(t, c2, ref.CommitHash)
}

// flakyProjection 让 IndexCommit 按需失败
type flakyProjection struct {
	*meta.Repository
	fail bool
}

func (f *flakyProjection) IndexCommit(ctx context.Context, c *core.Commit) error {
	if f.fail {
		return errors.New("database is locked")
	}
	return f.Repository.IndexCommit(ctx, c)
}

func TestLogAll_ResyncsAfterFailedProjection(t *testing.T) {
	ctx := context.Background()
	proj := &flakyProjection{Repository: setupProjection(t)}
	r := setupRepo(t, WithProjection(proj))
	mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	proj.fail = true
	c2 := mustCommitFiles(t, r, "c2", map[string]string{"a": "2"})
	proj.fail = false

	logs, err := r.LogAll(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, c2, logs[0].ID)

	n, err := proj.CountCommits(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestLogAll_FallsBackWhileProjectionFails(t *testing.T) {
	ctx := context.Background()
	proj := &flakyProjection{Repository: setupProjection(t), fail: true}
	r := setupRepo(t, WithProjection(proj))
	c1 := mustCommitFiles(t, r, "c1", map[string]string{"a": "1"})

	logs, err := r.LogAll(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	found, err := r.FindByMessage(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []types.Hash{c1}, found)
}

func ids(logs []CommitSummary) []types.Hash {
	out := make([]types.Hash, len(logs))
	for i, l := range logs {
		out[i] = l.ID
	}
	return out
}
