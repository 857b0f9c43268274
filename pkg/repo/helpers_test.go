package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tinygit/pkg/core"
	"tinygit/pkg/meta"
	"tinygit/pkg/storage/disk"
	"tinygit/pkg/types"

	"github.com/stretchr/testify/require"
)

// fakeClock 每次调用前进一分钟，保证 commit 时间戳可重复
func fakeClock() func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

// setupRepo 在临时目录初始化仓库
func setupRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	return setupRepoAt(t, t.TempDir(), opts...)
}

func setupRepoAt(t *testing.T, root string, opts ...Option) *Repository {
	t.Helper()
	store, err := disk.NewAdapter(filepath.Join(root, MetaDir))
	require.NoError(t, err)

	opts = append([]Option{WithClock(fakeClock())}, opts...)
	r, err := Init(context.Background(), root, store, opts...)
	require.NoError(t, err)
	return r
}

// setupProjection 构建内存 SQLite 投影
func setupProjection(t *testing.T) *meta.Repository {
	t.Helper()
	db, err := meta.NewDB(context.Background(), meta.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return meta.NewRepository(db)
}

func writeFile(t *testing.T, r *Repository, path, content string) {
	t.Helper()
	full := filepath.Join(r.Root(), path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func readFile(t *testing.T, r *Repository, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Root(), path))
	require.NoError(t, err)
	return string(data)
}

func fileExists(r *Repository, path string) bool {
	_, err := os.Stat(filepath.Join(r.Root(), path))
	return err == nil
}

// mustCommitFiles 写文件、add 并提交
func mustCommitFiles(t *testing.T, r *Repository, msg string, files map[string]string) types.Hash {
	t.Helper()
	ctx := context.Background()
	for p, content := range files {
		writeFile(t, r, p, content)
		require.NoError(t, r.StageFile(ctx, p))
	}
	id, err := r.Commit(ctx, msg)
	require.NoError(t, err)
	return id
}

func mustHead(t *testing.T, r *Repository) *core.Commit {
	t.Helper()
	c, err := r.head(context.Background())
	require.NoError(t, err)
	return c
}

func blobHash(content string) types.Hash {
	return core.CalculateBlobHash([]byte(content))
}
