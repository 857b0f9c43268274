package meta

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"tinygit/pkg/core"
	"tinygit/pkg/types"

	"github.com/stretchr/testify/require"
)

// mockHash 生成合法的测试用 Hash
func mockHash(input string) types.Hash {
	sum := sha256.Sum256([]byte(input))
	return types.Hash(hex.EncodeToString(sum[:]))
}

// mustNewCommit 创建 Commit，如果失败直接终止测试
func mustNewCommit(t *testing.T, parents []types.Hash, msg string, ts int64, msgAndArgs ...any) *core.Commit {
	t.Helper()
	c, err := core.NewCommit(parents, msg, ts, map[string]types.Hash{"f.txt": mockHash(msg)}, nil)
	require.NoError(t, err, msgAndArgs...)
	return c
}

// mustIndexCommit 强制索引 Commit，失败则终止
func mustIndexCommit(t *testing.T, repo *Repository, c *core.Commit, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.IndexCommit(context.Background(), c), msgAndArgs...)
}

// mustUpdateRef 强制更新引用，失败则终止
func mustUpdateRef(t *testing.T, repo *Repository, name string, newHash types.Hash, oldVersion int64, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.UpdateRef(context.Background(), name, newHash, oldVersion), msgAndArgs...)
}
