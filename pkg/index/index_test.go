package index

import (
	"path/filepath"
	"testing"

	"tinygit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHead 模拟 HEAD 快照
type fakeHead map[string]types.Hash

func (f fakeHead) Lookup(path string) (types.Hash, bool) {
	h, ok := f[path]
	return h, ok
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	return idx
}

func TestIndex_Persistence_RoundTrip(t *testing.T) {
	// 1. Setup
	indexPath := filepath.Join(t.TempDir(), "index.json")

	// 2. 创建并写入数据
	idx1, err := NewIndex(indexPath)
	require.NoError(t, err)

	idx1.Stage("src/main.go", "hash-123", 1024, fakeHead{})
	idx1.MarkRemoved("readme.md")
	require.NoError(t, idx1.Save())

	// 3. 重新加载 (模拟第二次运行程序)
	idx2, err := NewIndex(indexPath)
	require.NoError(t, err)

	// 4. 验证数据一致性
	entry, exists := idx2.Lookup("src/main.go")
	require.True(t, exists)
	assert.Equal(t, "hash-123", entry.Hash.String())
	assert.Equal(t, int64(1024), entry.Size)
	assert.False(t, entry.ModifiedAt.IsZero())
	assert.True(t, idx2.IsRemoved("readme.md"))
}

func TestIndex_MissingFileIsEmpty(t *testing.T) {
	idx := newTestIndex(t)
	assert.True(t, idx.IsEmpty())
	assert.Empty(t, idx.StagedPaths())
	assert.Empty(t, idx.RemovedPaths())
}

func TestIndex_NoOpAdd(t *testing.T) {
	idx := newTestIndex(t)
	head := fakeHead{"a.txt": "h1"}

	// 1. 内容与 HEAD 相同，不记录
	assert.False(t, idx.Stage("a.txt", "h1", 2, head))
	assert.True(t, idx.IsEmpty())

	// 2. 内容改变后再 add
	assert.True(t, idx.Stage("a.txt", "h2", 2, head))
	assert.True(t, idx.IsStaged("a.txt"))

	// 3. 改回 HEAD 的内容，之前的暂存被撤销
	assert.False(t, idx.Stage("a.txt", "h1", 2, head))
	assert.False(t, idx.IsStaged("a.txt"))
	assert.True(t, idx.IsEmpty())
}

func TestIndex_StagedAndRemovedAreDisjoint(t *testing.T) {
	idx := newTestIndex(t)
	head := fakeHead{"a.txt": "h1"}

	idx.Stage("a.txt", "h2", 2, head)
	idx.MarkRemoved("a.txt")
	assert.False(t, idx.IsStaged("a.txt"))
	assert.True(t, idx.IsRemoved("a.txt"))

	// add 会清除待删除标记，即便内容和 HEAD 一样
	idx.Stage("a.txt", "h1", 2, head)
	assert.False(t, idx.IsStaged("a.txt"))
	assert.False(t, idx.IsRemoved("a.txt"))
	assert.True(t, idx.IsEmpty())
}

func TestIndex_Lifecycle(t *testing.T) {
	idx := newTestIndex(t)

	idx.Stage("src/main.go", "hash1", 100, fakeHead{})
	idx.Stage("b.txt", "hash2", 1, fakeHead{})
	idx.MarkRemoved("old.txt")
	assert.Equal(t, []string{"b.txt", "src/main.go"}, idx.StagedPaths())
	assert.Equal(t, []string{"old.txt"}, idx.RemovedPaths())

	assert.True(t, idx.Unstage("src/main.go"))
	assert.False(t, idx.Unstage("src/main.go"), "Unstage should be idempotent")

	snap := idx.Snapshot()
	snap["injected"] = Entry{}
	assert.False(t, idx.IsStaged("injected"), "Snapshot must be a copy")

	idx.Reset()
	assert.True(t, idx.IsEmpty())
}

func TestIndex_PathsAreCleaned(t *testing.T) {
	idx := newTestIndex(t)
	idx.Stage("./dir//a.txt", "h", 1, fakeHead{})
	assert.True(t, idx.IsStaged("dir/a.txt"))
	assert.Equal(t, "dir/a.txt", CleanPath(filepath.Join("dir", "sub", "..", "a.txt")))
}

func TestIndex_Concurrency(t *testing.T) {
	idx := newTestIndex(t)

	// 启动 10 个 goroutine 同时写同一个 key
	done := make(chan bool)
	for range 10 {
		go func() {
			idx.Stage("file", "hash", 1, fakeHead{})
			done <- true
		}()
	}
	for range 10 {
		<-done
	}

	assert.Equal(t, []string{"file"}, idx.StagedPaths())
}
