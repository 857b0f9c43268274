// pkg/index/index.go
package index

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"tinygit/pkg/types"
)

// Entry 代表暂存区中的一条记录
type Entry struct {
	Path       string     `json:"path"`        // 相对路径 (如 "src/main.go")
	Hash       types.Hash `json:"hash"`        // Blob 的 Hash
	Size       int64      `json:"size"`        // 文件大小
	ModifiedAt time.Time  `json:"modified_at"` // 暂存时间
}

// Tracker 是 HEAD 快照的只读视图
type Tracker interface {
	Lookup(path string) (types.Hash, bool)
}

// Index 管理暂存区状态
// 同一个路径不会同时出现在 Staged 和 Removed 里
type Index struct {
	path    string           // 物理文件路径 (.tg/index.json)
	Staged  map[string]Entry `json:"staged"`
	Removed map[string]bool  `json:"removed"`
	mu      sync.RWMutex
}

// NewIndex 加载或创建一个新的 Index
func NewIndex(indexPath string) (*Index, error) {
	idx := &Index{
		path:    indexPath,
		Staged:  make(map[string]Entry),
		Removed: make(map[string]bool),
	}

	// 尝试加载现有文件
	if _, err := os.Stat(indexPath); err == nil {
		data, err := os.ReadFile(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read index: %w", err)
		}
		if err := json.Unmarshal(data, idx); err != nil {
			return nil, fmt.Errorf("corrupted index file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if idx.Staged == nil {
		idx.Staged = make(map[string]Entry)
	}
	if idx.Removed == nil {
		idx.Removed = make(map[string]bool)
	}
	return idx, nil
}

// Stage 记录一次 add
// 如果内容和 HEAD 里的一致，就不记录 (并且撤销之前的暂存)。
// 返回值表示路径最终是否处于暂存状态。
func (i *Index) Stage(path string, hash types.Hash, size int64, head Tracker) bool {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.Removed, key)

	if h, ok := head.Lookup(key); ok && h == hash {
		delete(i.Staged, key)
		return false
	}

	i.Staged[key] = Entry{
		Path:       key,
		Hash:       hash,
		Size:       size,
		ModifiedAt: time.Now(),
	}
	return true
}

// Unstage 撤销一次 add，返回路径之前是否已暂存
func (i *Index) Unstage(path string) bool {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.Staged[key]
	delete(i.Staged, key)
	return ok
}

// MarkRemoved 标记下一次提交时删除该路径
func (i *Index) MarkRemoved(path string) {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.Staged, key)
	i.Removed[key] = true
}

func (i *Index) IsStaged(path string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.Staged[CleanPath(path)]
	return ok
}

func (i *Index) IsRemoved(path string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Removed[CleanPath(path)]
}

// Lookup 返回暂存的内容 Hash
func (i *Index) Lookup(path string) (Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.Staged[CleanPath(path)]
	return e, ok
}

// Save 将暂存区持久化到磁盘
func (i *Index) Save() error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(i.path, data, 0644)
}

// Snapshot 返回当前 Entry 的副本，用于并发安全的读取
func (i *Index) Snapshot() map[string]Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	snap := make(map[string]Entry, len(i.Staged))
	maps.Copy(snap, i.Staged)
	return snap
}

// StagedPaths 返回排好序的暂存路径
func (i *Index) StagedPaths() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Sorted(maps.Keys(i.Staged))
}

// RemovedPaths 返回排好序的待删除路径
func (i *Index) RemovedPaths() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Sorted(maps.Keys(i.Removed))
}

// Reset 整体替换成一个空的暂存区
func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Staged = make(map[string]Entry)
	i.Removed = make(map[string]bool)
}

// IsEmpty 检查暂存区是否有内容
func (i *Index) IsEmpty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.Staged) == 0 && len(i.Removed) == 0
}

func CleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
