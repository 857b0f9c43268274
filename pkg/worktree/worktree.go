// Package worktree 封装了对工作区文件的读写。
// 所有对外的路径都是相对于仓库根目录的 slash 路径。
package worktree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"tinygit/pkg/core"
	"tinygit/pkg/ignore"
	"tinygit/pkg/index"
	"tinygit/pkg/types"

	"golang.org/x/sync/errgroup"
)

type Worktree struct {
	root    string
	matcher *ignore.Matcher
}

func New(root string, matcher *ignore.Matcher) *Worktree {
	return &Worktree{root: root, matcher: matcher}
}

func (w *Worktree) Root() string { return w.root }

func (w *Worktree) abs(path string) (string, error) {
	clean := index.CleanPath(path)
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q is outside the working directory", path)
	}
	return filepath.Join(w.root, filepath.FromSlash(clean)), nil
}

// Rel 把用户输入的路径 (可能是绝对路径) 转换成仓库内的 slash 路径
func (w *Worktree) Rel(path string) (string, error) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return "", err
		}
		path = rel
	}
	clean := index.CleanPath(path)
	if _, err := w.abs(clean); err != nil {
		return "", err
	}
	return clean, nil
}

// Ignored 判断路径是否被忽略规则排除
func (w *Worktree) Ignored(path string) bool {
	return w.matcher.Matches(path)
}

// Protected 判断路径是否属于 restore 不能删除的文件
func (w *Worktree) Protected(path string) bool {
	return w.matcher.Protected(path)
}

// List 返回工作区中所有未被忽略的普通文件，已排序
func (w *Worktree) List() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == w.root {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if w.matcher.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan working directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

// Exists 判断是否存在该普通文件
func (w *Worktree) Exists(path string) bool {
	p, err := w.abs(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (w *Worktree) Read(path string) ([]byte, error) {
	p, err := w.abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Write 覆盖写文件，自动创建父目录
func (w *Worktree) Write(path string, data []byte) error {
	p, err := w.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(p, data, 0644)
}

// Remove 删除文件并清理变空的父目录，文件不存在不算错误
func (w *Worktree) Remove(path string) error {
	p, err := w.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	for dir := filepath.Dir(p); dir != w.root && strings.HasPrefix(dir, w.root); dir = filepath.Dir(dir) {
		// 非空目录会删除失败，停止向上
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// Hash 读取文件并计算 Blob Hash
func (w *Worktree) Hash(path string) (types.Hash, []byte, error) {
	data, err := w.Read(path)
	if err != nil {
		return "", nil, err
	}
	return core.CalculateBlobHash(data), data, nil
}

// Snapshot 并发计算所有文件的 Hash
func (w *Worktree) Snapshot(ctx context.Context) (map[string]types.Hash, error) {
	files, err := w.List()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	snap := make(map[string]types.Hash, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, _, err := w.Hash(f)
			if err != nil {
				return fmt.Errorf("failed to hash %s: %w", f, err)
			}
			mu.Lock()
			snap[f] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
