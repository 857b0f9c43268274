package refs

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"tinygit/pkg/errs"
	"tinygit/pkg/types"
)

// DefaultBranch 是 init 时创建的分支
const DefaultBranch = "master"

// Manager 负责管理分支 (Refs)
// HEAD 不单独存储，永远是 Branches[Current]
type Manager struct {
	path     string
	Current  string                `json:"current"`
	Branches map[string]types.Hash `json:"branches"`
}

// NewManager 创建一个空的 Manager，第一次 Save 之前需要 Init
func NewManager(path string) *Manager {
	return &Manager{
		path:     path,
		Branches: make(map[string]types.Hash),
	}
}

// Load 读取 refs 记录
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.NotInitialized, "load refs", "", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read refs: %w", err)
	}

	m := NewManager(path)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("corrupted refs file: %w", err)
	}
	if m.Branches == nil {
		m.Branches = make(map[string]types.Hash)
	}
	if _, ok := m.Branches[m.Current]; !ok {
		return nil, fmt.Errorf("corrupted refs file: current branch %q has no commit", m.Current)
	}
	return m, nil
}

// Init 创建第一个分支并切换过去
func (m *Manager) Init(branch string, head types.Hash) {
	m.Branches = map[string]types.Hash{branch: head}
	m.Current = branch
}

// Head 返回当前分支指向的 commit
func (m *Manager) Head() types.Hash {
	return m.Branches[m.Current]
}

func (m *Manager) CurrentBranch() string {
	return m.Current
}

// Names 返回排好序的分支名
func (m *Manager) Names() []string {
	return slices.Sorted(maps.Keys(m.Branches))
}

func (m *Manager) Lookup(name string) (types.Hash, bool) {
	h, ok := m.Branches[name]
	return h, ok
}

// Create 在当前 HEAD 上创建分支
func (m *Manager) Create(name string) error {
	if _, ok := m.Branches[name]; ok {
		return errs.E(errs.BranchExists, "branch", name)
	}
	m.Branches[name] = m.Head()
	return nil
}

// Delete 只删除指针，不删除 commit
func (m *Manager) Delete(name string) error {
	if _, ok := m.Branches[name]; !ok {
		return errs.E(errs.UnknownBranch, "rm-branch", name)
	}
	if name == m.Current {
		return errs.E(errs.CannotDeleteCurrent, "rm-branch", name)
	}
	delete(m.Branches, name)
	return nil
}

// Target 校验 checkout 的目标分支，返回它的 tip
// 工作区恢复成功之后才调用 Switch
func (m *Manager) Target(name string) (types.Hash, error) {
	h, ok := m.Branches[name]
	if !ok {
		return "", errs.E(errs.UnknownBranch, "checkout", name)
	}
	if name == m.Current {
		return "", errs.E(errs.AlreadyOnBranch, "checkout", name)
	}
	return h, nil
}

// Switch 切换当前分支
func (m *Manager) Switch(name string) error {
	if _, ok := m.Branches[name]; !ok {
		return errs.E(errs.UnknownBranch, "checkout", name)
	}
	m.Current = name
	return nil
}

// Advance 移动当前分支 (也就是 HEAD)
func (m *Manager) Advance(hash types.Hash) {
	m.Branches[m.Current] = hash
}

// Save 持久化到磁盘
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}
