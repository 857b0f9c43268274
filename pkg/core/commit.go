package core

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"tinygit/pkg/types"
)

const (
	InitialMessage = "initial commit"
)

// Commit 是一个不可变的快照描述
type Commit struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType `cbor:"t"`

	// Parents 0 个 (root)、1 个或 2 个 (merge)
	// merge 时第一个是被合入的当前分支，第二个是合进来的分支
	Parents []Link `cbor:"p"`

	Message   string `cbor:"m"`
	Timestamp int64  `cbor:"ts"`

	// Tracked: 文件路径 -> 内容 Hash (逻辑快照)
	Tracked map[string]Link `cbor:"f"`

	// Origin: 文件路径 -> 备份了这个文件字节的 commit
	// 不参与 identity 计算
	Origin map[string]Link `cbor:"o"`
}

// identity 是参与 Hash 计算的字段子集
// CBOR tag 必须和 Commit 保持一致
type identity struct {
	TypeVal   ObjectType      `cbor:"t"`
	Parents   []Link          `cbor:"p"`
	Message   string          `cbor:"m"`
	Timestamp int64           `cbor:"ts"`
	Tracked   map[string]Link `cbor:"f"`
}

// NewCommit 构造并密封一个 Commit
// origin 里没有记录的路径 (即本次新暂存的文件) 会指向这个 commit 自己
func NewCommit(parents []types.Hash, msg string, timestamp int64, tracked, origin map[string]types.Hash) (*Commit, error) {
	if len(parents) > 2 {
		return nil, fmt.Errorf("commit cannot have %d parents", len(parents))
	}

	parentLinks := make([]Link, len(parents))
	for i, p := range parents {
		parentLinks[i] = NewLink(p)
	}

	c := &Commit{
		TypeVal:   TypeCommit,
		Parents:   parentLinks,
		Message:   msg,
		Timestamp: timestamp,
		Tracked:   make(map[string]Link, len(tracked)),
		Origin:    make(map[string]Link, len(tracked)),
	}
	for path, h := range tracked {
		c.Tracked[path] = NewLink(h)
	}

	id, err := c.computeID()
	if err != nil {
		return nil, err
	}

	for path := range tracked {
		if o, ok := origin[path]; ok && !o.IsZero() {
			c.Origin[path] = NewLink(o)
		} else {
			c.Origin[path] = NewLink(id)
		}
	}

	return c, c.seal(id)
}

// NewInitialCommit 返回仓库的 root commit (Unix 纪元，空快照)
func NewInitialCommit() (*Commit, error) {
	return NewCommit(nil, InitialMessage, 0, nil, nil)
}

// DecodeCommit 从存储的字节还原 Commit 并重新计算 identity
func DecodeCommit(data []byte) (*Commit, error) {
	var c Commit
	if err := DecodeObject(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode commit: %w", err)
	}
	if c.TypeVal != TypeCommit {
		return nil, fmt.Errorf("object is not a commit, got: %q", c.TypeVal)
	}
	if c.Tracked == nil {
		c.Tracked = map[string]Link{}
	}
	if c.Origin == nil {
		c.Origin = map[string]Link{}
	}

	id, err := c.computeID()
	if err != nil {
		return nil, err
	}
	c.hash = id
	c.rawBytes = data
	return &c, nil
}

func (c *Commit) computeID() (types.Hash, error) {
	h, _, err := CalculateHash(identity{
		TypeVal:   c.TypeVal,
		Parents:   c.Parents,
		Message:   c.Message,
		Timestamp: c.Timestamp,
		Tracked:   c.Tracked,
	})
	return h, err
}

func (c *Commit) seal(id types.Hash) error {
	data, err := em.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal commit: %w", err)
	}
	c.hash = id
	c.rawBytes = data
	return nil
}

func (c *Commit) Type() ObjectType { return TypeCommit }
func (c *Commit) ID() types.Hash   { return c.hash }
func (c *Commit) Bytes() []byte    { return c.rawBytes }

// Equal 按 identity 比较，不按指针
func (c *Commit) Equal(other *Commit) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.hash == other.hash
}

// ParentIDs 返回父节点 Hash 列表
func (c *Commit) ParentIDs() []types.Hash {
	ids := make([]types.Hash, len(c.Parents))
	for i, p := range c.Parents {
		ids[i] = p.Hash
	}
	return ids
}

// FirstParent 返回第一父节点，root commit 返回 false
func (c *Commit) FirstParent() (types.Hash, bool) {
	if len(c.Parents) == 0 {
		return "", false
	}
	return c.Parents[0].Hash, true
}

func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// Lookup 返回路径在快照中的内容 Hash
func (c *Commit) Lookup(path string) (types.Hash, bool) {
	l, ok := c.Tracked[path]
	return l.Hash, ok
}

// Tracks 判断快照是否包含该路径
func (c *Commit) Tracks(path string) bool {
	_, ok := c.Tracked[path]
	return ok
}

// OriginOf 返回备份了该路径字节的 commit
func (c *Commit) OriginOf(path string) (types.Hash, bool) {
	l, ok := c.Origin[path]
	return l.Hash, ok
}

// IsModified 判断内容是否和快照里记录的不同 (未跟踪也算修改)
func (c *Commit) IsModified(path string, hash types.Hash) bool {
	h, ok := c.Lookup(path)
	return !ok || h != hash
}

// Paths 返回排好序的已跟踪路径
func (c *Commit) Paths() []string {
	return slices.Sorted(maps.Keys(c.Tracked))
}

// Snapshot 返回 path -> content hash 的副本
func (c *Commit) Snapshot() map[string]types.Hash {
	snap := make(map[string]types.Hash, len(c.Tracked))
	for path, l := range c.Tracked {
		snap[path] = l.Hash
	}
	return snap
}

// Origins 返回 path -> origin commit 的副本
func (c *Commit) Origins() map[string]types.Hash {
	out := make(map[string]types.Hash, len(c.Origin))
	for path, l := range c.Origin {
		out[path] = l.Hash
	}
	return out
}

func (c *Commit) Time() time.Time { return time.Unix(c.Timestamp, 0) }
