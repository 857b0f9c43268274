package meta

import (
	"encoding/json"
	"time"

	"tinygit/pkg/types"

	"gorm.io/datatypes"
)

// Ref 存储分支指针的镜像
// 权威数据在 .tg/refs.json，这里只用于查询
type Ref struct {
	// Name 是分支名，例如 "master"
	Name string `gorm:"primaryKey;type:varchar(255)"`

	CommitHash types.Hash `gorm:"type:char(64);not null"`

	// Version 用于乐观锁并发控制 (CAS)，每次更新时 +1
	Version int64 `gorm:"default:1"`

	UpdatedAt time.Time
}

// CommitModel 是 core.Commit 在关系型数据库中的投影 (索引)
// 用于 global-log 和 find，避免扫描整个对象库
type CommitModel struct {
	Hash types.Hash `gorm:"primaryKey;type:char(64)"`

	Message   string `gorm:"index;type:text"`
	Timestamp int64  `gorm:"index"`

	// Parents: ["hash1", "hash2"]，merge commit 有两个
	Parents datatypes.JSON

	// Tracked: {"path": "blob hash"}
	Tracked datatypes.JSON

	CreatedAt time.Time
}

// TableName 强制指定表名
func (CommitModel) TableName() string {
	return "commits"
}

// ParentHashes 解析 Parents 字段
func (m *CommitModel) ParentHashes() []types.Hash {
	var out []types.Hash
	_ = json.Unmarshal(m.Parents, &out)
	return out
}
