package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tinygit/pkg/core"
	"tinygit/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRefNotFound      = errors.New("reference not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrCommitNotFound   = errors.New("commit not found in metadata")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 引用管理 (Branches)
// -----------------------------------------------------------------------------

// GetRef 获取分支的当前指向
func (r *Repository) GetRef(ctx context.Context, name string) (*Ref, error) {
	var ref Ref
	err := r.db.GetConn().WithContext(ctx).
		Where("name = ?", name).
		First(&ref).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// UpdateRef 原子更新引用 (CAS - Compare And Swap)
// oldVersion: 之前读到的版本号，0 表示创建
func (r *Repository) UpdateRef(ctx context.Context, name string, newHash types.Hash, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 场景 A: 第一次创建
		if oldVersion == 0 {
			ref := Ref{
				Name:       name,
				CommitHash: newHash,
				Version:    1,
			}
			if err := tx.Create(&ref).Error; err != nil {
				// 兼容不同数据库 (PG 与 SQLite) 的唯一约束错误
				if errors.Is(err, gorm.ErrDuplicatedKey) ||
					strings.Contains(err.Error(), "UNIQUE constraint failed") {
					return ErrConcurrentUpdate
				}
				return fmt.Errorf("failed to create ref: %w", err)
			}
			return nil
		}

		// 场景 B: UPDATE refs SET commit_hash = ?, version = version + 1 WHERE name = ? AND version = ?
		result := tx.Model(&Ref{}).
			Where("name = ? AND version = ?", name, oldVersion).
			Updates(map[string]any{
				"commit_hash": newHash,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		// 影响行数为 0，说明 version 不匹配
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
}

// SaveRef 读出当前版本再 CAS 写入
func (r *Repository) SaveRef(ctx context.Context, name string, hash types.Hash) error {
	var version int64
	ref, err := r.GetRef(ctx, name)
	switch {
	case errors.Is(err, ErrRefNotFound):
	case err != nil:
		return err
	default:
		if ref.CommitHash == hash {
			return nil
		}
		version = ref.Version
	}
	return r.UpdateRef(ctx, name, hash, version)
}

// DeleteRef 删除分支镜像，不存在不算错误
func (r *Repository) DeleteRef(ctx context.Context, name string) error {
	return r.db.GetConn().WithContext(ctx).
		Where("name = ?", name).
		Delete(&Ref{}).Error
}

// ListRefs 按名字排序返回所有分支
func (r *Repository) ListRefs(ctx context.Context) ([]Ref, error) {
	var refs []Ref
	err := r.db.GetConn().WithContext(ctx).
		Order("name ASC").
		Find(&refs).Error
	return refs, err
}

// -----------------------------------------------------------------------------
// 2. 提交索引 (Commit Indexing)
// -----------------------------------------------------------------------------

// IndexCommit 将 core.Commit 投影到 SQL 数据库中
func (r *Repository) IndexCommit(ctx context.Context, c *core.Commit) error {
	parentsJSON, err := json.Marshal(c.ParentIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal parents: %w", err)
	}
	trackedJSON, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	model := CommitModel{
		Hash:      c.ID(),
		Message:   c.Message,
		Timestamp: c.Timestamp,
		Parents:   datatypes.JSON(parentsJSON),
		Tracked:   datatypes.JSON(trackedJSON),
		CreatedAt: c.Time(),
	}

	// 幂等写入：Hash 已存在则什么都不做
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to index commit: %w", err)
	}
	return nil
}

func (r *Repository) GetCommit(ctx context.Context, hash types.Hash) (*CommitModel, error) {
	var commit CommitModel
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", hash).
		First(&commit).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

// FindCommitsByMessage 按提交信息精确匹配
func (r *Repository) FindCommitsByMessage(ctx context.Context, message string) ([]CommitModel, error) {
	var commits []CommitModel
	err := r.db.GetConn().WithContext(ctx).
		Where("message = ?", message).
		Order("timestamp DESC").
		Order("hash ASC").
		Find(&commits).Error
	return commits, err
}

// ListCommits 返回所有已索引的 commit，最新的在前；limit <= 0 表示不限制
func (r *Repository) ListCommits(ctx context.Context, limit int) ([]CommitModel, error) {
	var commits []CommitModel
	q := r.db.GetConn().WithContext(ctx).
		Order("timestamp DESC").
		Order("hash ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&commits).Error
	return commits, err
}

// CountCommits 返回已索引的 commit 数量
func (r *Repository) CountCommits(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetConn().WithContext(ctx).Model(&CommitModel{}).Count(&n).Error
	return n, err
}
