package repository

import (
	"github.com/polyva-3d/internal/models"

	"gorm.io/gorm"
)

// AdminAuditLogRepository 管理端审计日志数据访问接口
type AdminAuditLogRepository interface {
	Create(log *models.AdminAuditLog) error
	List(filter AdminAuditLogListFilter) ([]models.AdminAuditLog, int64, error)
}

// GormAdminAuditLogRepository GORM 实现
type GormAdminAuditLogRepository struct {
	db *gorm.DB
}

// NewAdminAuditLogRepository 创建审计日志仓库
func NewAdminAuditLogRepository(db *gorm.DB) *GormAdminAuditLogRepository {
	return &GormAdminAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormAdminAuditLogRepository) Create(log *models.AdminAuditLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// List 分页查询审计日志，按 ID 倒序
func (r *GormAdminAuditLogRepository) List(filter AdminAuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	query := r.db.Model(&models.AdminAuditLog{})
	if filter.OperatorID != 0 {
		query = query.Where("operator_id = ?", filter.OperatorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	return listPage[models.AdminAuditLog](query, filter.Page, filter.PageSize)
}
