package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/polyva-3d/internal/models"

	"gorm.io/gorm"
)

// ModelRepository 3D 模型数据访问接口
type ModelRepository interface {
	GetByID(id uint) (*models.Model, error)
	GetByShareToken(token string) (*models.Model, error)
	GetByJobID(jobID string) (*models.Model, error)
	Create(model *models.Model) error
	MarkShared(id uint, token string, now time.Time) (*models.Model, error)
	Update(model *models.Model) error
	Delete(id uint) error
	DeleteByUserID(userID uint) (int64, error)
	ListStorageKeysByUser(userID uint) ([]string, error)
	List(filter ModelListFilter) ([]models.Model, int64, error)
	Count(filter ModelListFilter) (int64, error)
}

// GormModelRepository GORM 实现
type GormModelRepository struct {
	db *gorm.DB
}

// NewModelRepository 创建模型仓库
func NewModelRepository(db *gorm.DB) *GormModelRepository {
	return &GormModelRepository{db: db}
}

// GetByID 根据 ID 获取模型
func (r *GormModelRepository) GetByID(id uint) (*models.Model, error) {
	var model models.Model
	if err := r.db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

// GetByShareToken 根据分享令牌获取模型（不校验公开状态）
func (r *GormModelRepository) GetByShareToken(token string) (*models.Model, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var model models.Model
	if err := r.db.Where("share_token = ?", token).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

// GetByJobID 根据来源生成任务获取模型
func (r *GormModelRepository) GetByJobID(jobID string) (*models.Model, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, nil
	}
	var model models.Model
	if err := r.db.Where("job_id = ?", jobID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

// Create 创建模型记录
func (r *GormModelRepository) Create(model *models.Model) error {
	return r.db.Create(model).Error
}

// Update 更新模型记录；分享令牌只经 MarkShared 写入
func (r *GormModelRepository) Update(model *models.Model) error {
	return r.db.Omit("User", "ShareToken").Save(model).Error
}

// MarkShared 设为公开，令牌为空时才写入 token，返回写入后的记录
func (r *GormModelRepository) MarkShared(id uint, token string, now time.Time) (*models.Model, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Model{}).
			Where("id = ? AND (share_token IS NULL OR share_token = '')", id).
			Update("share_token", token).Error; err != nil {
			return err
		}
		return tx.Model(&models.Model{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_public": true, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// Delete 删除模型
func (r *GormModelRepository) Delete(id uint) error {
	return r.db.Delete(&models.Model{}, id).Error
}

// DeleteByUserID 删除用户的全部模型，返回删除条数
func (r *GormModelRepository) DeleteByUserID(userID uint) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.Model{})
	return result.RowsAffected, result.Error
}

// ListStorageKeysByUser 返回用户模型关联的存储键，用于级联删除后清理文件
func (r *GormModelRepository) ListStorageKeysByUser(userID uint) ([]string, error) {
	var keys []string
	err := r.db.Model(&models.Model{}).
		Where("user_id = ? AND source_image_key <> ''", userID).
		Pluck("source_image_key", &keys).Error
	return keys, err
}

// List 模型列表
func (r *GormModelRepository) List(filter ModelListFilter) ([]models.Model, int64, error) {
	var scopes []func(*gorm.DB) *gorm.DB
	if filter.WithOwner {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Preload("User") })
	}
	return listPage[models.Model](r.filtered(filter), filter.Page, filter.PageSize, scopes...)
}

// Count 按条件统计模型数
func (r *GormModelRepository) Count(filter ModelListFilter) (int64, error) {
	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *GormModelRepository) filtered(filter ModelListFilter) *gorm.DB {
	query := r.db.Model(&models.Model{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	query = applyKeyword(query, filter.Keyword, "title", "prompt")
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.IsDemo != nil {
		query = query.Where("is_demo = ?", *filter.IsDemo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}
