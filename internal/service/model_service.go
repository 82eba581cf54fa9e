package service

import (
	"context"
	"strings"
	"time"

	"github.com/polyva-3d/internal/cache"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultModelPageSize = 20
	maxModelPageSize     = 100
	maxModelTitleLength  = 255
)

// ModelService 3D 模型管理服务
type ModelService struct {
	repo    repository.ModelRepository
	cleaner *StorageCleaner
	now     func() time.Time
}

// NewModelService 创建模型服务
func NewModelService(repo repository.ModelRepository, cleaner *StorageCleaner) *ModelService {
	return &ModelService{repo: repo, cleaner: cleaner, now: time.Now}
}

// ModelQuery 用户侧模型查询参数
type ModelQuery struct {
	Page     int
	PageSize int
	Kind     string
	Keyword  string
}

// ModelUpdate 模型可更新字段
type ModelUpdate struct {
	Title    *string
	IsPublic *bool
}

// ShowcasePage 公开作品分页结果（缓存载体）
type ShowcasePage struct {
	Items []models.Model `json:"items"`
	Total int64          `json:"total"`
}

// ListByUser 查询用户自己的模型
func (s *ModelService) ListByUser(userID uint, query ModelQuery) ([]models.Model, int64, error) {
	kind := strings.TrimSpace(query.Kind)
	if kind != "" && !models.IsValidModelKind(kind) {
		return nil, 0, ErrInvalidModelKind
	}
	page, pageSize := normalizePage(query.Page, query.PageSize)
	return s.repo.List(repository.ModelListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Kind:     kind,
		Keyword:  query.Keyword,
	})
}

// GetForUser 获取用户自己的模型，非本人返回未找到
func (s *ModelService) GetForUser(userID, id uint) (*models.Model, error) {
	model, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if model == nil || model.UserID != userID {
		return nil, ErrModelNotFound
	}
	return model, nil
}

// Update 更新标题或公开状态
func (s *ModelService) Update(ctx context.Context, userID, id uint, update ModelUpdate) (*models.Model, error) {
	model, err := s.GetForUser(userID, id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" || len([]rune(title)) > maxModelTitleLength {
			return nil, ErrInvalidInput
		}
		model.Title = title
	}
	visibilityChanged := false
	if update.IsPublic != nil && *update.IsPublic != model.IsPublic {
		model.IsPublic = *update.IsPublic
		visibilityChanged = true
	}
	model.UpdatedAt = s.now()
	if err := s.repo.Update(model); err != nil {
		return nil, err
	}
	if visibilityChanged || model.IsPublic {
		s.invalidateShowcase(ctx)
	}
	return model, nil
}

// Delete 删除用户自己的模型
func (s *ModelService) Delete(ctx context.Context, userID, id uint) error {
	model, err := s.GetForUser(userID, id)
	if err != nil {
		return err
	}
	return s.deleteModel(ctx, model)
}

// Share 生成分享链接并设为公开；已有令牌时原样返回
func (s *ModelService) Share(ctx context.Context, userID, id uint) (*models.Model, error) {
	model, err := s.GetForUser(userID, id)
	if err != nil {
		return nil, err
	}
	if model.ShareToken != nil && *model.ShareToken != "" && model.IsPublic {
		return model, nil
	}
	// 并发首次分享时只有一个令牌写入成功，其余调用读回同一令牌
	model, err = s.repo.MarkShared(model.ID, newShareToken(), s.now())
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrModelNotFound
	}
	s.invalidateShowcase(ctx)
	logger.Infow("model_shared", "model_id", model.ID, "user_id", userID)
	return model, nil
}

// Unshare 取消公开，保留令牌以便再次分享时链接不变
func (s *ModelService) Unshare(ctx context.Context, userID, id uint) (*models.Model, error) {
	model, err := s.GetForUser(userID, id)
	if err != nil {
		return nil, err
	}
	if !model.IsPublic {
		return model, nil
	}
	model.IsPublic = false
	model.UpdatedAt = s.now()
	if err := s.repo.Update(model); err != nil {
		return nil, err
	}
	s.invalidateShowcase(ctx)
	return model, nil
}

// GetShared 通过分享令牌获取公开模型
func (s *ModelService) GetShared(token string) (*models.Model, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrShareNotFound
	}
	model, err := s.repo.GetByShareToken(token)
	if err != nil {
		return nil, err
	}
	if model == nil || !model.IsPublic {
		return nil, ErrShareNotFound
	}
	return model, nil
}

// Showcase 公开作品列表，Redis 启用时走缓存
func (s *ModelService) Showcase(ctx context.Context, page, pageSize int) (*ShowcasePage, error) {
	page, pageSize = normalizePage(page, pageSize)
	var cached ShowcasePage
	if hit, err := cache.GetShowcase(ctx, page, pageSize, &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		logger.Warnw("showcase_cache_get_failed", "error", err)
	}

	isPublic := true
	items, total, err := s.repo.List(repository.ModelListFilter{
		Page:     page,
		PageSize: pageSize,
		IsPublic: &isPublic,
	})
	if err != nil {
		return nil, err
	}
	result := &ShowcasePage{Items: items, Total: total}
	if err := cache.SetShowcase(ctx, page, pageSize, result); err != nil {
		logger.Warnw("showcase_cache_set_failed", "error", err)
	}
	return result, nil
}

// AdminList 管理端模型列表，附带所属用户
func (s *ModelService) AdminList(filter repository.ModelListFilter) ([]models.Model, int64, error) {
	if kind := strings.TrimSpace(filter.Kind); kind != "" && !models.IsValidModelKind(kind) {
		return nil, 0, ErrInvalidModelKind
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	filter.WithOwner = true
	return s.repo.List(filter)
}

// AdminGet 管理端获取模型
func (s *ModelService) AdminGet(id uint) (*models.Model, error) {
	model, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrModelNotFound
	}
	return model, nil
}

// AdminDelete 管理端删除模型
func (s *ModelService) AdminDelete(ctx context.Context, id uint) error {
	model, err := s.AdminGet(id)
	if err != nil {
		return err
	}
	return s.deleteModel(ctx, model)
}

func (s *ModelService) deleteModel(ctx context.Context, model *models.Model) error {
	if err := s.repo.Delete(model.ID); err != nil {
		return err
	}
	s.cleaner.Cleanup(ctx, model.SourceImageKey)
	if model.IsPublic {
		s.invalidateShowcase(ctx)
	}
	logger.Infow("model_deleted", "model_id", model.ID, "user_id", model.UserID)
	return nil
}

func (s *ModelService) invalidateShowcase(ctx context.Context) {
	if err := cache.InvalidateShowcase(ctx); err != nil {
		logger.Warnw("showcase_cache_invalidate_failed", "error", err)
	}
}

func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultModelPageSize
	}
	if pageSize > maxModelPageSize {
		pageSize = maxModelPageSize
	}
	return page, pageSize
}
