package service

import (
	"context"
	"strings"
	"time"

	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

// AdminUserService 管理端用户管理，管理员账号不可通过此服务读取或修改
type AdminUserService struct {
	userRepo  repository.UserRepository
	modelRepo repository.ModelRepository
	cleaner   *StorageCleaner
	now       func() time.Time
}

// NewAdminUserService 创建管理端用户服务
func NewAdminUserService(userRepo repository.UserRepository, modelRepo repository.ModelRepository, cleaner *StorageCleaner) *AdminUserService {
	return &AdminUserService{
		userRepo:  userRepo,
		modelRepo: modelRepo,
		cleaner:   cleaner,
		now:       time.Now,
	}
}

// AdminUserUpdate 管理端可修改字段
type AdminUserUpdate struct {
	DisplayName *string
	Email       *string
	IsVerified  *bool
}

// List 分页查询非管理员用户
func (s *AdminUserService) List(filter repository.UserListFilter) ([]models.User, int64, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	filter.ExcludeAdmins = true
	return s.userRepo.List(filter)
}

// Get 获取用户详情
func (s *AdminUserService) Get(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsAdmin {
		return nil, ErrAdminProtected
	}
	return user, nil
}

// GetAdmin 获取管理员账号，普通用户返回 ErrNotAdmin
func (s *AdminUserService) GetAdmin(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsAdmin {
		return nil, ErrNotAdmin
	}
	return user, nil
}

// Update 修改昵称、邮箱与验证状态，邮箱需保持唯一
func (s *AdminUserService) Update(id uint, update AdminUserUpdate) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, ErrInvalidInput
		}
		user.DisplayName = name
	}
	if update.Email != nil {
		normalized, err := normalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		if normalized != user.Email {
			exist, err := s.userRepo.GetByEmail(normalized)
			if err != nil {
				return nil, err
			}
			if exist != nil && exist.ID != user.ID {
				return nil, ErrEmailExists
			}
			user.Email = normalized
		}
	}
	if update.IsVerified != nil {
		user.IsVerified = *update.IsVerified
	}
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleBlock 切换封禁状态；封禁时递增令牌版本使已签发会话失效
func (s *AdminUserService) ToggleBlock(id uint) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	user.IsBlocked = !user.IsBlocked
	if user.IsBlocked {
		user.TokenVersion++
	}
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	logger.Infow("admin_user_block_toggled", "user_id", user.ID, "blocked", user.IsBlocked)
	return user, nil
}

// Delete 删除用户：先删除其全部模型，再删除用户
// 两步相互独立，第二步失败时已删除的模型不回滚
func (s *AdminUserService) Delete(ctx context.Context, id uint) (int64, error) {
	user, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	keys, err := s.modelRepo.ListStorageKeysByUser(user.ID)
	if err != nil {
		return 0, err
	}
	removed, err := s.modelRepo.DeleteByUserID(user.ID)
	if err != nil {
		return 0, err
	}
	if err := s.userRepo.Delete(user.ID); err != nil {
		logger.Errorw("admin_user_delete_failed", "user_id", user.ID, "models_removed", removed, "error", err)
		return removed, err
	}
	s.cleaner.Cleanup(ctx, keys...)
	logger.Infow("admin_user_deleted", "user_id", user.ID, "models_removed", removed)
	return removed, nil
}
