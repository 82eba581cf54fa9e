package models

import (
	"strings"
	"time"

	"github.com/polyva-3d/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultAdmin 初始化管理员账号，邮箱为空时跳过
func InitDefaultAdmin(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var existing User
	result := DB.Where("email = ?", email).Limit(1).Find(&existing)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		if existing.IsAdmin {
			return nil
		}
		// 已存在的普通账号提升为管理员
		if err := DB.Model(&existing).Updates(map[string]interface{}{
			"is_admin":    true,
			"is_verified": true,
			"is_blocked":  false,
		}).Error; err != nil {
			return err
		}
		logger.Warnw("bootstrap_admin_promoted", "email", email)
		return nil
	}

	if strings.TrimSpace(password) == "" {
		logger.Warnw("bootstrap_admin_skipped", "email", email, "reason", "empty_password")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	admin := User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Administrator",
		IsAdmin:      true,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	logger.Warnw("bootstrap_admin_created", "email", email, "password_hidden", true)
	return nil
}
