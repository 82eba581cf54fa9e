package models

import (
	"time"
)

const (
	// RoleAdmin 管理员角色
	RoleAdmin = "admin"
	// RoleUser 普通用户角色
	RoleUser = "user"
)

// User 用户表
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`                  // 主键
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`     // 邮箱（唯一）
	PasswordHash string     `gorm:"not null" json:"-"`                     // 密码哈希
	DisplayName  string     `gorm:"type:varchar(128)" json:"display_name"` // 昵称
	AvatarURL    string     `gorm:"type:varchar(512)" json:"avatar_url"`   // 头像地址
	IsAdmin      bool       `gorm:"index;not null;default:false" json:"is_admin"`
	IsVerified   bool       `gorm:"index;not null;default:false" json:"is_verified"`
	IsBlocked    bool       `gorm:"index;not null;default:false" json:"is_blocked"`
	OTPCode      string     `gorm:"column:otp_code;type:varchar(16)" json:"-"`    // 一次性验证码
	OTPPurpose   string     `gorm:"column:otp_purpose;type:varchar(32)" json:"-"` // 验证码用途
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at" json:"-"`               // 验证码过期时间（绝对时间）
	OTPSentAt    *time.Time `gorm:"column:otp_sent_at" json:"-"`                  // 最近一次发送时间
	TokenVersion uint64     `gorm:"not null;default:0" json:"-"`                  // 令牌版本，改密/封禁时递增
	LastLoginAt  *time.Time `gorm:"index" json:"last_login_at"`                   // 最后登录时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt    time.Time  `gorm:"index" json:"updated_at"`                      // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Role 返回用户角色
func (u *User) Role() string {
	if u != nil && u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ClearOTP 清空一次性验证码
func (u *User) ClearOTP() {
	u.OTPCode = ""
	u.OTPPurpose = ""
	u.OTPExpiresAt = nil
}
