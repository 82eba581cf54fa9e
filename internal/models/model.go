package models

import "time"

const (
	// ModelKindTextTo3D 文本生成 3D
	ModelKindTextTo3D = "text-to-3d"
	// ModelKindImageTo3D 图片生成 3D
	ModelKindImageTo3D = "image-to-3d"
)

// Model 生成的 3D 模型
type Model struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                                           // 主键
	UserID         uint      `gorm:"index;not null" json:"user_id"`                                                                  // 所属用户
	Kind           string    `gorm:"type:varchar(32);index;not null" json:"kind"`                                                    // 生成方式
	Title          string    `gorm:"type:varchar(255)" json:"title"`                                                                 // 标题
	Prompt         string    `gorm:"type:text" json:"prompt,omitempty"`                                                              // 文本提示词
	SourceImageURL string    `gorm:"type:varchar(512)" json:"source_image_url,omitempty"`                                            // 源图片
	SourceImageKey string    `gorm:"type:varchar(512)" json:"-"`                                                                     // 源图片存储键，删除时清理
	ModelURL       string    `gorm:"type:varchar(512);not null" json:"model_url"`                                                    // 产物地址
	ThumbnailURL   string    `gorm:"type:varchar(512)" json:"thumbnail_url,omitempty"`                                               // 缩略图
	Format         string    `gorm:"type:varchar(16)" json:"format"`                                                                 // 产物格式（glb/obj）
	IsPublic       bool      `gorm:"index;not null;default:false" json:"is_public"`                                                  // 是否公开
	ShareToken     *string   `gorm:"type:varchar(64);uniqueIndex" json:"share_token"`                                                // 分享令牌
	IsDemo         bool      `gorm:"not null;default:false" json:"is_demo"`                                                          // 是否演示数据
	JobID          string    `gorm:"type:varchar(64);index:idx_models_job_unique,unique,where:job_id <> ''" json:"job_id,omitempty"` // 来源生成任务，同一任务至多一条
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                                                        // 创建时间
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`                                                                        // 更新时间
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`                                                        // 所属用户（管理端预加载）
}

// TableName 指定表名
func (Model) TableName() string {
	return "models"
}

// IsValidModelKind 校验生成方式
func IsValidModelKind(kind string) bool {
	return kind == ModelKindTextTo3D || kind == ModelKindImageTo3D
}
