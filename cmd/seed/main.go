package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoUserEmail    = "demo@polyva.io"
	demoUserPassword = "Demo1234!"
)

type demoModel struct {
	Kind     string
	Title    string
	Prompt   string
	IsPublic bool
}

var demoModels = []demoModel{
	{Kind: models.ModelKindTextTo3D, Title: "Low-poly fox", Prompt: "a low-poly orange fox sitting", IsPublic: true},
	{Kind: models.ModelKindTextTo3D, Title: "Sci-fi crate", Prompt: "a worn sci-fi cargo crate with glowing panels", IsPublic: true},
	{Kind: models.ModelKindImageTo3D, Title: "Ceramic vase", IsPublic: false},
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 管理员
	if err := models.InitDefaultAdmin(cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		stdLog.Printf("Failed to seed admin: %v", err)
	}

	// 演示用户
	user, err := ensureDemoUser()
	if err != nil {
		stdLog.Fatalf("Failed to seed demo user: %v", err)
	}
	stdLog.Printf("Demo user ready: %s / %s", user.Email, demoUserPassword)

	// 演示模型
	var count int64
	if err := models.DB.Model(&models.Model{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		stdLog.Fatalf("Failed to count demo models: %v", err)
	}
	if count > 0 {
		stdLog.Printf("Demo models already exist: %d", count)
		return
	}

	now := time.Now()
	for i, item := range demoModels {
		model := models.Model{
			UserID:       user.ID,
			Kind:         item.Kind,
			Title:        item.Title,
			Prompt:       item.Prompt,
			ModelURL:     cfg.Generation.DemoModelURL,
			ThumbnailURL: cfg.Generation.DemoThumbnailURL,
			Format:       cfg.Generation.DefaultModelFormat,
			IsPublic:     item.IsPublic,
			IsDemo:       true,
			JobID:        fmt.Sprintf("seed-%d-%d", user.ID, i+1),
			CreatedAt:    now.Add(-time.Duration(len(demoModels)-i) * time.Hour),
			UpdatedAt:    now,
		}
		if item.IsPublic {
			token := strings.ReplaceAll(uuid.NewString(), "-", "")
			model.ShareToken = &token
		}
		if err := models.DB.Create(&model).Error; err != nil {
			stdLog.Printf("Failed to create demo model %s: %v", item.Title, err)
			continue
		}
		stdLog.Printf("Created demo model: %s (id=%d)", model.Title, model.ID)
	}
}

func ensureDemoUser() (*models.User, error) {
	var user models.User
	result := models.DB.Where("email = ?", demoUserEmail).Limit(1).Find(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return &user, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(demoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user = models.User{
		Email:        demoUserEmail,
		PasswordHash: string(hash),
		DisplayName:  "Demo",
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := models.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
