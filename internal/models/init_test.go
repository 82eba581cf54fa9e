package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupModelsTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:models_init_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	DB = db
	if err := AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
}

func TestInitDefaultAdminCreatesVerifiedAdmin(t *testing.T) {
	setupModelsTestDB(t)

	if err := InitDefaultAdmin(" Admin@Polyva.io ", "secret-pass"); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	var admin User
	if err := DB.Where("email = ?", "admin@polyva.io").First(&admin).Error; err != nil {
		t.Fatalf("load admin failed: %v", err)
	}
	if !admin.IsAdmin || !admin.IsVerified || admin.IsBlocked {
		t.Fatalf("unexpected admin flags: %+v", admin)
	}

	// 重复调用不产生新记录
	if err := InitDefaultAdmin("admin@polyva.io", "secret-pass"); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	var count int64
	DB.Model(&User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one user, got %d", count)
	}
}

func TestInitDefaultAdminPromotesExistingUser(t *testing.T) {
	setupModelsTestDB(t)
	user := User{Email: "owner@polyva.io", PasswordHash: "x", IsBlocked: true}
	if err := DB.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if err := InitDefaultAdmin("owner@polyva.io", ""); err != nil {
		t.Fatalf("init admin failed: %v", err)
	}
	var reloaded User
	DB.First(&reloaded, user.ID)
	if !reloaded.IsAdmin || reloaded.IsBlocked {
		t.Fatalf("existing user should be promoted and unblocked: %+v", reloaded)
	}
}

func TestInitDefaultAdminSkipsEmptyEmail(t *testing.T) {
	setupModelsTestDB(t)
	if err := InitDefaultAdmin("", "whatever"); err != nil {
		t.Fatalf("empty email should be ignored: %v", err)
	}
	var count int64
	DB.Model(&User{}).Count(&count)
	if count != 0 {
		t.Fatalf("no admin should be created, got %d", count)
	}
}

func TestUserRoleAndClearOTP(t *testing.T) {
	expires := time.Now().Add(time.Minute)
	user := &User{IsAdmin: true, OTPCode: "123456", OTPExpiresAt: &expires}
	if user.Role() != RoleAdmin {
		t.Fatalf("admin role expected")
	}
	user.ClearOTP()
	if user.OTPCode != "" || user.OTPExpiresAt != nil {
		t.Fatalf("otp should be cleared")
	}
	var nilUser *User
	if nilUser.Role() != RoleUser {
		t.Fatalf("nil user should default to user role")
	}
}
