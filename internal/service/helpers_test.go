package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Model{}, &models.UserLoginLog{}, &models.AdminAuditLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newServiceTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret-key-with-enough-length", ExpireHours: 2},
		OTP: config.OTPConfig{Length: 6, ExpireMinutes: 5},
		Upload: config.UploadConfig{
			MaxSize:           1 << 20,
			AllowedTypes:      []string{"image/png", "image/jpeg", "image/webp"},
			AllowedExtensions: []string{".png", ".jpg", ".jpeg", ".webp"},
		},
		Generation: config.GenerationConfig{
			DemoMode:           true,
			TimeoutSeconds:     5,
			MaxPromptLength:    50,
			MaxImageSize:       1 << 20,
			DemoModelURL:       "/demo/sample.glb",
			DemoThumbnailURL:   "/demo/sample.png",
			DefaultModelFormat: "glb",
		},
	}
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []OTPMessage
	err      error
}

func (m *recordingMailer) SendOTP(_ context.Context, msg OTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) OTPMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		t.Fatalf("no otp message recorded")
	}
	return m.messages[len(m.messages)-1]
}

type authFixture struct {
	db       *gorm.DB
	cfg      *config.Config
	users    *repository.GormUserRepository
	auth     *AuthService
	svc      *UserAuthService
	mailer   *recordingMailer
	clock    time.Time
	advances time.Duration
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		db:     openServiceTestDB(t),
		cfg:    newServiceTestConfig(),
		mailer: &recordingMailer{},
		clock:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.users = repository.NewUserRepository(f.db)
	f.auth = NewAuthService(f.cfg)
	f.auth.now = f.now
	f.svc = NewUserAuthService(f.cfg, f.users, f.auth, f.mailer)
	f.svc.now = f.now
	return f
}

func (f *authFixture) now() time.Time {
	return f.clock.Add(f.advances)
}

func (f *authFixture) advance(d time.Duration) {
	f.advances += d
}

// createVerifiedUser 注册并完成邮箱验证
func (f *authFixture) createVerifiedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	if _, err := f.svc.Signup(context.Background(), SignupInput{Email: email, Password: password}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	code := f.mailer.last(t).Code
	session, err := f.svc.VerifyEmail(email, code)
	if err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	return session.User
}
