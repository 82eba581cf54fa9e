package service

import (
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultJWTExpireHours = 24

// AuthService 会话签发服务，负责密码哈希与 JWT 签发/校验
type AuthService struct {
	cfg *config.Config
	now func() time.Time
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg: cfg,
		now: time.Now,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略，email 用于拒绝包含邮箱用户名的密码
func (s *AuthService) ValidatePassword(email, password string) error {
	var policy config.PasswordPolicyConfig
	if s != nil && s.cfg != nil {
		policy = s.cfg.Security.PasswordPolicy
	}
	return validatePassword(policy, email, password)
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateToken 生成携带用户ID与角色的 JWT
func (s *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, ErrUserNotFound
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(s.expireHours()) * time.Hour)

	claims := JWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role(),
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken 解析并校验 JWT
func (s *AuthService) ParseToken(tokenString string) (*JWTClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	claims := &JWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) expireHours() int {
	if s.cfg == nil || s.cfg.JWT.ExpireHours <= 0 {
		return defaultJWTExpireHours
	}
	return s.cfg.JWT.ExpireHours
}
