package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/polyva-3d/internal/cache"
	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/logger"

	"github.com/mojocn/base64Captcha"
)

const captchaCharset = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 前端可见的验证码配置
type CaptchaPublicSetting struct {
	Provider string          `json:"provider"`
	Scenes   map[string]bool `json:"scenes"`
}

// CaptchaService 图片验证码服务，按场景开关决定是否校验
type CaptchaService struct {
	cfg config.CaptchaConfig

	mu    sync.Mutex
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{cfg: normalizeCaptchaConfig(cfg)}
}

// PublicSetting 返回公开配置
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	return CaptchaPublicSetting{
		Provider: s.cfg.Provider,
		Scenes: map[string]bool{
			constants.CaptchaSceneLogin:          s.sceneEnabled(constants.CaptchaSceneLogin),
			constants.CaptchaSceneSignup:         s.sceneEnabled(constants.CaptchaSceneSignup),
			constants.CaptchaSceneForgotPassword: s.sceneEnabled(constants.CaptchaSceneForgotPassword),
		},
	}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}
	image := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		image.Height,
		image.Width,
		image.NoiseCount,
		image.ShowLine,
		image.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.imageStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，场景未开启时直接通过
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if s == nil || !s.sceneEnabled(scene) {
		return nil
	}
	if s.cfg.Provider != constants.CaptchaProviderImage {
		return ErrCaptchaConfigInvalid
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.imageStore().Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) sceneEnabled(scene string) bool {
	if s.cfg.Provider == constants.CaptchaProviderNone {
		return false
	}
	switch scene {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneSignup:
		return s.cfg.Scenes.Signup
	case constants.CaptchaSceneForgotPassword:
		return s.cfg.Scenes.ForgotPassword
	default:
		return false
	}
}

// imageStore Redis 启用时验证码跨实例共享，否则使用进程内存储
func (s *CaptchaService) imageStore() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store
	}
	ttl := time.Duration(s.cfg.Image.ExpireSeconds) * time.Second
	if cache.Enabled() {
		s.store = &redisCaptchaStore{ttl: ttl}
	} else {
		s.store = base64Captcha.NewMemoryStore(s.cfg.Image.MaxStore, ttl)
	}
	return s.store
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != constants.CaptchaProviderImage {
		cfg.Provider = constants.CaptchaProviderNone
	}
	if cfg.Image.Length < 4 || cfg.Image.Length > 8 {
		cfg.Image.Length = 5
	}
	if cfg.Image.Width <= 0 {
		cfg.Image.Width = 240
	}
	if cfg.Image.Height <= 0 {
		cfg.Image.Height = 80
	}
	if cfg.Image.ExpireSeconds <= 0 {
		cfg.Image.ExpireSeconds = 300
	}
	if cfg.Image.MaxStore <= 0 {
		cfg.Image.MaxStore = 10240
	}
	return cfg
}

type redisCaptchaStore struct {
	ttl time.Duration
}

func captchaKey(id string) string {
	return "captcha:" + id
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	return cache.SetJSON(context.Background(), captchaKey(id), strings.ToLower(value), s.ttl)
}

func (s *redisCaptchaStore) Get(id string, clear bool) string {
	ctx := context.Background()
	var value string
	hit, err := cache.GetJSON(ctx, captchaKey(id), &value)
	if err != nil {
		logger.Warnw("captcha_store_get_failed", "error", err)
		return ""
	}
	if !hit {
		return ""
	}
	if clear {
		_ = cache.Del(ctx, captchaKey(id))
	}
	return value
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	stored := s.Get(id, clear)
	return stored != "" && stored == strings.ToLower(strings.TrimSpace(answer))
}
