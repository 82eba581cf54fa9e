package router

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/polyva-3d/internal/authz"
	"github.com/polyva-3d/internal/cache"
	"github.com/polyva-3d/internal/config"
	adminhandlers "github.com/polyva-3d/internal/http/handlers/admin"
	publichandlers "github.com/polyva-3d/internal/http/handlers/public"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "polyva"
	}
	redisClient := cache.Client()
	loginLimit := NewAttemptLimit(redisPrefix, AttemptScopeLogin, cfg.Security.LoginRateLimit, "error.login_too_many")
	adminLoginLimit := NewAttemptLimit(redisPrefix, AttemptScopeAdminLogin, cfg.Security.LoginRateLimit, "error.login_too_many")
	otpLimit := NewAttemptLimit(redisPrefix, AttemptScopeOTP, cfg.Security.OTPRateLimit, "error.otp_too_many")

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 静态文件服务（上传的图片）- 必须放在最前面
	uploadDir := strings.TrimSpace(cfg.Upload.Dir)
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	r.Static("/uploads", uploadDir)

	// 桌面客户端安装包下载
	downloadRoute := strings.TrimRight(strings.TrimSpace(cfg.Downloads.Route), "/")
	if downloadRoute == "" {
		downloadRoute = "/downloads"
	}
	r.GET(downloadRoute+"/:file", DownloadHandler(cfg.Downloads.Dir))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/config", publicHandler.GetConfig)
		apiV1.GET("/share/:token", publicHandler.GetSharedModel)
		apiV1.GET("/showcase", publicHandler.GetShowcase)

		// 外部生成服务回调（共享密钥鉴权）
		apiV1.POST("/generate/callback/:id", publicHandler.GenerationCallback)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.GET("/captcha", publicHandler.GetCaptcha)
			auth.POST("/signup", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.Signup)
			auth.POST("/verify-email", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.VerifyEmail)
			auth.POST("/resend-otp", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.ResendOTP)
			auth.POST("/login", AttemptLimitMiddleware(redisClient, loginLimit, SubjectByEmail), publicHandler.Login)
			auth.POST("/login/otp", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.VerifyLoginOTP)
			auth.POST("/forgot-password", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.ForgotPassword)
			auth.POST("/reset-password", AttemptLimitMiddleware(redisClient, otpLimit, SubjectByEmail), publicHandler.ResetPassword)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(c.AuthService, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.GET("/me/login-logs", publicHandler.GetMyLoginLogs)
			user.PUT("/me/profile", publicHandler.UpdateProfile)
			user.PUT("/me/password", publicHandler.ChangePassword)

			user.GET("/models", publicHandler.ListMyModels)
			user.GET("/models/:id", publicHandler.GetMyModel)
			user.PUT("/models/:id", publicHandler.UpdateMyModel)
			user.DELETE("/models/:id", publicHandler.DeleteMyModel)
			user.POST("/models/:id/share", publicHandler.ShareModel)
			user.DELETE("/models/:id/share", publicHandler.UnshareModel)

			user.POST("/upload", publicHandler.UploadImage)

			user.POST("/generate/text", publicHandler.GenerateFromText)
			user.POST("/generate/image", publicHandler.GenerateFromImage)
			user.GET("/generate/jobs/:id", publicHandler.GetGenerationJob)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", AttemptLimitMiddleware(redisClient, adminLoginLimit, SubjectByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(UserJWTAuthMiddleware(c.AuthService, c.UserRepo), AdminMiddleware(c.AuthzService))
			{
				authorized.GET("/me", adminHandler.GetAdminMe)
				authorized.GET("/stats", adminHandler.GetDashboardStats)

				// 用户管理
				authorized.GET("/users", adminHandler.GetAdminUsers)
				authorized.GET("/users/:id", adminHandler.GetAdminUser)
				authorized.PUT("/users/:id", adminHandler.UpdateAdminUser)
				authorized.POST("/users/:id/toggle-block", adminHandler.ToggleAdminUserBlock)
				authorized.DELETE("/users/:id", adminHandler.DeleteAdminUser)
				authorized.GET("/login-logs", adminHandler.GetUserLoginLogs)
				authorized.GET("/audit-logs", adminHandler.GetAdminAuditLogs)

				// 模型管理
				authorized.GET("/models", adminHandler.GetAdminModels)
				authorized.GET("/models/:id", adminHandler.GetAdminModel)
				authorized.DELETE("/models/:id", adminHandler.DeleteAdminModel)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.POST("/authz/reload", adminHandler.ReloadAuthzPolicy)
				authorized.GET("/authz/users/:id/roles", adminHandler.GetAuthzUserRoles)
				authorized.PUT("/authz/users/:id/role", adminHandler.AssignAuthzUserRole)
				authorized.DELETE("/authz/users/:id/role", adminHandler.ResetAuthzUserRole)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

// DownloadHandler 以附件形式返回下载目录中的安装包，仅允许目录内的普通文件
func DownloadHandler(dir string) gin.HandlerFunc {
	root := strings.TrimSpace(dir)
	return func(c *gin.Context) {
		name := filepath.Base(strings.TrimSpace(c.Param("file")))
		if root == "" || name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") {
			response.Error(c, response.CodeNotFound, i18n.T(i18n.ResolveLocale(c), "error.download_not_found"))
			return
		}
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			response.Error(c, response.CodeNotFound, i18n.T(i18n.ResolveLocale(c), "error.download_not_found"))
			return
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.FileAttachment(path, name)
	}
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
