package provider

import (
	"context"
	"time"

	"github.com/polyva-3d/internal/authz"
	"github.com/polyva-3d/internal/cache"
	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/generation"
	"github.com/polyva-3d/internal/jobstore"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/queue"
	"github.com/polyva-3d/internal/repository"
	"github.com/polyva-3d/internal/service"
	"github.com/polyva-3d/internal/storage"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Storage     storage.Storage
	JobStore    jobstore.Store

	// Repositories
	UserRepo          repository.UserRepository
	ModelRepo         repository.ModelRepository
	UserLoginLogRepo  repository.UserLoginLogRepository
	AdminAuditLogRepo repository.AdminAuditLogRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	EmailService        *service.EmailService
	MailDispatcher      *service.MailDispatcher
	CaptchaService      *service.CaptchaService
	UploadService       *service.UploadService
	StorageCleaner      *service.StorageCleaner
	ModelService        *service.ModelService
	GenerationService   *service.GenerationService
	AdminUserService    *service.AdminUserService
	UserLoginLogService *service.UserLoginLogService
	AdminAuditService   *service.AdminAuditService
	DashboardService    *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化基础设施
	c.initInfrastructure()

	// 2. 初始化 Repositories
	c.initRepositories(models.DB)

	// 3. 初始化 Services
	c.initServices(models.DB)

	return c
}

func (c *Container) initInfrastructure() {
	store, err := storage.New(context.Background(), c.Config.Storage, c.Config.Upload.Dir)
	if err != nil {
		logger.Errorw("provider_init_storage_failed", "driver", c.Config.Storage.Driver, "error", err)
		store = storage.NewLocalStorage(c.Config.Upload.Dir, c.Config.Storage.PublicBaseURL)
	}
	c.Storage = store

	ttl := time.Duration(c.Config.Generation.JobTTLSeconds) * time.Second
	if client := cache.Client(); client != nil {
		c.JobStore = jobstore.NewRedisStore(client, cache.BuildKey(""), ttl)
	} else {
		c.JobStore = jobstore.NewMemoryStore(ttl)
	}
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.ModelRepo = repository.NewModelRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
	c.AdminAuditLogRepo = repository.NewAdminAuditLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.MailDispatcher = service.NewMailDispatcher(c.EmailService, c.QueueClient)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.AuthService, c.MailDispatcher)
	c.UploadService = service.NewUploadService(c.Config, c.Storage)
	c.StorageCleaner = service.NewStorageCleaner(c.UploadService, c.QueueClient)
	c.ModelService = service.NewModelService(c.ModelRepo, c.StorageCleaner)
	c.AdminUserService = service.NewAdminUserService(c.UserRepo, c.ModelRepo, c.StorageCleaner)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AdminAuditService = service.NewAdminAuditService(c.AdminAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)

	var generationClient service.GenerationClient
	if !c.Config.Generation.DemoMode {
		client, err := generation.NewClient(generation.Config{
			BaseURL: c.Config.Generation.BaseURL,
			APIKey:  c.Config.Generation.APIKey,
			Timeout: time.Duration(c.Config.Generation.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Warnw("provider_init_generation_client_failed", "error", err)
		} else {
			generationClient = client
		}
	}
	c.GenerationService = service.NewGenerationService(
		&c.Config.Generation,
		c.JobStore,
		generationClient,
		c.ModelRepo,
		c.UploadService,
		c.StorageCleaner,
	)
}
