package provider

import (
	"github.com/agent-console/internal/authz"
	"github.com/agent-console/internal/cache"
	"github.com/agent-console/internal/config"
	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/queue"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo         repository.UserRepository
	RoleRepo         repository.RoleRepository
	PointsRepo       repository.PointsRepository
	ExchangeCodeRepo repository.ExchangeCodeRepository
	MenuRepo         repository.MenuRepository
	ApiRepo          repository.ApiRepository
	AnnouncementRepo repository.AnnouncementRepository
	SysConfigRepo    repository.SysConfigRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	PermissionService   *service.PermissionService
	HierarchyService    *service.HierarchyService
	RoleService         *service.RoleService
	AgentService        *service.AgentService
	PointsService       *service.PointsService
	MenuService         *service.MenuService
	AnnouncementService *service.AnnouncementService
	SysConfigService    *service.SysConfigService
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

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.RoleRepo = repository.NewRoleRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.ExchangeCodeRepo = repository.NewExchangeCodeRepository(db)
	c.MenuRepo = repository.NewMenuRepository(db)
	c.ApiRepo = repository.NewApiRepository(db)
	c.AnnouncementRepo = repository.NewAnnouncementRepository(db)
	c.SysConfigRepo = repository.NewSysConfigRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.rebuildAuthzPolicies(); err != nil {
		logger.Warnw("provider_rebuild_authz_failed", "error", err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.PermissionService = service.NewPermissionService(c.UserRepo)
	c.HierarchyService = service.NewHierarchyService(c.UserRepo)
	c.RoleService = service.NewRoleService(c.RoleRepo, c.UserRepo, c.PermissionService)
	c.AgentService = service.NewAgentService(c.UserRepo, c.PermissionService, c.HierarchyService, c.RoleService)
	c.PointsService = service.NewPointsService(c.PointsRepo, c.UserRepo, c.ExchangeCodeRepo)
	c.MenuService = service.NewMenuService(c.MenuRepo, c.UserRepo, c.RoleRepo)
	c.AnnouncementService = service.NewAnnouncementService(c.AnnouncementRepo)
	c.SysConfigService = service.NewSysConfigService(c.SysConfigRepo)
}

// rebuildAuthzPolicies 启动时按数据库全量重建授权策略
func (c *Container) rebuildAuthzPolicies() error {
	roles, err := c.RoleRepo.ListAll()
	if err != nil {
		return err
	}

	snapshot := authz.Snapshot{}
	userRoles := make(map[uint][]uint)
	for _, role := range roles {
		apis, err := c.RoleRepo.ListApisByRoleID(role.ID)
		if err != nil {
			return err
		}
		policies := make([]authz.Policy, 0, len(apis))
		for _, api := range apis {
			policies = append(policies, authz.Policy{Object: api.Path, Action: api.Method})
		}
		snapshot.Roles = append(snapshot.Roles, authz.RoleBinding{RoleID: role.ID, Policies: policies})

		userIDs, err := c.RoleRepo.ListUserIDs(role.ID)
		if err != nil {
			return err
		}
		for _, userID := range userIDs {
			userRoles[userID] = append(userRoles[userID], role.ID)
		}
	}
	for userID, roleIDs := range userRoles {
		snapshot.Users = append(snapshot.Users, authz.UserBinding{UserID: userID, RoleIDs: roleIDs})
	}

	return c.AuthzService.Rebuild(snapshot)
}
