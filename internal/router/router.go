package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agent-console/internal/authz"
	"github.com/agent-console/internal/cache"
	"github.com/agent-console/internal/config"
	adminhandlers "github.com/agent-console/internal/http/handlers/admin"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ac"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁，请 %d 秒后再试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 认证接口（无需鉴权）
		auth := apiV1.Group("/auth")
		{
			auth.GET("/captcha", adminHandler.GetCaptcha)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)
		}

		// 需要鉴权的接口
		authorized := apiV1.Group("")
		authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), RBACMiddleware(c.AuthzService))
		{
			// 当前用户
			authorized.GET("/me", adminHandler.GetUserInfo)
			authorized.GET("/me/menus", adminHandler.GetUserMenus)
			authorized.PUT("/me/password", adminHandler.ChangePassword)
			authorized.GET("/me/invitation", adminHandler.GetInvitationInfo)
			authorized.GET("/me/subordinates", adminHandler.GetSubordinates)

			// 用户管理
			authorized.GET("/users", adminHandler.GetUsers)
			authorized.POST("/users", adminHandler.CreateUser)
			authorized.GET("/users/:id", adminHandler.GetUser)
			authorized.PUT("/users/:id", adminHandler.UpdateUser)
			authorized.DELETE("/users/:id", adminHandler.DeleteUser)
			authorized.POST("/users/:id/reset-password", adminHandler.ResetUserPassword)

			// 角色管理
			authorized.GET("/roles", adminHandler.GetRoles)
			authorized.POST("/roles", adminHandler.CreateRole)
			authorized.GET("/roles/creatable", adminHandler.GetCreatableRoles)
			authorized.GET("/roles/agent-permission-catalog", adminHandler.GetAgentPermissionCatalog)
			authorized.GET("/roles/:id", adminHandler.GetRole)
			authorized.PUT("/roles/:id", adminHandler.UpdateRole)
			authorized.DELETE("/roles/:id", adminHandler.DeleteRole)
			authorized.GET("/roles/:id/agent-permissions", adminHandler.GetRoleAgentPermissions)
			authorized.PUT("/roles/:id/agent-permissions", adminHandler.UpdateRoleAgentPermissions)
			authorized.GET("/roles/:id/apis", adminHandler.GetRoleApis)
			authorized.PUT("/roles/:id/apis", adminHandler.UpdateRoleApis)
			authorized.GET("/roles/:id/menus", adminHandler.GetRoleMenus)
			authorized.PUT("/roles/:id/menus", adminHandler.UpdateRoleMenus)

			// 积分账本
			authorized.GET("/points/info", adminHandler.GetPointsInfo)
			authorized.POST("/points/recharge", adminHandler.Recharge)
			authorized.POST("/points/consume", adminHandler.Consume)
			authorized.POST("/points/transfer", adminHandler.Transfer)
			authorized.POST("/points/exchange", adminHandler.RedeemExchangeCode)
			authorized.GET("/points/recharge-records", adminHandler.GetRechargeRecords)
			authorized.GET("/points/usage-records", adminHandler.GetUsageRecords)

			// 兑换码管理
			authorized.POST("/exchange-codes", adminHandler.CreateExchangeCode)
			authorized.GET("/exchange-codes", adminHandler.GetExchangeCodes)

			// 菜单管理
			authorized.GET("/menus", adminHandler.GetMenus)
			authorized.GET("/menus/tree", adminHandler.GetMenuTree)
			authorized.POST("/menus", adminHandler.CreateMenu)
			authorized.PUT("/menus/:id", adminHandler.UpdateMenu)
			authorized.DELETE("/menus/:id", adminHandler.DeleteMenu)

			// 接口目录
			authorized.GET("/apis", adminHandler.GetApis)
			authorized.POST("/apis", adminHandler.CreateApi)
			authorized.PUT("/apis/:id", adminHandler.UpdateApi)
			authorized.DELETE("/apis/:id", adminHandler.DeleteApi)
			authorized.GET("/apis/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildPermissionCatalog(r))
			})

			// 公告管理
			authorized.GET("/announcements", adminHandler.GetAnnouncements)
			authorized.POST("/announcements", adminHandler.CreateAnnouncement)
			authorized.GET("/announcements/:id", adminHandler.GetAnnouncement)
			authorized.PUT("/announcements/:id", adminHandler.UpdateAnnouncement)
			authorized.DELETE("/announcements/:id", adminHandler.DeleteAnnouncement)

			// 系统配置
			authorized.GET("/sys-configs", adminHandler.GetSysConfigs)
			authorized.GET("/sys-configs/:key", adminHandler.GetSysConfig)
			authorized.PUT("/sys-configs", adminHandler.SetSysConfig)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		if strings.HasPrefix(item.Path, "/api/v1/auth/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
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

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	return segments[0]
}
