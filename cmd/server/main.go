package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/agent-console/internal/app"
	"github.com/agent-console/internal/config"
	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/models"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.JWT.SecretKey) {
			stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
	} else if isWeakSecret(cfg.JWT.SecretKey) {
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化系统内置角色
	if err := models.InitSystemRoles(); err != nil {
		stdLog.Printf("警告: 初始化内置角色失败: %v", err)
	}

	// 初始化默认超级管理员
	adminUser := cfg.Admin.Username
	adminPass := cfg.Admin.Password
	if env := os.Getenv("AC_DEFAULT_ADMIN_USERNAME"); env != "" {
		adminUser = env
	}
	if env := os.Getenv("AC_DEFAULT_ADMIN_PASSWORD"); env != "" {
		adminPass = env
	}
	if cfg.Server.Mode == "release" && adminPass == "" {
		stdLog.Printf("警告: 未设置默认超级管理员密码，已跳过初始化")
	} else if err := models.InitDefaultSuperuser(adminUser, adminPass); err != nil {
		stdLog.Printf("警告: 初始化默认超级管理员失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
