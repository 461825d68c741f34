package main

import (
	"flag"

	"github.com/agent-console/internal/config"
	"github.com/agent-console/internal/logger"
	"github.com/agent-console/internal/models"
)

// 独立种子程序：建表并写入内置角色与默认超级管理员。
// 用于不经过 API 进程的初始化场景（容器 init、CI 等）。
func main() {
	var username, password string
	flag.StringVar(&username, "username", "", "默认超级管理员用户名（留空用配置或 admin）")
	flag.StringVar(&password, "password", "", "默认超级管理员密码（留空用配置或 admin123）")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}
	if err := models.InitSystemRoles(); err != nil {
		stdLog.Fatalf("初始化内置角色失败: %v", err)
	}

	if username == "" {
		username = cfg.Admin.Username
	}
	if password == "" {
		password = cfg.Admin.Password
	}
	if err := models.InitDefaultSuperuser(username, password); err != nil {
		stdLog.Fatalf("初始化默认超级管理员失败: %v", err)
	}

	stdLog.Println("种子数据初始化完成")
}
