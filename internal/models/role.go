package models

import (
	"time"

	"gorm.io/gorm"
)

// Role 角色表
type Role struct {
	ID               uint           `gorm:"primarykey" json:"id"`                              // 主键
	Name             string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"` // 角色名称
	Desc             string         `gorm:"type:varchar(255);default:''" json:"desc"`          // 角色描述
	IsAgentRole      bool           `gorm:"not null;default:false;index" json:"is_agent_role"` // 是否代理角色
	UserLevel        int            `gorm:"not null;default:99;index" json:"user_level"`       // 角色层级（数值越小层级越高）
	AgentPermissions StringArray    `gorm:"type:json" json:"agent_permissions"`                // 代理权限标签集合
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}
