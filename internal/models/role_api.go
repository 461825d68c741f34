package models

import "time"

// RoleApi 角色-接口关联表
type RoleApi struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                        // 主键
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_role_api,priority:1" json:"role_id"` // 角色ID
	ApiID     uint      `gorm:"not null;uniqueIndex:idx_role_api,priority:2" json:"api_id"`  // 接口ID
	CreatedAt time.Time `json:"created_at"`                                                  // 创建时间
}

// TableName 指定表名
func (RoleApi) TableName() string {
	return "role_apis"
}
