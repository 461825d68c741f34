package models

import "time"

// RoleMenu 角色-菜单关联表
type RoleMenu struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                         // 主键
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_role_menu,priority:1" json:"role_id"` // 角色ID
	MenuID    uint      `gorm:"not null;uniqueIndex:idx_role_menu,priority:2" json:"menu_id"` // 菜单ID
	CreatedAt time.Time `json:"created_at"`                                                   // 创建时间
}

// TableName 指定表名
func (RoleMenu) TableName() string {
	return "role_menus"
}
