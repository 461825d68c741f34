package models

import "time"

// UserRole 用户-角色关联表
type UserRole struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                         // 主键
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_role,priority:1" json:"user_id"` // 用户ID
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_user_role,priority:2" json:"role_id"` // 角色ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
}

// TableName 指定表名
func (UserRole) TableName() string {
	return "user_roles"
}
