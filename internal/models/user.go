package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（兼作代理账号，parent_user_id 为 -1 表示无上级）
type User struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                  // 主键
	Username       string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"` // 登录用户名
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`   // 邮箱
	PasswordHash   string         `gorm:"not null" json:"-"`                                     // 密码哈希（不返回给前端）
	Alias          string         `gorm:"type:varchar(64);default:''" json:"alias"`              // 显示昵称
	Phone          string         `gorm:"type:varchar(32);default:''" json:"phone"`              // 联系电话
	IsActive       bool           `gorm:"not null;default:true;index" json:"is_active"`          // 是否启用
	IsSuperuser    bool           `gorm:"not null;default:false" json:"is_superuser"`            // 是否超级管理员
	ParentUserID   int64          `gorm:"not null;default:-1;index" json:"parent_user_id"`       // 上级用户ID（-1 表示无上级）
	InvitationCode string         `gorm:"type:varchar(16);uniqueIndex" json:"invitation_code"`   // 邀请码（6 位大写字母+数字）
	PointsBalance  int64          `gorm:"not null;default:0" json:"points_balance"`              // 积分余额
	TokenVersion   uint64         `gorm:"not null;default:0" json:"-"`                           // Token 版本（用于全量失效）
	LastLoginAt    *time.Time     `json:"last_login_at"`                                         // 最后登录时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// HasParent 是否存在上级用户
func (u *User) HasParent() bool {
	return u.ParentUserID > 0
}
