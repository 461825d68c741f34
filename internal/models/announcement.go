package models

import (
	"time"

	"gorm.io/gorm"
)

// Announcement 系统公告
type Announcement struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`                       // 标题
	Content     string         `gorm:"type:text" json:"content"`                                      // 内容
	Status      string         `gorm:"type:varchar(24);index;not null;default:'draft'" json:"status"` // 状态
	PublishedAt *time.Time     `gorm:"index" json:"published_at"`                                     // 发布时间
	ExpiresAt   *time.Time     `gorm:"index" json:"expires_at"`                                       // 下线时间
	CreatorID   uint           `gorm:"not null;index" json:"creator_id"`                              // 创建者用户ID
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Announcement) TableName() string {
	return "announcements"
}
