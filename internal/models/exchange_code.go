package models

import (
	"time"

	"gorm.io/gorm"
)

// ExchangeCode 积分兑换码
type ExchangeCode struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                           // 主键
	Code         string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`              // 兑换码
	Points       int64          `gorm:"not null" json:"points"`                                         // 积分面额
	Status       string         `gorm:"type:varchar(24);index;not null;default:'unused'" json:"status"` // 状态
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at"`                                        // 过期时间
	UsedAt       *time.Time     `gorm:"index" json:"used_at"`                                           // 使用时间
	UsedByUserID *uint          `gorm:"index" json:"used_by_user_id,omitempty"`                         // 使用者用户ID
	CreatorID    uint           `gorm:"not null;index" json:"creator_id"`                               // 创建者用户ID
	Remark       string         `gorm:"type:varchar(255);default:''" json:"remark"`                     // 备注
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                     // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间
}

// TableName 指定表名
func (ExchangeCode) TableName() string {
	return "exchange_codes"
}
