package models

import (
	"time"

	"gorm.io/gorm"
)

// PointsUsageRecord 积分使用记录（不可变流水）
type PointsUsageRecord struct {
	ID            uint           `gorm:"primarykey" json:"id"`                               // 主键
	UserID        uint           `gorm:"not null;index" json:"user_id"`                      // 扣减用户ID
	Points        int64          `gorm:"not null" json:"points"`                             // 扣减积分
	UsageType     string         `gorm:"type:varchar(32);index;not null" json:"usage_type"`  // 使用类型
	RelatedID     string         `gorm:"type:varchar(64);index" json:"related_id,omitempty"` // 关联ID（转赠配对等）
	BalanceBefore int64          `gorm:"not null" json:"balance_before"`                     // 变更前余额
	BalanceAfter  int64          `gorm:"not null" json:"balance_after"`                      // 变更后余额
	Remark        string         `gorm:"type:varchar(255);default:''" json:"remark"`         // 备注
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (PointsUsageRecord) TableName() string {
	return "points_usage_records"
}
