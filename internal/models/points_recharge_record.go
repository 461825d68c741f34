package models

import (
	"time"

	"gorm.io/gorm"
)

// PointsRechargeRecord 积分充值记录（不可变流水）
type PointsRechargeRecord struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                              // 主键
	UserID        uint           `gorm:"not null;index" json:"user_id"`                                     // 入账用户ID
	Amount        Money          `gorm:"type:decimal(20,2);not null" json:"amount"`                         // 支付金额（兑换码/转赠为 0）
	Points        int64          `gorm:"not null" json:"points"`                                            // 入账积分
	Method        string         `gorm:"type:varchar(24);index;not null" json:"method"`                     // 充值方式
	Status        string         `gorm:"type:varchar(24);index;not null;default:'completed'" json:"status"` // 状态
	TransactionID string         `gorm:"type:varchar(64);uniqueIndex" json:"transaction_id"`                // 外部交易号
	RelatedID     string         `gorm:"type:varchar(64);index" json:"related_id,omitempty"`                // 关联ID（转赠配对/兑换码）
	BalanceBefore int64          `gorm:"not null" json:"balance_before"`                                    // 变更前余额
	BalanceAfter  int64          `gorm:"not null" json:"balance_after"`                                     // 变更后余额
	Remark        string         `gorm:"type:varchar(255);default:''" json:"remark"`                        // 备注
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                        // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间
}

// TableName 指定表名
func (PointsRechargeRecord) TableName() string {
	return "points_recharge_records"
}
