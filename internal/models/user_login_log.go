package models

import "time"

// UserLoginLog 登录日志（由异步任务落库）
type UserLoginLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`                           // 主键
	UserID     *uint     `gorm:"index" json:"user_id,omitempty"`                 // 用户ID（登录失败时可能为空）
	Username   string    `gorm:"type:varchar(64);index" json:"username"`         // 尝试登录的用户名
	Status     string    `gorm:"type:varchar(24);index;not null" json:"status"`  // 登录结果
	FailReason string    `gorm:"type:varchar(64);default:''" json:"fail_reason"` // 失败原因
	IP         string    `gorm:"type:varchar(64);default:''" json:"ip"`          // 来源 IP
	UserAgent  string    `gorm:"type:varchar(255);default:''" json:"user_agent"` // UA
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                        // 创建时间
}

// TableName 指定表名
func (UserLoginLog) TableName() string {
	return "user_login_logs"
}
