package models

import "time"

// SysConfig 系统配置键值表
type SysConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`                             // 主键
	Key       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"` // 配置键
	Value     string    `gorm:"type:text" json:"value"`                           // 配置值
	Desc      string    `gorm:"type:varchar(255);default:''" json:"desc"`         // 配置说明
	CreatedAt time.Time `json:"created_at"`                                       // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (SysConfig) TableName() string {
	return "sys_configs"
}
