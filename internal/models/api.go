package models

import (
	"time"

	"gorm.io/gorm"
)

// Api 后端接口表（casbin 策略来源）
type Api struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                                               // 主键
	Path      string         `gorm:"type:varchar(128);not null;uniqueIndex:idx_api_path_method,priority:1" json:"path"`  // 接口路径
	Method    string         `gorm:"type:varchar(16);not null;uniqueIndex:idx_api_path_method,priority:2" json:"method"` // HTTP 方法
	Summary   string         `gorm:"type:varchar(255);default:''" json:"summary"`                                        // 接口说明
	Tags      string         `gorm:"type:varchar(64);default:'';index" json:"tags"`                                      // 分组标签
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                                            // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                                                         // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                                     // 软删除时间
}

// TableName 指定表名
func (Api) TableName() string {
	return "apis"
}
