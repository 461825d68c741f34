package models

import (
	"time"

	"gorm.io/gorm"
)

// Menu 前端菜单表
type Menu struct {
	ID        uint           `gorm:"primarykey" json:"id"`                          // 主键
	Name      string         `gorm:"type:varchar(64);not null" json:"name"`         // 菜单名称
	Path      string         `gorm:"type:varchar(128);default:''" json:"path"`      // 前端路由路径
	Component string         `gorm:"type:varchar(128);default:''" json:"component"` // 前端组件
	Icon      string         `gorm:"type:varchar(64);default:''" json:"icon"`       // 图标
	ParentID  uint           `gorm:"not null;default:0;index" json:"parent_id"`     // 父菜单ID（0 为根）
	SortOrder int            `gorm:"not null;default:0;index" json:"sort_order"`    // 排序权重
	IsHidden  bool           `gorm:"not null;default:false" json:"is_hidden"`       // 是否隐藏
	Meta      JSON           `gorm:"type:json" json:"meta,omitempty"`               // 附加元信息
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                    // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间
	Children  []*Menu        `gorm:"-" json:"children,omitempty"`                   // 子菜单（树形返回用）
}

// TableName 指定表名
func (Menu) TableName() string {
	return "menus"
}
