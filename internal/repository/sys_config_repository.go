package repository

import (
	"errors"
	"strings"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// SysConfigRepository 系统配置数据访问接口
type SysConfigRepository interface {
	GetByKey(key string) (*models.SysConfig, error)
	ListAll() ([]models.SysConfig, error)
	Upsert(key, value, desc string) error
}

// GormSysConfigRepository GORM 系统配置仓储实现
type GormSysConfigRepository struct {
	db *gorm.DB
}

// NewSysConfigRepository 创建系统配置仓库
func NewSysConfigRepository(db *gorm.DB) *GormSysConfigRepository {
	return &GormSysConfigRepository{db: db}
}

// GetByKey 根据键获取配置
func (r *GormSysConfigRepository) GetByKey(key string) (*models.SysConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var config models.SysConfig
	if err := r.db.Where("key = ?", key).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// ListAll 获取全部配置
func (r *GormSysConfigRepository) ListAll() ([]models.SysConfig, error) {
	var configs []models.SysConfig
	if err := r.db.Order("key ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Upsert 创建或更新配置
func (r *GormSysConfigRepository) Upsert(key, value, desc string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	var existing models.SysConfig
	err := r.db.Where("key = ?", key).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return r.db.Create(&models.SysConfig{Key: key, Value: value, Desc: desc}).Error
	}
	existing.Value = value
	if desc != "" {
		existing.Desc = desc
	}
	return r.db.Save(&existing).Error
}
