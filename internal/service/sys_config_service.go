package service

import (
	"strings"

	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
)

// SysConfigService 系统配置服务
type SysConfigService struct {
	configRepo repository.SysConfigRepository
}

// NewSysConfigService 创建系统配置服务
func NewSysConfigService(configRepo repository.SysConfigRepository) *SysConfigService {
	return &SysConfigService{configRepo: configRepo}
}

// Get 按键获取配置
func (s *SysConfigService) Get(key string) (*models.SysConfig, error) {
	config, err := s.configRepo.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrSysConfigNotFound
	}
	return config, nil
}

// GetValue 按键获取配置值，缺省时返回 fallback
func (s *SysConfigService) GetValue(key, fallback string) string {
	config, err := s.configRepo.GetByKey(key)
	if err != nil || config == nil {
		return fallback
	}
	return config.Value
}

// ListAll 获取全部配置
func (s *SysConfigService) ListAll() ([]models.SysConfig, error) {
	return s.configRepo.ListAll()
}

// Set 写入配置
func (s *SysConfigService) Set(key, value, desc string) error {
	if strings.TrimSpace(key) == "" {
		return ErrSysConfigNotFound
	}
	return s.configRepo.Upsert(key, value, desc)
}
