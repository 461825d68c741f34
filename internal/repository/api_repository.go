package repository

import (
	"errors"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// ApiRepository 接口目录数据访问接口
type ApiRepository interface {
	GetByID(id uint) (*models.Api, error)
	GetByPathMethod(path, method string) (*models.Api, error)
	ListAll() ([]models.Api, error)
	Create(api *models.Api) error
	Update(api *models.Api) error
	Delete(api *models.Api) error
	WithTx(tx *gorm.DB) *GormApiRepository
}

// GormApiRepository GORM 接口目录仓储实现
type GormApiRepository struct {
	db *gorm.DB
}

// NewApiRepository 创建接口目录仓库
func NewApiRepository(db *gorm.DB) *GormApiRepository {
	return &GormApiRepository{db: db}
}

// WithTx 绑定事务
func (r *GormApiRepository) WithTx(tx *gorm.DB) *GormApiRepository {
	if tx == nil {
		return r
	}
	return &GormApiRepository{db: tx}
}

// GetByID 根据 ID 获取接口
func (r *GormApiRepository) GetByID(id uint) (*models.Api, error) {
	if id == 0 {
		return nil, nil
	}
	var api models.Api
	if err := r.db.First(&api, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &api, nil
}

// GetByPathMethod 根据路径和方法获取接口
func (r *GormApiRepository) GetByPathMethod(path, method string) (*models.Api, error) {
	var api models.Api
	if err := r.db.Where("path = ? AND method = ?", path, method).First(&api).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &api, nil
}

// ListAll 获取全部接口
func (r *GormApiRepository) ListAll() ([]models.Api, error) {
	var apis []models.Api
	if err := r.db.Order("tags ASC, path ASC, method ASC").Find(&apis).Error; err != nil {
		return nil, err
	}
	return apis, nil
}

// Create 创建接口
func (r *GormApiRepository) Create(api *models.Api) error {
	return r.db.Create(api).Error
}

// Update 更新接口
func (r *GormApiRepository) Update(api *models.Api) error {
	return r.db.Save(api).Error
}

// Delete 删除接口（软删除）
func (r *GormApiRepository) Delete(api *models.Api) error {
	return r.db.Delete(api).Error
}
