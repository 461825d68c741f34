package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExchangeCodeRepository 兑换码数据访问接口
type ExchangeCodeRepository interface {
	GetByID(id uint) (*models.ExchangeCode, error)
	GetByCode(code string) (*models.ExchangeCode, error)
	GetByCodeForUpdate(code string) (*models.ExchangeCode, error)
	CountByCode(code string) (int64, error)
	Create(code *models.ExchangeCode) error
	Update(code *models.ExchangeCode) error
	List(filter ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error)
	ExpireOverdue(now time.Time) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormExchangeCodeRepository
}

// GormExchangeCodeRepository GORM 兑换码仓储实现
type GormExchangeCodeRepository struct {
	db *gorm.DB
}

// NewExchangeCodeRepository 创建兑换码仓库
func NewExchangeCodeRepository(db *gorm.DB) *GormExchangeCodeRepository {
	return &GormExchangeCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormExchangeCodeRepository) WithTx(tx *gorm.DB) *GormExchangeCodeRepository {
	if tx == nil {
		return r
	}
	return &GormExchangeCodeRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormExchangeCodeRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取兑换码
func (r *GormExchangeCodeRepository) GetByID(id uint) (*models.ExchangeCode, error) {
	if id == 0 {
		return nil, nil
	}
	var code models.ExchangeCode
	if err := r.db.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByCode 根据码值获取兑换码
func (r *GormExchangeCodeRepository) GetByCode(code string) (*models.ExchangeCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var record models.ExchangeCode
	if err := r.db.Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByCodeForUpdate 根据码值加锁获取兑换码
func (r *GormExchangeCodeRepository) GetByCodeForUpdate(code string) (*models.ExchangeCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var record models.ExchangeCode
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// CountByCode 统计码值占用数（用于唯一性检查）
func (r *GormExchangeCodeRepository) CountByCode(code string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.ExchangeCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建兑换码
func (r *GormExchangeCodeRepository) Create(code *models.ExchangeCode) error {
	return r.db.Create(code).Error
}

// Update 更新兑换码
func (r *GormExchangeCodeRepository) Update(code *models.ExchangeCode) error {
	return r.db.Save(code).Error
}

// List 分页查询兑换码
func (r *GormExchangeCodeRepository) List(filter ExchangeCodeListFilter) ([]models.ExchangeCode, int64, error) {
	query := r.db.Model(&models.ExchangeCode{})
	if filter.Code != "" {
		query = query.Where("code LIKE ?", "%"+filter.Code+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatorID != 0 {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var codes []models.ExchangeCode
	if err := query.Order("id DESC").Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// ExpireOverdue 将过期未用的兑换码批量置为过期
func (r *GormExchangeCodeRepository) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&models.ExchangeCode{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", constants.ExchangeCodeStatusUnused, now).
		Update("status", constants.ExchangeCodeStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
