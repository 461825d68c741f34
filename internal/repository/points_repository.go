package repository

import (
	"errors"
	"strings"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// PointsRepository 积分流水数据访问接口
type PointsRepository interface {
	CreateRechargeRecord(record *models.PointsRechargeRecord) error
	CreateUsageRecord(record *models.PointsUsageRecord) error
	GetRechargeByTransactionID(transactionID string) (*models.PointsRechargeRecord, error)
	ListRechargeRecords(filter RechargeRecordListFilter) ([]models.PointsRechargeRecord, int64, error)
	ListUsageRecords(filter UsageRecordListFilter) ([]models.PointsUsageRecord, int64, error)
	SumRechargePoints(userID uint) (int64, error)
	SumUsagePoints(userID uint) (int64, error)
	SumUsagePointsAll() (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPointsRepository
}

// GormPointsRepository GORM 积分流水仓储实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分流水仓库
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) *GormPointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormPointsRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateRechargeRecord 创建充值记录
func (r *GormPointsRepository) CreateRechargeRecord(record *models.PointsRechargeRecord) error {
	return r.db.Create(record).Error
}

// CreateUsageRecord 创建使用记录
func (r *GormPointsRepository) CreateUsageRecord(record *models.PointsUsageRecord) error {
	return r.db.Create(record).Error
}

// GetRechargeByTransactionID 按外部交易号查询充值记录
func (r *GormPointsRepository) GetRechargeByTransactionID(transactionID string) (*models.PointsRechargeRecord, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil
	}
	var record models.PointsRechargeRecord
	if err := r.db.Where("transaction_id = ?", transactionID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListRechargeRecords 分页查询充值记录
func (r *GormPointsRepository) ListRechargeRecords(filter RechargeRecordListFilter) ([]models.PointsRechargeRecord, int64, error) {
	query := r.db.Model(&models.PointsRechargeRecord{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.UserIDs) > 0 {
		query = query.Where("user_id IN ?", filter.UserIDs)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var records []models.PointsRechargeRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListUsageRecords 分页查询使用记录
func (r *GormPointsRepository) ListUsageRecords(filter UsageRecordListFilter) ([]models.PointsUsageRecord, int64, error) {
	query := r.db.Model(&models.PointsUsageRecord{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.UserIDs) > 0 {
		query = query.Where("user_id IN ?", filter.UserIDs)
	}
	if filter.UsageType != "" {
		query = query.Where("usage_type = ?", filter.UsageType)
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

	var records []models.PointsUsageRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SumRechargePoints 统计用户累计充值积分
func (r *GormPointsRepository) SumRechargePoints(userID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.PointsRechargeRecord{}).
		Where("user_id = ? AND status = ?", userID, "completed").
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumUsagePoints 统计用户累计使用积分
func (r *GormPointsRepository) SumUsagePoints(userID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.PointsUsageRecord{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumUsagePointsAll 统计全站累计使用积分
func (r *GormPointsRepository) SumUsagePointsAll() (int64, error) {
	var total int64
	if err := r.db.Model(&models.PointsUsageRecord{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
