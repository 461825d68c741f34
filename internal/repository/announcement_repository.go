package repository

import (
	"errors"
	"time"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// AnnouncementRepository 公告数据访问接口
type AnnouncementRepository interface {
	GetByID(id uint) (*models.Announcement, error)
	List(filter AnnouncementListFilter) ([]models.Announcement, int64, error)
	Create(announcement *models.Announcement) error
	Update(announcement *models.Announcement) error
	Delete(announcement *models.Announcement) error
}

// GormAnnouncementRepository GORM 公告仓储实现
type GormAnnouncementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository 创建公告仓库
func NewAnnouncementRepository(db *gorm.DB) *GormAnnouncementRepository {
	return &GormAnnouncementRepository{db: db}
}

// GetByID 根据 ID 获取公告
func (r *GormAnnouncementRepository) GetByID(id uint) (*models.Announcement, error) {
	if id == 0 {
		return nil, nil
	}
	var announcement models.Announcement
	if err := r.db.First(&announcement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &announcement, nil
}

// List 分页查询公告
func (r *GormAnnouncementRepository) List(filter AnnouncementListFilter) ([]models.Announcement, int64, error) {
	query := r.db.Model(&models.Announcement{})
	if filter.Keyword != "" {
		query = query.Where("title LIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyPublished {
		now := time.Now()
		query = query.Where("status = ?", "published").
			Where("published_at IS NULL OR published_at <= ?", now).
			Where("expires_at IS NULL OR expires_at > ?", now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var announcements []models.Announcement
	if err := query.Order("id DESC").Find(&announcements).Error; err != nil {
		return nil, 0, err
	}
	return announcements, total, nil
}

// Create 创建公告
func (r *GormAnnouncementRepository) Create(announcement *models.Announcement) error {
	return r.db.Create(announcement).Error
}

// Update 更新公告
func (r *GormAnnouncementRepository) Update(announcement *models.Announcement) error {
	return r.db.Save(announcement).Error
}

// Delete 删除公告（软删除）
func (r *GormAnnouncementRepository) Delete(announcement *models.Announcement) error {
	return r.db.Delete(announcement).Error
}
