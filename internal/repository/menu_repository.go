package repository

import (
	"errors"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// MenuRepository 菜单数据访问接口
type MenuRepository interface {
	GetByID(id uint) (*models.Menu, error)
	ListAll() ([]models.Menu, error)
	ListByIDs(ids []uint) ([]models.Menu, error)
	CountChildren(parentID uint) (int64, error)
	Create(menu *models.Menu) error
	Update(menu *models.Menu) error
	Delete(menu *models.Menu) error
	WithTx(tx *gorm.DB) *GormMenuRepository
}

// GormMenuRepository GORM 菜单仓储实现
type GormMenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository 创建菜单仓库
func NewMenuRepository(db *gorm.DB) *GormMenuRepository {
	return &GormMenuRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMenuRepository) WithTx(tx *gorm.DB) *GormMenuRepository {
	if tx == nil {
		return r
	}
	return &GormMenuRepository{db: tx}
}

// GetByID 根据 ID 获取菜单
func (r *GormMenuRepository) GetByID(id uint) (*models.Menu, error) {
	if id == 0 {
		return nil, nil
	}
	var menu models.Menu
	if err := r.db.First(&menu, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &menu, nil
}

// ListAll 获取全部菜单
func (r *GormMenuRepository) ListAll() ([]models.Menu, error) {
	var menus []models.Menu
	if err := r.db.Order("sort_order ASC, id ASC").Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

// ListByIDs 批量获取菜单
func (r *GormMenuRepository) ListByIDs(ids []uint) ([]models.Menu, error) {
	if len(ids) == 0 {
		return []models.Menu{}, nil
	}
	var menus []models.Menu
	if err := r.db.Where("id IN ?", ids).Order("sort_order ASC, id ASC").Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

// CountChildren 统计子菜单数
func (r *GormMenuRepository) CountChildren(parentID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Menu{}).Where("parent_id = ?", parentID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建菜单
func (r *GormMenuRepository) Create(menu *models.Menu) error {
	return r.db.Create(menu).Error
}

// Update 更新菜单
func (r *GormMenuRepository) Update(menu *models.Menu) error {
	return r.db.Save(menu).Error
}

// Delete 删除菜单（软删除）
func (r *GormMenuRepository) Delete(menu *models.Menu) error {
	return r.db.Delete(menu).Error
}
