package repository

import (
	"errors"
	"strings"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
)

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	GetByID(id uint) (*models.Role, error)
	GetByName(name string) (*models.Role, error)
	GetByUserLevel(level int) (*models.Role, error)
	ListByIDs(ids []uint) ([]models.Role, error)
	ListAll() ([]models.Role, error)
	List(filter RoleListFilter) ([]models.Role, int64, error)
	Create(role *models.Role) error
	Update(role *models.Role) error
	Delete(role *models.Role) error
	CountUsers(roleID uint) (int64, error)
	ListUserIDs(roleID uint) ([]uint, error)
	DeleteUserBindings(roleID uint) error
	ListApisByRoleID(roleID uint) ([]models.Api, error)
	ListMenusByRoleID(roleID uint) ([]models.Menu, error)
	ReplaceApis(roleID uint, apiIDs []uint) error
	ReplaceMenus(roleID uint, menuIDs []uint) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormRoleRepository
}

// GormRoleRepository GORM 角色仓储实现
type GormRoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRoleRepository) WithTx(tx *gorm.DB) *GormRoleRepository {
	if tx == nil {
		return r
	}
	return &GormRoleRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormRoleRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取角色
func (r *GormRoleRepository) GetByID(id uint) (*models.Role, error) {
	if id == 0 {
		return nil, nil
	}
	var role models.Role
	if err := r.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// GetByName 根据名称获取角色
func (r *GormRoleRepository) GetByName(name string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var role models.Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// GetByUserLevel 按层级获取代理角色
func (r *GormRoleRepository) GetByUserLevel(level int) (*models.Role, error) {
	var role models.Role
	if err := r.db.Where("user_level = ? AND is_agent_role = ?", level, true).
		First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// ListByIDs 批量获取角色
func (r *GormRoleRepository) ListByIDs(ids []uint) ([]models.Role, error) {
	if len(ids) == 0 {
		return []models.Role{}, nil
	}
	var roles []models.Role
	if err := r.db.Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// ListAll 获取全部角色
func (r *GormRoleRepository) ListAll() ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.Order("user_level ASC, id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// List 分页查询角色
func (r *GormRoleRepository) List(filter RoleListFilter) ([]models.Role, int64, error) {
	query := r.db.Model(&models.Role{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("name LIKE ? OR `desc` LIKE ?", like, like)
	}
	if filter.IsAgentRole != nil {
		query = query.Where("is_agent_role = ?", *filter.IsAgentRole)
	}
	if filter.UserLevel != nil {
		query = query.Where("user_level = ?", *filter.UserLevel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var roles []models.Role
	if err := query.Order("user_level ASC, id ASC").Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// Create 创建角色
func (r *GormRoleRepository) Create(role *models.Role) error {
	return r.db.Create(role).Error
}

// Update 更新角色
func (r *GormRoleRepository) Update(role *models.Role) error {
	return r.db.Save(role).Error
}

// Delete 删除角色（软删除）
func (r *GormRoleRepository) Delete(role *models.Role) error {
	return r.db.Delete(role).Error
}

// CountUsers 统计绑定该角色的用户数
func (r *GormRoleRepository) CountUsers(roleID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.UserRole{}).Where("role_id = ?", roleID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListUserIDs 获取绑定该角色的用户ID列表
func (r *GormRoleRepository) ListUserIDs(roleID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.UserRole{}).Where("role_id = ?", roleID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteUserBindings 删除该角色的全部用户绑定
func (r *GormRoleRepository) DeleteUserBindings(roleID uint) error {
	return r.db.Where("role_id = ?", roleID).Delete(&models.UserRole{}).Error
}

// ListApisByRoleID 获取角色绑定的接口
func (r *GormRoleRepository) ListApisByRoleID(roleID uint) ([]models.Api, error) {
	var apis []models.Api
	if err := r.db.Model(&models.Api{}).
		Joins("JOIN role_apis ON role_apis.api_id = apis.id").
		Where("role_apis.role_id = ?", roleID).
		Find(&apis).Error; err != nil {
		return nil, err
	}
	return apis, nil
}

// ListMenusByRoleID 获取角色绑定的菜单
func (r *GormRoleRepository) ListMenusByRoleID(roleID uint) ([]models.Menu, error) {
	var menus []models.Menu
	if err := r.db.Model(&models.Menu{}).
		Joins("JOIN role_menus ON role_menus.menu_id = menus.id").
		Where("role_menus.role_id = ?", roleID).
		Order("menus.sort_order ASC, menus.id ASC").
		Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

// ReplaceApis 整体替换角色的接口绑定
func (r *GormRoleRepository) ReplaceApis(roleID uint, apiIDs []uint) error {
	if err := r.db.Where("role_id = ?", roleID).Delete(&models.RoleApi{}).Error; err != nil {
		return err
	}
	for _, apiID := range apiIDs {
		if err := r.db.Create(&models.RoleApi{RoleID: roleID, ApiID: apiID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReplaceMenus 整体替换角色的菜单绑定
func (r *GormRoleRepository) ReplaceMenus(roleID uint, menuIDs []uint) error {
	if err := r.db.Where("role_id = ?", roleID).Delete(&models.RoleMenu{}).Error; err != nil {
		return err
	}
	for _, menuID := range menuIDs {
		if err := r.db.Create(&models.RoleMenu{RoleID: roleID, MenuID: menuID}).Error; err != nil {
			return err
		}
	}
	return nil
}
