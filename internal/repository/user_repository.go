package repository

import (
	"errors"
	"strings"

	"github.com/agent-console/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByIDForUpdate(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByInvitationCode(code string) (*models.User, error)
	ListByIDs(ids []uint) ([]models.User, error)
	ListByParentUserID(parentUserID int64) ([]models.User, error)
	CountByParentUserID(parentUserID int64) (int64, error)
	CountByInvitationCode(code string) (int64, error)
	Create(user *models.User) error
	Update(user *models.User) error
	Delete(user *models.User) error
	List(filter UserListFilter) ([]models.User, int64, error)
	GetRolesByUserID(userID uint) ([]models.Role, error)
	ReplaceRoles(userID uint, roleIDs []uint) error
	CreateLoginLog(log *models.UserLoginLog) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormUserRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate 根据 ID 加锁获取用户
func (r *GormUserRepository) GetByIDForUpdate(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByInvitationCode 根据邀请码获取启用中的用户。
// 被禁用的账号不能再作为邀请上级，因此带 is_active 过滤。
func (r *GormUserRepository) GetByInvitationCode(code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("invitation_code = ? AND is_active = ?", code, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListByIDs 批量获取用户
func (r *GormUserRepository) ListByIDs(ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListByParentUserID 获取直属下级用户
func (r *GormUserRepository) ListByParentUserID(parentUserID int64) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("parent_user_id = ?", parentUserID).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CountByParentUserID 统计直属下级用户数
func (r *GormUserRepository) CountByParentUserID(parentUserID int64) (int64, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("parent_user_id = ?", parentUserID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByInvitationCode 统计邀请码占用数（用于唯一性检查）
func (r *GormUserRepository) CountByInvitationCode(code string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("invitation_code = ?", code).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete 删除用户（软删除）
func (r *GormUserRepository) Delete(user *models.User) error {
	return r.db.Delete(user).Error
}

// List 用户列表
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR alias LIKE ?", like, like, like)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.ParentUserID != nil {
		if filter.SelfID != 0 {
			query = query.Where("parent_user_id = ? OR id = ?", *filter.ParentUserID, filter.SelfID)
		} else {
			query = query.Where("parent_user_id = ?", *filter.ParentUserID)
		}
	} else if filter.SelfID != 0 && len(filter.IDs) == 0 {
		query = query.Where("id = ?", filter.SelfID)
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

	var users []models.User
	if err := query.Order("id DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetRolesByUserID 获取用户的全部角色
func (r *GormUserRepository) GetRolesByUserID(userID uint) ([]models.Role, error) {
	if userID == 0 {
		return []models.Role{}, nil
	}
	var roles []models.Role
	if err := r.db.Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// ReplaceRoles 整体替换用户角色绑定
func (r *GormUserRepository) ReplaceRoles(userID uint, roleIDs []uint) error {
	if userID == 0 {
		return nil
	}
	if err := r.db.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if err := r.db.Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateLoginLog 写入登录日志
func (r *GormUserRepository) CreateLoginLog(log *models.UserLoginLog) error {
	return r.db.Create(log).Error
}
