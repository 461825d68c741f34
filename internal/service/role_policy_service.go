package service

import (
	"strings"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"gorm.io/gorm"
)

// RoleService 角色管理与分配策略服务
type RoleService struct {
	roleRepo      repository.RoleRepository
	userRepo      repository.UserRepository
	permissionSvc *PermissionService
}

// RoleCreateInput 创建角色输入
type RoleCreateInput struct {
	Name             string
	Desc             string
	IsAgentRole      bool
	UserLevel        int
	AgentPermissions []string
}

// RoleUpdateInput 更新角色输入
type RoleUpdateInput struct {
	Name      *string
	Desc      *string
	UserLevel *int
}

// RoleDeleteResult 删除角色结果
type RoleDeleteResult struct {
	Deleted       bool  `json:"deleted"`
	AffectedUsers int64 `json:"affected_users"`
	DeletedUsers  int64 `json:"deleted_users"`
}

// NewRoleService 创建角色服务
func NewRoleService(
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	permissionSvc *PermissionService,
) *RoleService {
	return &RoleService{
		roleRepo:      roleRepo,
		userRepo:      userRepo,
		permissionSvc: permissionSvc,
	}
}

// GetRole 获取角色
func (s *RoleService) GetRole(roleID uint) (*models.Role, error) {
	role, err := s.roleRepo.GetByID(roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// ListRoles 分页查询角色
func (s *RoleService) ListRoles(filter repository.RoleListFilter) ([]models.Role, int64, error) {
	return s.roleRepo.List(filter)
}

// UserCount 统计角色绑定的用户数
func (s *RoleService) UserCount(roleID uint) (int64, error) {
	role, err := s.roleRepo.GetByID(roleID)
	if err != nil {
		return 0, err
	}
	if role == nil {
		return 0, ErrRoleNotFound
	}
	return s.roleRepo.CountUsers(roleID)
}

// CreateRole 创建角色
func (s *RoleService) CreateRole(input RoleCreateInput) (*models.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrRoleNotFound
	}
	if err := s.permissionSvc.ValidateTags(input.AgentPermissions); err != nil {
		return nil, err
	}
	existing, err := s.roleRepo.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRoleName
	}

	level := input.UserLevel
	if level <= 0 {
		level = constants.UserLevelNormal
	}
	role := &models.Role{
		Name:             name,
		Desc:             strings.TrimSpace(input.Desc),
		IsAgentRole:      input.IsAgentRole,
		UserLevel:        level,
		AgentPermissions: models.StringArray(input.AgentPermissions),
	}
	if err := s.roleRepo.Create(role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole 更新角色基础信息
func (s *RoleService) UpdateRole(roleID uint, input RoleUpdateInput) (*models.Role, error) {
	role, err := s.GetRole(roleID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != "" && name != role.Name {
			if isProtectedRoleName(role.Name) {
				return nil, ErrSystemRoleProtected
			}
			existing, err := s.roleRepo.GetByName(name)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != role.ID {
				return nil, ErrDuplicateRoleName
			}
			role.Name = name
		}
	}
	if input.Desc != nil {
		role.Desc = strings.TrimSpace(*input.Desc)
	}
	if input.UserLevel != nil && *input.UserLevel > 0 {
		role.UserLevel = *input.UserLevel
	}
	if err := s.roleRepo.Update(role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetAgentPermissions 获取角色的代理权限标签
func (s *RoleService) GetAgentPermissions(roleID uint) ([]string, error) {
	role, err := s.GetRole(roleID)
	if err != nil {
		return nil, err
	}
	return role.AgentPermissions, nil
}

// UpdateAgentPermissions 整体替换角色的代理权限标签。
// 含未知标签的请求整体拒绝，不做静默丢弃。
func (s *RoleService) UpdateAgentPermissions(roleID uint, tags []string) (*models.Role, error) {
	if err := s.permissionSvc.ValidateTags(tags); err != nil {
		return nil, err
	}
	role, err := s.GetRole(roleID)
	if err != nil {
		return nil, err
	}
	role.AgentPermissions = models.StringArray(tags)
	if err := s.roleRepo.Update(role); err != nil {
		return nil, err
	}
	return role, nil
}

// CreatableRoles 计算操作者可创建/分配的角色集合。
// 超级管理员可分配除管理员外的全部角色；持有 CREATE_USER 的代理可分配
// 普通用户层级（99）的角色；持有 CREATE_SUBORDINATE_AGENT 的代理只能分配
// 比自身层级恰好低一级的代理角色。
func (s *RoleService) CreatableRoles(actorID uint) ([]models.Role, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	all, err := s.roleRepo.ListAll()
	if err != nil {
		return nil, err
	}

	if actor.IsSuperuser {
		result := make([]models.Role, 0, len(all))
		for _, role := range all {
			if role.Name == constants.RoleNameAdministrator {
				continue
			}
			result = append(result, role)
		}
		return result, nil
	}

	perms, err := s.permissionSvc.ResolveForUser(actor)
	if err != nil {
		return nil, err
	}
	permSet := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		permSet[p] = struct{}{}
	}

	result := make([]models.Role, 0)
	seen := make(map[uint]struct{})

	if _, ok := permSet[constants.PermCreateUser]; ok {
		for _, role := range all {
			if role.UserLevel == constants.UserLevelNormal && !role.IsAgentRole {
				if _, dup := seen[role.ID]; !dup {
					seen[role.ID] = struct{}{}
					result = append(result, role)
				}
			}
		}
	}

	if _, ok := permSet[constants.PermCreateSubordinateAgent]; ok {
		actorLevel, found, err := s.actorAgentLevel(actor.ID)
		if err != nil {
			return nil, err
		}
		if found {
			for _, role := range all {
				if role.IsAgentRole && role.UserLevel == actorLevel+1 {
					if _, dup := seen[role.ID]; !dup {
						seen[role.ID] = struct{}{}
						result = append(result, role)
					}
				}
			}
		}
	}

	return result, nil
}

// CanAssignRole 判断操作者是否可分配指定角色
func (s *RoleService) CanAssignRole(actorID, roleID uint) (bool, error) {
	creatable, err := s.CreatableRoles(actorID)
	if err != nil {
		return false, err
	}
	for _, role := range creatable {
		if role.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

// DeleteRole 删除角色。系统内置角色拒绝删除；仍有用户绑定时需要
// force 确认。强制删除在一个事务里完成：仅持有该角色的账号被连同删除，
// 还持有其他角色的账号只做解绑，接口/菜单绑定一并清理。
func (s *RoleService) DeleteRole(actorID, roleID uint, force bool) (*RoleDeleteResult, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}
	if !actor.IsSuperuser {
		return nil, ErrPermissionDenied
	}

	role, err := s.GetRole(roleID)
	if err != nil {
		return nil, err
	}
	if isProtectedRoleName(role.Name) {
		return nil, ErrSystemRoleProtected
	}

	boundUsers, err := s.roleRepo.CountUsers(roleID)
	if err != nil {
		return nil, err
	}
	if boundUsers > 0 && !force {
		return &RoleDeleteResult{Deleted: false, AffectedUsers: boundUsers}, ErrRoleInUse
	}

	var deletedUsers int64
	err = s.roleRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.roleRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		userIDs, err := repo.ListUserIDs(roleID)
		if err != nil {
			return err
		}
		for _, userID := range userIDs {
			roles, err := userRepo.GetRolesByUserID(userID)
			if err != nil {
				return err
			}
			// 该角色是账号唯一角色时账号一并删除，多角色账号仅解绑
			if len(roles) != 1 || roles[0].ID != roleID {
				continue
			}
			user, err := userRepo.GetByID(userID)
			if err != nil {
				return err
			}
			if user == nil || user.IsSuperuser {
				continue
			}
			if err := userRepo.Delete(user); err != nil {
				return err
			}
			deletedUsers++
		}

		if err := repo.DeleteUserBindings(roleID); err != nil {
			return err
		}
		if err := repo.ReplaceApis(roleID, nil); err != nil {
			return err
		}
		if err := repo.ReplaceMenus(roleID, nil); err != nil {
			return err
		}
		return repo.Delete(role)
	})
	if err != nil {
		return nil, err
	}
	return &RoleDeleteResult{Deleted: true, AffectedUsers: boundUsers, DeletedUsers: deletedUsers}, nil
}

// actorAgentLevel 返回操作者代理角色中的最高层级（数值最小）
func (s *RoleService) actorAgentLevel(actorID uint) (int, bool, error) {
	roles, err := s.userRepo.GetRolesByUserID(actorID)
	if err != nil {
		return 0, false, err
	}
	best := 0
	found := false
	for _, role := range roles {
		if !role.IsAgentRole {
			continue
		}
		if !found || role.UserLevel < best {
			best = role.UserLevel
			found = true
		}
	}
	return best, found, nil
}

func isProtectedRoleName(name string) bool {
	return name == constants.RoleNameAdministrator || name == constants.RoleNameNormalUser
}
