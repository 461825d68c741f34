package service

import (
	"sort"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
)

// PermissionService 代理权限解析服务
type PermissionService struct {
	userRepo repository.UserRepository
}

// NewPermissionService 创建代理权限解析服务
func NewPermissionService(userRepo repository.UserRepository) *PermissionService {
	return &PermissionService{userRepo: userRepo}
}

// Resolve 解析用户的有效代理权限集合。
// 超级管理员拥有全部权限；其余用户取所有代理角色权限标签的并集，
// 并过滤掉不在封闭枚举内的脏数据。
func (s *PermissionService) Resolve(userID uint) ([]string, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.ResolveForUser(user)
}

// ResolveForUser 解析已加载用户的有效代理权限集合
func (s *PermissionService) ResolveForUser(user *models.User) ([]string, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsSuperuser {
		result := make([]string, len(constants.AgentPermissionTags))
		copy(result, constants.AgentPermissionTags)
		return result, nil
	}

	roles, err := s.userRepo.GetRolesByUserID(user.ID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, role := range roles {
		if !role.IsAgentRole {
			continue
		}
		for _, tag := range role.AgentPermissions {
			if constants.IsAgentPermissionTag(tag) {
				set[tag] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(set))
	for tag := range set {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result, nil
}

// HasPermission 判断用户是否持有指定代理权限
func (s *PermissionService) HasPermission(userID uint, tag string) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	return s.HasPermissionForUser(user, tag)
}

// HasPermissionForUser 判断已加载用户是否持有指定代理权限
func (s *PermissionService) HasPermissionForUser(user *models.User, tag string) (bool, error) {
	if user == nil {
		return false, ErrUserNotFound
	}
	if user.IsSuperuser {
		return true, nil
	}
	if !constants.IsAgentPermissionTag(tag) {
		return false, nil
	}
	perms, err := s.ResolveForUser(user)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == tag {
			return true, nil
		}
	}
	return false, nil
}

// ValidateTags 校验权限标签集合，全部合法才通过
func (s *PermissionService) ValidateTags(tags []string) error {
	for _, tag := range tags {
		if !constants.IsAgentPermissionTag(tag) {
			return ErrInvalidPermissionTag
		}
	}
	return nil
}
