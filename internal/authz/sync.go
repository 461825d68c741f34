package authz

import "fmt"

// RoleBinding 角色与接口策略快照
type RoleBinding struct {
	RoleID   uint
	Policies []Policy
}

// UserBinding 用户与角色绑定快照
type UserBinding struct {
	UserID  uint
	RoleIDs []uint
}

// Snapshot 数据库权限快照
type Snapshot struct {
	Roles []RoleBinding
	Users []UserBinding
}

// Rebuild 按数据库快照全量重建策略
// 角色接口绑定与用户角色绑定以数据库为准，旧策略整体替换
func (s *Service) Rebuild(snapshot Snapshot) error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	if _, err := s.enforcer.RemoveFilteredPolicy(0); err != nil {
		return fmt.Errorf("clear policies failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0); err != nil {
		return fmt.Errorf("clear role links failed: %w", err)
	}

	for _, role := range snapshot.Roles {
		if role.RoleID == 0 {
			continue
		}
		if err := s.SyncRolePolicies(role.RoleID, role.Policies); err != nil {
			return err
		}
	}
	for _, user := range snapshot.Users {
		if user.UserID == 0 {
			continue
		}
		if err := s.SetUserRoles(user.UserID, user.RoleIDs); err != nil {
			return err
		}
	}
	return nil
}
