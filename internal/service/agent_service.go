package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AgentService 代理账号管理服务
type AgentService struct {
	userRepo      repository.UserRepository
	permissionSvc *PermissionService
	hierarchySvc  *HierarchyService
	roleSvc       *RoleService
}

// AccountCreateInput 创建账号输入
type AccountCreateInput struct {
	Username       string
	Email          string
	Password       string
	Alias          string
	Phone          string
	RoleIDs        []uint
	InvitationCode string
	IsSuperuser    bool
	IsActive       *bool
}

// AccountUpdateInput 更新账号输入，nil 字段表示不修改
type AccountUpdateInput struct {
	Alias    *string
	Email    *string
	Phone    *string
	IsActive *bool
	RoleIDs  []uint
}

// InvitationInfo 邀请信息
type InvitationInfo struct {
	InvitationCode string `json:"invitation_code"`
	SponsoredCount int64  `json:"sponsored_count"`
	PointsBalance  int64  `json:"points_balance"`
}

// NewAgentService 创建代理账号管理服务
func NewAgentService(
	userRepo repository.UserRepository,
	permissionSvc *PermissionService,
	hierarchySvc *HierarchyService,
	roleSvc *RoleService,
) *AgentService {
	return &AgentService{
		userRepo:      userRepo,
		permissionSvc: permissionSvc,
		hierarchySvc:  hierarchySvc,
		roleSvc:       roleSvc,
	}
}

// GetUser 获取用户
func (s *AgentService) GetUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserRoles 获取用户角色
func (s *AgentService) GetUserRoles(userID uint) ([]models.Role, error) {
	return s.userRepo.GetRolesByUserID(userID)
}

// CanManageAccount 判断操作者是否可按指定权限管理目标账号。
// 超级管理员直接放行；其余要求同时持有权限标签并且是目标的直属上级。
func (s *AgentService) CanManageAccount(actorID, targetID uint, permTag string) (bool, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return false, err
	}
	if actor == nil {
		return false, ErrUserNotFound
	}
	if actor.IsSuperuser {
		return true, nil
	}
	ok, err := s.permissionSvc.HasPermissionForUser(actor, permTag)
	if err != nil || !ok {
		return false, err
	}
	return s.hierarchySvc.IsDirectSponsor(actorID, targetID)
}

// ListVisibleUsers 按操作者身份裁剪可见用户范围。
// 超级管理员看全部；持有查看下级权限的代理看直属下级和自己；其余只看自己。
func (s *AgentService) ListVisibleUsers(actorID uint, filter repository.UserListFilter) ([]models.User, int64, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, 0, err
	}
	if actor == nil {
		return nil, 0, ErrUserNotFound
	}

	if !actor.IsSuperuser {
		canView, err := s.permissionSvc.HasPermissionForUser(actor, constants.PermViewSubordinateUsers)
		if err != nil {
			return nil, 0, err
		}
		if canView {
			parentID := int64(actor.ID)
			filter.ParentUserID = &parentID
			filter.SelfID = actor.ID
		} else {
			filter.ParentUserID = nil
			filter.SelfID = actor.ID
			filter.IDs = nil
		}
	}
	return s.userRepo.List(filter)
}

// CreateAccount 创建账号。角色分配逐个经过分配策略校验；
// 非超级管理员创建者自动成为新账号的上级。
func (s *AgentService) CreateAccount(actorID uint, input AccountCreateInput) (*models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if input.IsSuperuser && !actor.IsSuperuser {
		return nil, ErrPermissionDenied
	}

	if !actor.IsSuperuser {
		canCreateUser, err := s.permissionSvc.HasPermissionForUser(actor, constants.PermCreateUser)
		if err != nil {
			return nil, err
		}
		canCreateAgent, err := s.permissionSvc.HasPermissionForUser(actor, constants.PermCreateSubordinateAgent)
		if err != nil {
			return nil, err
		}
		if !canCreateUser && !canCreateAgent {
			return nil, ErrPermissionDenied
		}
	}

	for _, roleID := range input.RoleIDs {
		ok, err := s.roleSvc.CanAssignRole(actorID, roleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRoleNotAssignable
		}
	}

	if existing, err := s.userRepo.GetByUsername(username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateUsername
	}
	if existing, err := s.userRepo.GetByEmail(email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateEmail
	}

	parentUserID := constants.NoParentUserID
	if code := strings.TrimSpace(input.InvitationCode); code != "" {
		sponsor, err := s.hierarchySvc.ResolveInvitation(code)
		if err != nil {
			return nil, err
		}
		parentUserID = int64(sponsor.ID)
	} else if !actor.IsSuperuser {
		parentUserID = int64(actor.ID)
	}

	invitationCode, err := s.hierarchySvc.IssueUniqueInvitationCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	user := &models.User{
		Username:       username,
		Email:          email,
		PasswordHash:   string(hash),
		Alias:          strings.TrimSpace(input.Alias),
		Phone:          strings.TrimSpace(input.Phone),
		IsActive:       isActive,
		IsSuperuser:    input.IsSuperuser,
		ParentUserID:   parentUserID,
		InvitationCode: invitationCode,
	}

	err = s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		if err := repo.Create(user); err != nil {
			return err
		}
		return repo.ReplaceRoles(user.ID, input.RoleIDs)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateAccount 更新账号。仅翻转启用状态需要禁用权限，
// 其余字段变更需要修改下级权限；本人只能改昵称/邮箱/电话。
func (s *AgentService) UpdateAccount(actorID, targetID uint, input AccountUpdateInput) (*models.User, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}
	target, err := s.GetUser(targetID)
	if err != nil {
		return nil, err
	}

	activeFlip := input.IsActive != nil && *input.IsActive != target.IsActive
	otherChanges := input.Alias != nil || input.Email != nil || input.Phone != nil || input.RoleIDs != nil

	if actorID == targetID {
		if activeFlip || input.RoleIDs != nil {
			return nil, ErrPermissionDenied
		}
	} else if !actor.IsSuperuser {
		if activeFlip && !otherChanges {
			ok, err := s.CanManageAccount(actorID, targetID, constants.PermDisableUser)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrPermissionDenied
			}
		} else {
			ok, err := s.CanManageAccount(actorID, targetID, constants.PermModifySubordinateUsers)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrPermissionDenied
			}
			if activeFlip {
				okDisable, err := s.CanManageAccount(actorID, targetID, constants.PermDisableUser)
				if err != nil {
					return nil, err
				}
				if !okDisable {
					return nil, ErrPermissionDenied
				}
			}
		}
	}

	if input.RoleIDs != nil {
		for _, roleID := range input.RoleIDs {
			ok, err := s.roleSvc.CanAssignRole(actorID, roleID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrRoleNotAssignable
			}
		}
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && email != target.Email {
			existing, err := s.userRepo.GetByEmail(email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != target.ID {
				return nil, ErrDuplicateEmail
			}
			target.Email = email
		}
	}
	if input.Alias != nil {
		target.Alias = strings.TrimSpace(*input.Alias)
	}
	if input.Phone != nil {
		target.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.IsActive != nil {
		target.IsActive = *input.IsActive
		if !target.IsActive {
			// 禁用即吊销已签发的 Token
			target.TokenVersion++
		}
	}

	err = s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		if err := repo.Update(target); err != nil {
			return err
		}
		if input.RoleIDs != nil {
			return repo.ReplaceRoles(target.ID, input.RoleIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// DeleteAccount 删除账号。超级管理员账号不允许删除；
// 非超级管理员操作者要求删除权限加直属上级关系。
func (s *AgentService) DeleteAccount(actorID, targetID uint) error {
	target, err := s.GetUser(targetID)
	if err != nil {
		return err
	}
	if target.IsSuperuser {
		return ErrSuperuserProtected
	}
	ok, err := s.CanManageAccount(actorID, targetID, constants.PermDeleteUser)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}

	return s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		if err := repo.ReplaceRoles(target.ID, nil); err != nil {
			return err
		}
		return repo.Delete(target)
	})
}

// ResetPassword 重置账号密码并返回新密码。
// 目标为超级管理员时拒绝；新密码 8 位字母数字混合。
func (s *AgentService) ResetPassword(actorID, targetID uint) (string, error) {
	target, err := s.GetUser(targetID)
	if err != nil {
		return "", err
	}
	if target.IsSuperuser {
		return "", ErrSuperuserProtected
	}
	if actorID != targetID {
		ok, err := s.CanManageAccount(actorID, targetID, constants.PermModifySubordinateUsers)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrPermissionDenied
		}
	}

	password, err := generateResetPassword()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	target.PasswordHash = string(hash)
	target.TokenVersion++
	if err := s.userRepo.Update(target); err != nil {
		return "", err
	}
	return password, nil
}

// GetInvitationInfo 获取用户的邀请信息
func (s *AgentService) GetInvitationInfo(userID uint) (*InvitationInfo, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	count, err := s.hierarchySvc.CountDirectChildren(userID)
	if err != nil {
		return nil, err
	}
	return &InvitationInfo{
		InvitationCode: user.InvitationCode,
		SponsoredCount: count,
		PointsBalance:  user.PointsBalance,
	}, nil
}

// generateResetPassword 生成 8 位字母数字密码，保证至少一个字母和一个数字
func generateResetPassword() (string, error) {
	for {
		buf := make([]byte, constants.ResetPasswordLength)
		hasLetter := false
		hasDigit := false
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(resetPasswordAlphabet))))
			if err != nil {
				return "", err
			}
			c := resetPasswordAlphabet[n.Int64()]
			buf[i] = c
			switch {
			case c >= '0' && c <= '9':
				hasDigit = true
			default:
				hasLetter = true
			}
		}
		if hasLetter && hasDigit {
			return string(buf), nil
		}
	}
}
