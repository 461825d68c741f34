package service

import (
	"crypto/rand"
	"math/big"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
)

const invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// HierarchyService 代理层级关系服务
type HierarchyService struct {
	userRepo repository.UserRepository
}

// NewHierarchyService 创建代理层级关系服务
func NewHierarchyService(userRepo repository.UserRepository) *HierarchyService {
	return &HierarchyService{userRepo: userRepo}
}

// DirectChildren 获取直属下级用户
func (s *HierarchyService) DirectChildren(userID uint) ([]models.User, error) {
	if userID == 0 {
		return []models.User{}, nil
	}
	return s.userRepo.ListByParentUserID(int64(userID))
}

// CountDirectChildren 统计直属下级用户数
func (s *HierarchyService) CountDirectChildren(userID uint) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	return s.userRepo.CountByParentUserID(int64(userID))
}

// IsDirectSponsor 判断 parent 是否是 child 的直属上级
func (s *HierarchyService) IsDirectSponsor(parentID, childID uint) (bool, error) {
	child, err := s.userRepo.GetByID(childID)
	if err != nil {
		return false, err
	}
	if child == nil {
		return false, ErrUserNotFound
	}
	return child.ParentUserID == int64(parentID), nil
}

// WouldCreateCycle 判断把 candidateParentID 设为 userID 的上级是否产生循环。
// 从候选上级沿祖先链向上走，带 visited 集合防御已损坏的数据。
func (s *HierarchyService) WouldCreateCycle(userID uint, candidateParentID int64) (bool, error) {
	if candidateParentID == constants.NoParentUserID {
		return false, nil
	}
	if candidateParentID == int64(userID) {
		return true, nil
	}

	visited := map[int64]struct{}{int64(userID): {}}
	current := candidateParentID
	for current != constants.NoParentUserID {
		if _, seen := visited[current]; seen {
			return true, nil
		}
		visited[current] = struct{}{}

		ancestor, err := s.userRepo.GetByID(uint(current))
		if err != nil {
			return false, err
		}
		if ancestor == nil {
			return false, nil
		}
		current = ancestor.ParentUserID
	}
	return false, nil
}

// ResolveInvitation 按邀请码解析上级用户
func (s *HierarchyService) ResolveInvitation(code string) (*models.User, error) {
	sponsor, err := s.userRepo.GetByInvitationCode(code)
	if err != nil {
		return nil, err
	}
	if sponsor == nil {
		return nil, ErrInvitationCodeNotFound
	}
	return sponsor, nil
}

// IssueUniqueInvitationCode 生成未被占用的邀请码，重试次数有限
func (s *HierarchyService) IssueUniqueInvitationCode() (string, error) {
	for attempt := 0; attempt < constants.InvitationCodeMaxAttempts; attempt++ {
		code, err := randomInvitationCode()
		if err != nil {
			return "", err
		}
		count, err := s.userRepo.CountByInvitationCode(code)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func randomInvitationCode() (string, error) {
	buf := make([]byte, constants.InvitationCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(invitationCodeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = invitationCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
