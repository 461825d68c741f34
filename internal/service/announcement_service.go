package service

import (
	"strings"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
)

// AnnouncementService 公告服务
type AnnouncementService struct {
	announcementRepo repository.AnnouncementRepository
}

// AnnouncementInput 创建/更新公告输入
type AnnouncementInput struct {
	Title     string
	Content   string
	Status    string
	ExpiresAt *time.Time
}

// NewAnnouncementService 创建公告服务
func NewAnnouncementService(announcementRepo repository.AnnouncementRepository) *AnnouncementService {
	return &AnnouncementService{announcementRepo: announcementRepo}
}

// GetAnnouncement 获取公告
func (s *AnnouncementService) GetAnnouncement(id uint) (*models.Announcement, error) {
	announcement, err := s.announcementRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if announcement == nil {
		return nil, ErrAnnouncementNotFound
	}
	return announcement, nil
}

// ListAnnouncements 分页查询公告
func (s *AnnouncementService) ListAnnouncements(filter repository.AnnouncementListFilter) ([]models.Announcement, int64, error) {
	return s.announcementRepo.List(filter)
}

// CreateAnnouncement 创建公告
func (s *AnnouncementService) CreateAnnouncement(creatorID uint, input AnnouncementInput) (*models.Announcement, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrAnnouncementNotFound
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.AnnouncementStatusDraft
	}
	announcement := &models.Announcement{
		Title:     title,
		Content:   input.Content,
		Status:    status,
		ExpiresAt: input.ExpiresAt,
		CreatorID: creatorID,
	}
	if status == constants.AnnouncementStatusPublished {
		now := time.Now()
		announcement.PublishedAt = &now
	}
	if err := s.announcementRepo.Create(announcement); err != nil {
		return nil, err
	}
	return announcement, nil
}

// UpdateAnnouncement 更新公告
func (s *AnnouncementService) UpdateAnnouncement(id uint, input AnnouncementInput) (*models.Announcement, error) {
	announcement, err := s.GetAnnouncement(id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		announcement.Title = title
	}
	if input.Content != "" {
		announcement.Content = input.Content
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		if status == constants.AnnouncementStatusPublished && announcement.Status != constants.AnnouncementStatusPublished {
			now := time.Now()
			announcement.PublishedAt = &now
		}
		announcement.Status = status
	}
	announcement.ExpiresAt = input.ExpiresAt
	if err := s.announcementRepo.Update(announcement); err != nil {
		return nil, err
	}
	return announcement, nil
}

// DeleteAnnouncement 删除公告
func (s *AnnouncementService) DeleteAnnouncement(id uint) error {
	announcement, err := s.GetAnnouncement(id)
	if err != nil {
		return err
	}
	return s.announcementRepo.Delete(announcement)
}
