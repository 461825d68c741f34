package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitSystemRoles 初始化系统内置角色（管理员、普通用户）
func InitSystemRoles() error {
	roles := []Role{
		{
			Name:        constants.RoleNameAdministrator,
			Desc:        "系统管理员角色",
			IsAgentRole: false,
			UserLevel:   constants.UserLevelTop,
		},
		{
			Name:        constants.RoleNameNormalUser,
			Desc:        "普通用户角色",
			IsAgentRole: false,
			UserLevel:   constants.UserLevelNormal,
		},
	}
	for _, role := range roles {
		var existing Role
		err := DB.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := DB.Create(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

// InitDefaultSuperuser 初始化默认超级管理员账号
func InitDefaultSuperuser(username, password string) error {
	var count int64
	DB.Model(&User{}).Where("is_superuser = ?", true).Count(&count)
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	code, err := seedInvitationCode()
	if err != nil {
		return err
	}

	user := User{
		Username:       username,
		Email:          fmt.Sprintf("%s@localhost", username),
		PasswordHash:   string(hash),
		IsActive:       true,
		IsSuperuser:    true,
		ParentUserID:   constants.NoParentUserID,
		InvitationCode: code,
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	var adminRole Role
	if err := DB.Where("name = ?", constants.RoleNameAdministrator).First(&adminRole).Error; err == nil {
		if err := DB.Create(&UserRole{UserID: user.ID, RoleID: adminRole.ID}).Error; err != nil {
			logger.Warnw("default_superuser_role_bind_failed", "error", err)
		}
	}

	if password == "admin123" {
		logger.Warnw("default_superuser_created_with_default_password", "username", username)
		logger.Warnw("default_superuser_password_change_required", "username", username)
	} else {
		logger.Warnw("default_superuser_created", "username", username, "password_hidden", true)
	}
	return nil
}

func seedInvitationCode() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for attempt := 0; attempt < constants.InvitationCodeMaxAttempts; attempt++ {
		buf := make([]byte, constants.InvitationCodeLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = alphabet[n.Int64()]
		}
		code := string(buf)
		var count int64
		if err := DB.Model(&User{}).Where("invitation_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("invitation code space exhausted")
}
