package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAgentServiceTest(t *testing.T) (*AgentService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:agent_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.UserRole{},
		&models.RoleApi{},
		&models.RoleMenu{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permissionSvc := NewPermissionService(userRepo)
	hierarchySvc := NewHierarchyService(userRepo)
	roleSvc := NewRoleService(roleRepo, userRepo, permissionSvc)
	return NewAgentService(userRepo, permissionSvc, hierarchySvc, roleSvc), db
}

func createAgentTestUser(t *testing.T, db *gorm.DB, username string, parentID int64, superuser bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		IsActive:       true,
		IsSuperuser:    superuser,
		ParentUserID:   parentID,
		InvitationCode: strings.ToUpper(username),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func grantAgentPerms(t *testing.T, db *gorm.DB, userID uint, name string, tags []string) *models.Role {
	t.Helper()

	role := &models.Role{
		Name:             name,
		IsAgentRole:      true,
		UserLevel:        2,
		AgentPermissions: models.StringArray(tags),
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("create role %s failed: %v", name, err)
	}
	if err := db.Create(&models.UserRole{UserID: userID, RoleID: role.ID}).Error; err != nil {
		t.Fatalf("bind role failed: %v", err)
	}
	return role
}

func TestUpdateAccountDisableRequiresOnlyDisablePermission(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	parent := createAgentTestUser(t, db, "disable_parent", constants.NoParentUserID, false)
	child := createAgentTestUser(t, db, "disable_child", int64(parent.ID), false)
	grantAgentPerms(t, db, parent.ID, "禁用代理", []string{constants.PermDisableUser})

	inactive := false
	updated, err := svc.UpdateAccount(parent.ID, child.ID, AccountUpdateInput{IsActive: &inactive})
	if err != nil {
		t.Fatalf("pure disable flip failed: %v", err)
	}
	if updated.IsActive {
		t.Fatalf("child should be disabled")
	}
	if updated.TokenVersion != child.TokenVersion+1 {
		t.Fatalf("disable must bump token version, want %d got %d", child.TokenVersion+1, updated.TokenVersion)
	}

	// 只有禁用权限时不允许顺带改其他字段
	alias := "新昵称"
	active := true
	if _, err := svc.UpdateAccount(parent.ID, child.ID, AccountUpdateInput{
		IsActive: &active,
		Alias:    &alias,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("mixed update without modify permission want ErrPermissionDenied got %v", err)
	}
}

func TestUpdateAccountModifyPermissionDoesNotCoverDisable(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	parent := createAgentTestUser(t, db, "modify_parent", constants.NoParentUserID, false)
	child := createAgentTestUser(t, db, "modify_child", int64(parent.ID), false)
	grantAgentPerms(t, db, parent.ID, "修改代理", []string{constants.PermModifySubordinateUsers})

	alias := "下级昵称"
	updated, err := svc.UpdateAccount(parent.ID, child.ID, AccountUpdateInput{Alias: &alias})
	if err != nil {
		t.Fatalf("alias update failed: %v", err)
	}
	if updated.Alias != alias {
		t.Fatalf("alias want %s got %s", alias, updated.Alias)
	}

	inactive := false
	if _, err := svc.UpdateAccount(parent.ID, child.ID, AccountUpdateInput{
		Alias:    &alias,
		IsActive: &inactive,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("disable without DISABLE_USER want ErrPermissionDenied got %v", err)
	}
}

func TestUpdateAccountSelfRestrictions(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	user := createAgentTestUser(t, db, "self_user", constants.NoParentUserID, false)

	alias := "我自己"
	updated, err := svc.UpdateAccount(user.ID, user.ID, AccountUpdateInput{Alias: &alias})
	if err != nil {
		t.Fatalf("self alias update failed: %v", err)
	}
	if updated.Alias != alias {
		t.Fatalf("alias want %s got %s", alias, updated.Alias)
	}

	inactive := false
	if _, err := svc.UpdateAccount(user.ID, user.ID, AccountUpdateInput{IsActive: &inactive}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("self disable want ErrPermissionDenied got %v", err)
	}
}

func TestUpdateAccountStrangerDenied(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	actor := createAgentTestUser(t, db, "stranger_actor", constants.NoParentUserID, false)
	target := createAgentTestUser(t, db, "stranger_target", constants.NoParentUserID, false)
	grantAgentPerms(t, db, actor.ID, "全权代理", constants.AgentPermissionTags)

	alias := "改不到"
	if _, err := svc.UpdateAccount(actor.ID, target.ID, AccountUpdateInput{Alias: &alias}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-sponsor update want ErrPermissionDenied got %v", err)
	}
}

func TestCreateAccountByAgent(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	parent := createAgentTestUser(t, db, "create_parent", constants.NoParentUserID, false)
	grantAgentPerms(t, db, parent.ID, "开号员", []string{constants.PermCreateUser})

	normalRole := &models.Role{
		Name:      constants.RoleNameNormalUser,
		UserLevel: constants.UserLevelNormal,
	}
	if err := db.Create(normalRole).Error; err != nil {
		t.Fatalf("create normal role failed: %v", err)
	}

	user, err := svc.CreateAccount(parent.ID, AccountCreateInput{
		Username: "fresh_user",
		Email:    "fresh_user@example.com",
		Password: "secret123",
		RoleIDs:  []uint{normalRole.ID},
	})
	if err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if user.ParentUserID != int64(parent.ID) {
		t.Fatalf("creator should become parent, want %d got %d", parent.ID, user.ParentUserID)
	}
	if len(user.InvitationCode) != constants.InvitationCodeLength {
		t.Fatalf("invitation code length want %d got %s", constants.InvitationCodeLength, user.InvitationCode)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")); err != nil {
		t.Fatalf("password hash mismatch: %v", err)
	}

	if _, err := svc.CreateAccount(parent.ID, AccountCreateInput{
		Username: "fresh_user",
		Email:    "other@example.com",
		Password: "secret123",
	}); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("duplicate username want ErrDuplicateUsername got %v", err)
	}

	if _, err := svc.CreateAccount(parent.ID, AccountCreateInput{
		Username:    "sneaky_admin",
		Email:       "sneaky@example.com",
		Password:    "secret123",
		IsSuperuser: true,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("agent creating superuser want ErrPermissionDenied got %v", err)
	}
}

func TestCreateAccountRejectsUnassignableRole(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	parent := createAgentTestUser(t, db, "assign_parent", constants.NoParentUserID, false)
	grantAgentPerms(t, db, parent.ID, "只开普通号", []string{constants.PermCreateUser})

	agentRole := &models.Role{Name: "越级代理", IsAgentRole: true, UserLevel: 1}
	if err := db.Create(agentRole).Error; err != nil {
		t.Fatalf("create agent role failed: %v", err)
	}

	if _, err := svc.CreateAccount(parent.ID, AccountCreateInput{
		Username: "escalated",
		Email:    "escalated@example.com",
		Password: "secret123",
		RoleIDs:  []uint{agentRole.ID},
	}); !errors.Is(err, ErrRoleNotAssignable) {
		t.Fatalf("unassignable role want ErrRoleNotAssignable got %v", err)
	}
}

func TestListVisibleUsersScoping(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	admin := createAgentTestUser(t, db, "scope_admin", constants.NoParentUserID, true)
	parent := createAgentTestUser(t, db, "scope_parent", constants.NoParentUserID, false)
	createAgentTestUser(t, db, "scope_child_a", int64(parent.ID), false)
	createAgentTestUser(t, db, "scope_child_b", int64(parent.ID), false)
	blind := createAgentTestUser(t, db, "scope_blind", constants.NoParentUserID, false)
	grantAgentPerms(t, db, parent.ID, "看下级", []string{constants.PermViewSubordinateUsers})

	_, total, err := svc.ListVisibleUsers(admin.ID, repository.UserListFilter{Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("superuser list failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("superuser should see all 5 users, got %d", total)
	}

	users, total, err := svc.ListVisibleUsers(parent.ID, repository.UserListFilter{Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("agent list failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("agent should see self plus 2 children, got %d", total)
	}
	for _, u := range users {
		if u.ID != parent.ID && u.ParentUserID != int64(parent.ID) {
			t.Fatalf("agent scope leaked user %s", u.Username)
		}
	}

	users, total, err = svc.ListVisibleUsers(blind.ID, repository.UserListFilter{Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("blind list failed: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].ID != blind.ID {
		t.Fatalf("user without view permission should only see self, got total=%d", total)
	}
}

func TestResetPassword(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	admin := createAgentTestUser(t, db, "reset_admin", constants.NoParentUserID, true)
	parent := createAgentTestUser(t, db, "reset_parent", constants.NoParentUserID, false)
	child := createAgentTestUser(t, db, "reset_child", int64(parent.ID), false)
	grantAgentPerms(t, db, parent.ID, "改密码代理", []string{constants.PermModifySubordinateUsers})

	password, err := svc.ResetPassword(parent.ID, child.ID)
	if err != nil {
		t.Fatalf("reset password failed: %v", err)
	}
	if len(password) != constants.ResetPasswordLength {
		t.Fatalf("password length want %d got %d", constants.ResetPasswordLength, len(password))
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			hasLetter = true
		default:
			t.Fatalf("password contains unexpected character: %s", password)
		}
	}
	if !hasLetter || !hasDigit {
		t.Fatalf("password must mix letters and digits: %s", password)
	}

	var stored models.User
	if err := db.First(&stored, child.ID).Error; err != nil {
		t.Fatalf("load child failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
		t.Fatalf("stored hash should match new password: %v", err)
	}
	if stored.TokenVersion != child.TokenVersion+1 {
		t.Fatalf("reset must bump token version, want %d got %d", child.TokenVersion+1, stored.TokenVersion)
	}

	if _, err := svc.ResetPassword(admin.ID, admin.ID); !errors.Is(err, ErrSuperuserProtected) {
		t.Fatalf("superuser target want ErrSuperuserProtected got %v", err)
	}
	if _, err := svc.ResetPassword(child.ID, parent.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-sponsor actor want ErrPermissionDenied got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	admin := createAgentTestUser(t, db, "del_admin", constants.NoParentUserID, true)
	parent := createAgentTestUser(t, db, "del_parent", constants.NoParentUserID, false)
	child := createAgentTestUser(t, db, "del_child", int64(parent.ID), false)
	grantAgentPerms(t, db, parent.ID, "删号代理", []string{constants.PermDeleteUser})

	if err := svc.DeleteAccount(parent.ID, admin.ID); !errors.Is(err, ErrSuperuserProtected) {
		t.Fatalf("superuser target want ErrSuperuserProtected got %v", err)
	}

	if err := svc.DeleteAccount(parent.ID, child.ID); err != nil {
		t.Fatalf("delete child failed: %v", err)
	}
	if _, err := svc.GetUser(child.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("deleted user lookup want ErrUserNotFound got %v", err)
	}
	var bindings int64
	if err := db.Model(&models.UserRole{}).Where("user_id = ?", child.ID).Count(&bindings).Error; err != nil {
		t.Fatalf("count bindings failed: %v", err)
	}
	if bindings != 0 {
		t.Fatalf("delete must clear role bindings, got %d", bindings)
	}
}

func TestGetInvitationInfo(t *testing.T) {
	svc, db := setupAgentServiceTest(t)
	parent := createAgentTestUser(t, db, "invite_parent", constants.NoParentUserID, false)
	createAgentTestUser(t, db, "invite_child", int64(parent.ID), false)

	info, err := svc.GetInvitationInfo(parent.ID)
	if err != nil {
		t.Fatalf("invitation info failed: %v", err)
	}
	if info.InvitationCode != parent.InvitationCode {
		t.Fatalf("code want %s got %s", parent.InvitationCode, info.InvitationCode)
	}
	if info.SponsoredCount != 1 {
		t.Fatalf("sponsored count want 1 got %d", info.SponsoredCount)
	}
}
