package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPermissionServiceTest(t *testing.T) (*PermissionService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:permission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Role{}, &models.UserRole{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPermissionService(repository.NewUserRepository(db)), db
}

func createPermTestUser(t *testing.T, db *gorm.DB, username string, superuser bool) *models.User {
	t.Helper()

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		IsActive:       true,
		IsSuperuser:    superuser,
		ParentUserID:   constants.NoParentUserID,
		InvitationCode: strings.ToUpper(username),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func createPermTestRole(t *testing.T, db *gorm.DB, name string, isAgent bool, level int, tags []string) *models.Role {
	t.Helper()

	role := &models.Role{
		Name:             name,
		IsAgentRole:      isAgent,
		UserLevel:        level,
		AgentPermissions: models.StringArray(tags),
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("create role %s failed: %v", name, err)
	}
	return role
}

func bindUserRole(t *testing.T, db *gorm.DB, userID, roleID uint) {
	t.Helper()

	if err := db.Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error; err != nil {
		t.Fatalf("bind user %d role %d failed: %v", userID, roleID, err)
	}
}

func TestResolveSuperuserGetsFullSet(t *testing.T) {
	svc, db := setupPermissionServiceTest(t)
	admin := createPermTestUser(t, db, "perm_admin", true)

	perms, err := svc.Resolve(admin.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !reflect.DeepEqual(perms, constants.AgentPermissionTags) {
		t.Fatalf("superuser perms want full set, got %v", perms)
	}

	ok, err := svc.HasPermission(admin.ID, constants.PermDeleteUser)
	if err != nil {
		t.Fatalf("has permission failed: %v", err)
	}
	if !ok {
		t.Fatalf("superuser must hold every permission")
	}
}

func TestResolveUnionsAgentRolesAndFiltersDirtyTags(t *testing.T) {
	svc, db := setupPermissionServiceTest(t)
	agent := createPermTestUser(t, db, "perm_agent", false)

	roleA := createPermTestRole(t, db, "一级代理", true, 1, []string{
		constants.PermViewSubordinateUsers,
		constants.PermCreateUser,
		"LEGACY_UNKNOWN_TAG",
	})
	roleB := createPermTestRole(t, db, "积分代理", true, 2, []string{
		constants.PermCreateUser,
		constants.PermManagePoints,
	})
	// 非代理角色的标签不参与并集
	roleC := createPermTestRole(t, db, "普通用户", false, constants.UserLevelNormal, []string{
		constants.PermDeleteUser,
	})
	bindUserRole(t, db, agent.ID, roleA.ID)
	bindUserRole(t, db, agent.ID, roleB.ID)
	bindUserRole(t, db, agent.ID, roleC.ID)

	perms, err := svc.Resolve(agent.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := []string{
		constants.PermCreateUser,
		constants.PermManagePoints,
		constants.PermViewSubordinateUsers,
	}
	if !reflect.DeepEqual(perms, want) {
		t.Fatalf("perms want %v got %v", want, perms)
	}

	ok, err := svc.HasPermission(agent.ID, constants.PermDeleteUser)
	if err != nil {
		t.Fatalf("has permission failed: %v", err)
	}
	if ok {
		t.Fatalf("non-agent role tags must not grant permission")
	}

	ok, err = svc.HasPermission(agent.ID, "LEGACY_UNKNOWN_TAG")
	if err != nil {
		t.Fatalf("has permission failed: %v", err)
	}
	if ok {
		t.Fatalf("tag outside the closed set must never be granted")
	}
}

func TestResolveUserWithoutRoles(t *testing.T) {
	svc, db := setupPermissionServiceTest(t)
	user := createPermTestUser(t, db, "perm_plain", false)

	perms, err := svc.Resolve(user.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("user without roles should have no perms, got %v", perms)
	}

	if _, err := svc.Resolve(99999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user want ErrUserNotFound got %v", err)
	}
}

func TestValidateTags(t *testing.T) {
	svc, _ := setupPermissionServiceTest(t)

	if err := svc.ValidateTags([]string{constants.PermCreateUser, constants.PermManagePoints}); err != nil {
		t.Fatalf("valid tags should pass: %v", err)
	}
	if err := svc.ValidateTags(nil); err != nil {
		t.Fatalf("empty tag set should pass: %v", err)
	}
	if err := svc.ValidateTags([]string{constants.PermCreateUser, "NOT_A_TAG"}); !errors.Is(err, ErrInvalidPermissionTag) {
		t.Fatalf("unknown tag want ErrInvalidPermissionTag got %v", err)
	}
}
