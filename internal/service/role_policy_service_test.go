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
	"gorm.io/gorm"
)

func setupRoleServiceTest(t *testing.T) (*RoleService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:role_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return NewRoleService(roleRepo, userRepo, permissionSvc), db
}

func createRoleTestUser(t *testing.T, db *gorm.DB, username string, superuser bool) *models.User {
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

func createRoleFixture(t *testing.T, db *gorm.DB, name string, isAgent bool, level int, tags []string) *models.Role {
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

func roleNames(roles []models.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names
}

func containsRole(roles []models.Role, name string) bool {
	for _, role := range roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

func TestCreatableRolesSuperuserExcludesAdministrator(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	admin := createRoleTestUser(t, db, "role_admin", true)

	createRoleFixture(t, db, constants.RoleNameAdministrator, false, constants.UserLevelTop, nil)
	createRoleFixture(t, db, constants.RoleNameNormalUser, false, constants.UserLevelNormal, nil)
	createRoleFixture(t, db, "一级代理", true, 1, nil)
	createRoleFixture(t, db, "二级代理", true, 2, nil)

	creatable, err := svc.CreatableRoles(admin.ID)
	if err != nil {
		t.Fatalf("creatable roles failed: %v", err)
	}
	if len(creatable) != 3 {
		t.Fatalf("creatable count want 3 got %d (%v)", len(creatable), roleNames(creatable))
	}
	if containsRole(creatable, constants.RoleNameAdministrator) {
		t.Fatalf("administrator role must never be assignable")
	}
}

func TestCreatableRolesWithCreateUserPermission(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	actor := createRoleTestUser(t, db, "role_creator", false)

	agentRole := createRoleFixture(t, db, "开号代理", true, 2, []string{constants.PermCreateUser})
	createRoleFixture(t, db, constants.RoleNameNormalUser, false, constants.UserLevelNormal, nil)
	createRoleFixture(t, db, "三级代理", true, 3, nil)
	if err := db.Create(&models.UserRole{UserID: actor.ID, RoleID: agentRole.ID}).Error; err != nil {
		t.Fatalf("bind role failed: %v", err)
	}

	creatable, err := svc.CreatableRoles(actor.ID)
	if err != nil {
		t.Fatalf("creatable roles failed: %v", err)
	}
	if len(creatable) != 1 || creatable[0].Name != constants.RoleNameNormalUser {
		t.Fatalf("CREATE_USER should only allow normal-user roles, got %v", roleNames(creatable))
	}
}

func TestCreatableRolesWithCreateSubordinateAgent(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	actor := createRoleTestUser(t, db, "role_sponsor", false)

	level1 := createRoleFixture(t, db, "一级代理", true, 1, []string{constants.PermCreateSubordinateAgent})
	createRoleFixture(t, db, "二级代理", true, 2, nil)
	createRoleFixture(t, db, "三级代理", true, 3, nil)
	createRoleFixture(t, db, constants.RoleNameNormalUser, false, constants.UserLevelNormal, nil)
	if err := db.Create(&models.UserRole{UserID: actor.ID, RoleID: level1.ID}).Error; err != nil {
		t.Fatalf("bind role failed: %v", err)
	}

	creatable, err := svc.CreatableRoles(actor.ID)
	if err != nil {
		t.Fatalf("creatable roles failed: %v", err)
	}
	// 只允许恰好低一级的代理角色
	if len(creatable) != 1 || creatable[0].Name != "二级代理" {
		t.Fatalf("should only allow the next agent level down, got %v", roleNames(creatable))
	}

	ok, err := svc.CanAssignRole(actor.ID, creatable[0].ID)
	if err != nil {
		t.Fatalf("can assign role failed: %v", err)
	}
	if !ok {
		t.Fatalf("creatable role should be assignable")
	}
}

func TestCreatableRolesWithoutPermissions(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	actor := createRoleTestUser(t, db, "role_powerless", false)
	createRoleFixture(t, db, constants.RoleNameNormalUser, false, constants.UserLevelNormal, nil)

	creatable, err := svc.CreatableRoles(actor.ID)
	if err != nil {
		t.Fatalf("creatable roles failed: %v", err)
	}
	if len(creatable) != 0 {
		t.Fatalf("actor without create permissions should get none, got %v", roleNames(creatable))
	}
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _ := setupRoleServiceTest(t)

	role, err := svc.CreateRole(RoleCreateInput{
		Name:             "渠道代理",
		IsAgentRole:      true,
		UserLevel:        2,
		AgentPermissions: []string{constants.PermViewSubordinateUsers},
	})
	if err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	if role.ID == 0 {
		t.Fatalf("created role should have id")
	}

	if _, err := svc.CreateRole(RoleCreateInput{Name: "渠道代理"}); !errors.Is(err, ErrDuplicateRoleName) {
		t.Fatalf("duplicate name want ErrDuplicateRoleName got %v", err)
	}

	if _, err := svc.CreateRole(RoleCreateInput{
		Name:             "坏角色",
		AgentPermissions: []string{"UNKNOWN_TAG"},
	}); !errors.Is(err, ErrInvalidPermissionTag) {
		t.Fatalf("unknown tag want ErrInvalidPermissionTag got %v", err)
	}
}

func TestUpdateAgentPermissionsRejectsUnknownTags(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	role := createRoleFixture(t, db, "权限代理", true, 2, []string{constants.PermCreateUser})

	if _, err := svc.UpdateAgentPermissions(role.ID, []string{constants.PermCreateUser, "BOGUS"}); !errors.Is(err, ErrInvalidPermissionTag) {
		t.Fatalf("unknown tag want ErrInvalidPermissionTag got %v", err)
	}

	var stored models.Role
	if err := db.First(&stored, role.ID).Error; err != nil {
		t.Fatalf("load role failed: %v", err)
	}
	if len(stored.AgentPermissions) != 1 || stored.AgentPermissions[0] != constants.PermCreateUser {
		t.Fatalf("rejected update must not change stored tags, got %v", stored.AgentPermissions)
	}

	updated, err := svc.UpdateAgentPermissions(role.ID, []string{
		constants.PermManagePoints,
		constants.PermViewGlobalPointsUsage,
	})
	if err != nil {
		t.Fatalf("update agent permissions failed: %v", err)
	}
	if len(updated.AgentPermissions) != 2 {
		t.Fatalf("updated tags want 2 got %v", updated.AgentPermissions)
	}
}

func TestDeleteRoleProtections(t *testing.T) {
	svc, db := setupRoleServiceTest(t)
	admin := createRoleTestUser(t, db, "delete_admin", true)
	solo := createRoleTestUser(t, db, "delete_solo", false)
	multi := createRoleTestUser(t, db, "delete_multi", false)

	protected := createRoleFixture(t, db, constants.RoleNameNormalUser, false, constants.UserLevelNormal, nil)
	victim := createRoleFixture(t, db, "临时代理", true, 5, nil)
	other := createRoleFixture(t, db, "辅助代理", true, 6, nil)
	for _, binding := range []models.UserRole{
		{UserID: solo.ID, RoleID: victim.ID},
		{UserID: multi.ID, RoleID: victim.ID},
		{UserID: multi.ID, RoleID: other.ID},
	} {
		if err := db.Create(&binding).Error; err != nil {
			t.Fatalf("bind role failed: %v", err)
		}
	}

	if _, err := svc.DeleteRole(solo.ID, victim.ID, false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-superuser delete want ErrPermissionDenied got %v", err)
	}
	if _, err := svc.DeleteRole(admin.ID, protected.ID, true); !errors.Is(err, ErrSystemRoleProtected) {
		t.Fatalf("protected role want ErrSystemRoleProtected got %v", err)
	}

	result, err := svc.DeleteRole(admin.ID, victim.ID, false)
	if !errors.Is(err, ErrRoleInUse) {
		t.Fatalf("bound role without force want ErrRoleInUse got %v", err)
	}
	if result == nil || result.Deleted || result.AffectedUsers != 2 {
		t.Fatalf("in-use result want deleted=false affected=2 got %+v", result)
	}

	result, err = svc.DeleteRole(admin.ID, victim.ID, true)
	if err != nil {
		t.Fatalf("force delete failed: %v", err)
	}
	if !result.Deleted || result.AffectedUsers != 2 || result.DeletedUsers != 1 {
		t.Fatalf("force result want deleted=true affected=2 deleted_users=1 got %+v", result)
	}

	if _, err := svc.GetRole(victim.ID); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("deleted role lookup want ErrRoleNotFound got %v", err)
	}
	var bindings int64
	if err := db.Model(&models.UserRole{}).Where("role_id = ?", victim.ID).Count(&bindings).Error; err != nil {
		t.Fatalf("count bindings failed: %v", err)
	}
	if bindings != 0 {
		t.Fatalf("force delete must clear user bindings, got %d", bindings)
	}

	// 仅持有该角色的账号被连同删除
	var soloStored models.User
	if err := db.First(&soloStored, solo.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("solo-role account should be deleted, got %v", err)
	}
	// 多角色账号只解绑，保留账号和其余角色
	var multiStored models.User
	if err := db.First(&multiStored, multi.ID).Error; err != nil {
		t.Fatalf("multi-role account should survive: %v", err)
	}
	var multiBindings int64
	if err := db.Model(&models.UserRole{}).Where("user_id = ?", multi.ID).Count(&multiBindings).Error; err != nil {
		t.Fatalf("count multi bindings failed: %v", err)
	}
	if multiBindings != 1 {
		t.Fatalf("multi-role account should keep its other role, got %d bindings", multiBindings)
	}
}
