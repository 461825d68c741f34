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

func setupHierarchyServiceTest(t *testing.T) (*HierarchyService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:hierarchy_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewHierarchyService(repository.NewUserRepository(db)), db
}

func createHierarchyTestUser(t *testing.T, db *gorm.DB, username string, parentID int64) *models.User {
	t.Helper()

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "x",
		IsActive:       true,
		ParentUserID:   parentID,
		InvitationCode: strings.ToUpper(username),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func TestWouldCreateCycle(t *testing.T) {
	svc, db := setupHierarchyServiceTest(t)

	root := createHierarchyTestUser(t, db, "cycle_root", constants.NoParentUserID)
	middle := createHierarchyTestUser(t, db, "cycle_middle", int64(root.ID))
	leaf := createHierarchyTestUser(t, db, "cycle_leaf", int64(middle.ID))

	cycle, err := svc.WouldCreateCycle(leaf.ID, int64(leaf.ID))
	if err != nil {
		t.Fatalf("self cycle check failed: %v", err)
	}
	if !cycle {
		t.Fatalf("assigning self as parent must be a cycle")
	}

	// 把祖先链末端挂到叶子下面会闭环
	cycle, err = svc.WouldCreateCycle(root.ID, int64(leaf.ID))
	if err != nil {
		t.Fatalf("chain cycle check failed: %v", err)
	}
	if !cycle {
		t.Fatalf("moving root under leaf must be a cycle")
	}

	cycle, err = svc.WouldCreateCycle(leaf.ID, int64(root.ID))
	if err != nil {
		t.Fatalf("valid reparent check failed: %v", err)
	}
	if cycle {
		t.Fatalf("moving leaf under root should not be a cycle")
	}

	cycle, err = svc.WouldCreateCycle(leaf.ID, constants.NoParentUserID)
	if err != nil {
		t.Fatalf("no-parent check failed: %v", err)
	}
	if cycle {
		t.Fatalf("clearing parent should never be a cycle")
	}
}

func TestDirectChildrenAndSponsor(t *testing.T) {
	svc, db := setupHierarchyServiceTest(t)

	sponsor := createHierarchyTestUser(t, db, "sponsor_root", constants.NoParentUserID)
	childA := createHierarchyTestUser(t, db, "sponsor_child_a", int64(sponsor.ID))
	createHierarchyTestUser(t, db, "sponsor_child_b", int64(sponsor.ID))
	stranger := createHierarchyTestUser(t, db, "sponsor_stranger", constants.NoParentUserID)

	children, err := svc.DirectChildren(sponsor.ID)
	if err != nil {
		t.Fatalf("direct children failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("children count want 2 got %d", len(children))
	}

	count, err := svc.CountDirectChildren(sponsor.ID)
	if err != nil {
		t.Fatalf("count direct children failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("children count want 2 got %d", count)
	}

	ok, err := svc.IsDirectSponsor(sponsor.ID, childA.ID)
	if err != nil {
		t.Fatalf("direct sponsor check failed: %v", err)
	}
	if !ok {
		t.Fatalf("sponsor should be direct parent of child")
	}

	ok, err = svc.IsDirectSponsor(sponsor.ID, stranger.ID)
	if err != nil {
		t.Fatalf("stranger sponsor check failed: %v", err)
	}
	if ok {
		t.Fatalf("sponsor should not be parent of stranger")
	}
}

func TestResolveInvitation(t *testing.T) {
	svc, db := setupHierarchyServiceTest(t)
	sponsor := createHierarchyTestUser(t, db, "invite_owner", constants.NoParentUserID)

	resolved, err := svc.ResolveInvitation(sponsor.InvitationCode)
	if err != nil {
		t.Fatalf("resolve invitation failed: %v", err)
	}
	if resolved.ID != sponsor.ID {
		t.Fatalf("resolved sponsor want %d got %d", sponsor.ID, resolved.ID)
	}

	if _, err := svc.ResolveInvitation("NOSUCH"); !errors.Is(err, ErrInvitationCodeNotFound) {
		t.Fatalf("unknown code want ErrInvitationCodeNotFound got %v", err)
	}
}

func TestResolveInvitationIgnoresDisabledSponsor(t *testing.T) {
	svc, db := setupHierarchyServiceTest(t)
	sponsor := createHierarchyTestUser(t, db, "invite_frozen", constants.NoParentUserID)

	if err := db.Model(sponsor).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable sponsor failed: %v", err)
	}

	// 被禁用账号的邀请码不能再发展下级
	if _, err := svc.ResolveInvitation(sponsor.InvitationCode); !errors.Is(err, ErrInvitationCodeNotFound) {
		t.Fatalf("disabled sponsor code want ErrInvitationCodeNotFound got %v", err)
	}
}

func TestIssueUniqueInvitationCode(t *testing.T) {
	svc, _ := setupHierarchyServiceTest(t)

	code, err := svc.IssueUniqueInvitationCode()
	if err != nil {
		t.Fatalf("issue invitation code failed: %v", err)
	}
	if len(code) != constants.InvitationCodeLength {
		t.Fatalf("code length want %d got %d (%s)", constants.InvitationCodeLength, len(code), code)
	}
	for _, c := range code {
		if !strings.ContainsRune(invitationCodeAlphabet, c) {
			t.Fatalf("code contains character outside alphabet: %s", code)
		}
	}

	other, err := svc.IssueUniqueInvitationCode()
	if err != nil {
		t.Fatalf("issue second invitation code failed: %v", err)
	}
	if other == code {
		t.Fatalf("two issued codes collided: %s", code)
	}
}
