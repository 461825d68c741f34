package service

import (
	"strings"

	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
)

// MenuService 菜单服务
type MenuService struct {
	menuRepo repository.MenuRepository
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

// MenuInput 创建/更新菜单输入
type MenuInput struct {
	Name      string
	Path      string
	Component string
	Icon      string
	ParentID  uint
	SortOrder int
	IsHidden  bool
	Meta      models.JSON
}

// NewMenuService 创建菜单服务
func NewMenuService(
	menuRepo repository.MenuRepository,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
) *MenuService {
	return &MenuService{
		menuRepo: menuRepo,
		userRepo: userRepo,
		roleRepo: roleRepo,
	}
}

// ListMenus 获取全部菜单（平铺）
func (s *MenuService) ListMenus() ([]models.Menu, error) {
	return s.menuRepo.ListAll()
}

// MenuTree 获取全量菜单树
func (s *MenuService) MenuTree() ([]*models.Menu, error) {
	menus, err := s.menuRepo.ListAll()
	if err != nil {
		return nil, err
	}
	return buildMenuTree(menus), nil
}

// UserMenuTree 获取用户可见菜单树。超级管理员可见全部，
// 其余按角色-菜单绑定取并集。
func (s *MenuService) UserMenuTree(userID uint) ([]*models.Menu, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsSuperuser {
		return s.MenuTree()
	}

	roles, err := s.userRepo.GetRolesByUserID(userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{})
	var menus []models.Menu
	for _, role := range roles {
		roleMenus, err := s.roleRepo.ListMenusByRoleID(role.ID)
		if err != nil {
			return nil, err
		}
		for _, menu := range roleMenus {
			if _, dup := seen[menu.ID]; dup {
				continue
			}
			seen[menu.ID] = struct{}{}
			menus = append(menus, menu)
		}
	}
	return buildMenuTree(menus), nil
}

// CreateMenu 创建菜单
func (s *MenuService) CreateMenu(input MenuInput) (*models.Menu, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrMenuNotFound
	}
	if input.ParentID != 0 {
		parent, err := s.menuRepo.GetByID(input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrMenuNotFound
		}
	}
	menu := &models.Menu{
		Name:      name,
		Path:      strings.TrimSpace(input.Path),
		Component: strings.TrimSpace(input.Component),
		Icon:      strings.TrimSpace(input.Icon),
		ParentID:  input.ParentID,
		SortOrder: input.SortOrder,
		IsHidden:  input.IsHidden,
		Meta:      input.Meta,
	}
	if err := s.menuRepo.Create(menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// UpdateMenu 更新菜单
func (s *MenuService) UpdateMenu(menuID uint, input MenuInput) (*models.Menu, error) {
	menu, err := s.menuRepo.GetByID(menuID)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, ErrMenuNotFound
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		menu.Name = name
	}
	menu.Path = strings.TrimSpace(input.Path)
	menu.Component = strings.TrimSpace(input.Component)
	menu.Icon = strings.TrimSpace(input.Icon)
	menu.ParentID = input.ParentID
	menu.SortOrder = input.SortOrder
	menu.IsHidden = input.IsHidden
	if input.Meta != nil {
		menu.Meta = input.Meta
	}
	if err := s.menuRepo.Update(menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// DeleteMenu 删除菜单，存在子菜单时拒绝
func (s *MenuService) DeleteMenu(menuID uint) error {
	menu, err := s.menuRepo.GetByID(menuID)
	if err != nil {
		return err
	}
	if menu == nil {
		return ErrMenuNotFound
	}
	children, err := s.menuRepo.CountChildren(menuID)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrMenuHasChildren
	}
	return s.menuRepo.Delete(menu)
}

func buildMenuTree(menus []models.Menu) []*models.Menu {
	nodes := make(map[uint]*models.Menu, len(menus))
	for i := range menus {
		menu := menus[i]
		menu.Children = nil
		nodes[menu.ID] = &menu
	}
	var roots []*models.Menu
	for _, menu := range menus {
		node := nodes[menu.ID]
		if parent, ok := nodes[menu.ParentID]; ok && menu.ParentID != 0 {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	return roots
}
