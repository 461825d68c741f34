package service

import "errors"

// 账号与权限相关错误
var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrUserDisabled         = errors.New("账号已被禁用")
	ErrInvalidCredentials   = errors.New("用户名或密码错误")
	ErrNotAdminAccount      = errors.New("该账号无后台登录权限")
	ErrPermissionDenied     = errors.New("没有操作权限")
	ErrInvalidPermissionTag = errors.New("无效的代理权限标签")
	ErrDuplicateUsername    = errors.New("用户名已存在")
	ErrDuplicateEmail       = errors.New("邮箱已被注册")
	ErrSuperuserProtected   = errors.New("不允许对超级管理员执行该操作")
	ErrCaptchaRequired      = errors.New("请输入验证码")
	ErrCaptchaInvalid       = errors.New("验证码错误")
)

// 角色相关错误
var (
	ErrRoleNotFound        = errors.New("角色不存在")
	ErrDuplicateRoleName   = errors.New("角色名称已存在")
	ErrSystemRoleProtected = errors.New("系统内置角色不允许删除")
	ErrRoleNotAssignable   = errors.New("无权分配该角色")
	ErrRoleInUse           = errors.New("角色仍被用户绑定，需确认后强制删除")
)

// 层级关系相关错误
var (
	ErrCircularHierarchy      = errors.New("层级关系存在循环")
	ErrInvitationCodeNotFound = errors.New("邀请码无效")
	ErrCodeSpaceExhausted     = errors.New("可用码空间不足，生成失败")
)

// 积分账本相关错误
var (
	ErrAccountNotFound        = errors.New("积分账户不存在")
	ErrInvalidAmount          = errors.New("无效的积分数额")
	ErrInsufficientBalance    = errors.New("积分余额不足")
	ErrSelfTransfer           = errors.New("不能向自己转赠积分")
	ErrInvalidRechargeMethod  = errors.New("无效的充值方式")
	ErrDuplicateTransactionID = errors.New("交易号重复")
	ErrConcurrencyConflict    = errors.New("操作冲突，请重试")
)

// 兑换码相关错误
var (
	ErrExchangeCodeNotFound    = errors.New("兑换码不存在")
	ErrExchangeCodeAlreadyUsed = errors.New("兑换码已被使用")
	ErrExchangeCodeExpired     = errors.New("兑换码已过期")
	ErrDuplicateExchangeCode   = errors.New("兑换码已存在")
)

// 其他资源错误
var (
	ErrMenuNotFound         = errors.New("菜单不存在")
	ErrMenuHasChildren      = errors.New("存在子菜单，无法删除")
	ErrAnnouncementNotFound = errors.New("公告不存在")
	ErrSysConfigNotFound    = errors.New("配置项不存在")
)
