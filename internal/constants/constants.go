package constants

// 代理权限常量（封闭枚举，角色仅允许持有以下标签）
const (
	PermViewSubordinateUsers   = "VIEW_SUBORDINATE_USERS"
	PermCreateUser             = "CREATE_USER"
	PermModifySubordinateUsers = "MODIFY_SUBORDINATE_USERS"
	PermManagePoints           = "MANAGE_POINTS"
	PermViewGlobalPointsUsage  = "VIEW_GLOBAL_POINTS_USAGE"
	PermDeleteUser             = "DELETE_USER"
	PermManageRechargeCards    = "MANAGE_RECHARGE_CARDS"
	PermDisableUser            = "DISABLE_USER"
	PermCreateSubordinateAgent = "CREATE_SUBORDINATE_AGENT"
)

// AgentPermissionTags 代理权限全集，顺序即展示顺序
var AgentPermissionTags = []string{
	PermViewSubordinateUsers,
	PermCreateUser,
	PermModifySubordinateUsers,
	PermManagePoints,
	PermViewGlobalPointsUsage,
	PermDeleteUser,
	PermManageRechargeCards,
	PermDisableUser,
	PermCreateSubordinateAgent,
}

// IsAgentPermissionTag 判断标签是否属于封闭枚举
func IsAgentPermissionTag(tag string) bool {
	for _, item := range AgentPermissionTags {
		if item == tag {
			return true
		}
	}
	return false
}

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 上级用户哨兵值（无上级）
const (
	NoParentUserID int64 = -1
)

// 系统保护角色名称常量
const (
	RoleNameAdministrator = "管理员"
	RoleNameNormalUser    = "普通用户"
)

// 角色层级常量（数值越小层级越高，99 为普通用户层级）
const (
	UserLevelTop    = 1
	UserLevelNormal = 99
)

// 邀请码常量
const (
	InvitationCodeLength      = 6
	InvitationCodeMaxAttempts = 100
)

// 重置密码长度常量
const (
	ResetPasswordLength = 8
)

// 充值方式常量
const (
	RechargeMethodAlipay       = "alipay"
	RechargeMethodWechat       = "wechat"
	RechargeMethodExchangeCode = "exchange_code"
	RechargeMethodTransfer     = "transfer"
)

// 充值记录状态常量
const (
	RechargeStatusPending   = "pending"
	RechargeStatusCompleted = "completed"
	RechargeStatusFailed    = "failed"
)

// 积分使用类型常量
const (
	UsageTypeServiceConsumption   = "service_consumption"
	UsageTypeTransferToOthers     = "transfer_to_others"
	UsageTypeGenerateExchangeCode = "generate_exchange_code"
	UsageTypeAdminDeduction       = "admin_deduction"
	UsageTypeOther                = "other"
)

// 兑换码状态常量
const (
	ExchangeCodeStatusUnused  = "unused"
	ExchangeCodeStatusUsed    = "used"
	ExchangeCodeStatusExpired = "expired"
)

// 外部交易号前缀常量
const (
	TransactionIDPrefix = "TXN_"
)

// 公告状态常量
const (
	AnnouncementStatusDraft     = "draft"
	AnnouncementStatusPublished = "published"
)

// 登录日志状态常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// 登录日志失败原因常量
const (
	LoginLogFailReasonBadRequest         = "bad_request"
	LoginLogFailReasonCaptchaRequired    = "captcha_required"
	LoginLogFailReasonCaptchaInvalid     = "captcha_invalid"
	LoginLogFailReasonInvalidCredentials = "invalid_credentials"
	LoginLogFailReasonUserDisabled       = "user_disabled"
	LoginLogFailReasonNotAdminAccount    = "not_admin_account"
	LoginLogFailReasonInternalError      = "internal_error"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin = "login"
)

// 队列常量
const (
	QueueDefault               = "default"
	TaskExchangeCodeExpire     = "exchange_code:timeout_expire"
	TaskLoginLogRecord         = "auth:login_log_record"
	TaskPointsStatsRecalculate = "points:stats_recalculate"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ac"
)

// 系统配置键常量
const (
	SysConfigKeySiteName        = "site_name"
	SysConfigKeySiteDescription = "site_description"
	SysConfigKeyCaptchaProvider = "captcha_provider"
	SysConfigKeyRechargeEnabled = "recharge_enabled"
)
