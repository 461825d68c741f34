package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page         int
	PageSize     int
	Keyword      string
	IsActive     *bool
	ParentUserID *int64
	IDs          []uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	SelfID       uint // 非零时结果额外包含该用户本人
}

// RoleListFilter 查询角色列表的过滤条件
type RoleListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	IsAgentRole *bool
	UserLevel   *int
}

// RechargeRecordListFilter 查询充值记录的过滤条件
type RechargeRecordListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	UserIDs     []uint
	Method      string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UsageRecordListFilter 查询使用记录的过滤条件
type UsageRecordListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	UserIDs     []uint
	UsageType   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ExchangeCodeListFilter 查询兑换码列表的过滤条件
type ExchangeCodeListFilter struct {
	Page        int
	PageSize    int
	Code        string
	Status      string
	CreatorID   uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AnnouncementListFilter 查询公告列表的过滤条件
type AnnouncementListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	Status        string
	OnlyPublished bool
}
