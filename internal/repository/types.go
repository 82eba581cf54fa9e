package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page          int
	PageSize      int
	Keyword       string
	IsVerified    *bool
	IsBlocked     *bool
	ExcludeAdmins bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
}

// ModelListFilter 查询模型列表的过滤条件
type ModelListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Kind        string
	Keyword     string
	IsPublic    *bool
	IsDemo      *bool
	WithOwner   bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserLoginLogListFilter 查询用户登录日志列表的过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AdminAuditLogListFilter 查询管理端审计日志的过滤条件
type AdminAuditLogListFilter struct {
	Page        int
	PageSize    int
	OperatorID  uint
	Action      string
	TargetType  string
	TargetID    uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
