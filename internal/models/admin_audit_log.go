package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	AuditActionUserUpdate   = "user.update"
	AuditActionUserBlock    = "user.block"
	AuditActionUserUnblock  = "user.unblock"
	AuditActionUserDelete   = "user.delete"
	AuditActionModelDelete  = "model.delete"
	AuditActionRoleCreate   = "authz.role_create"
	AuditActionPolicyGrant  = "authz.policy_grant"
	AuditActionPolicyRevoke = "authz.policy_revoke"
	AuditActionRoleAssign   = "authz.role_assign"
	AuditActionRoleReset    = "authz.role_reset"

	AuditTargetUser  = "user"
	AuditTargetModel = "model"
	AuditTargetRole  = "role"
)

// JSON 以 JSON 文本存储的键值对象
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(raw, j)
}

// AdminAuditLog 管理端变更审计日志
// 说明：记录管理员对用户、模型与权限策略的写操作，支持按操作人、动作与时间范围检索。
type AdminAuditLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	OperatorID    uint      `gorm:"index;not null" json:"operator_id"`
	OperatorEmail string    `gorm:"type:varchar(255);index;not null;default:''" json:"operator_email"`
	Action        string    `gorm:"type:varchar(64);index;not null" json:"action"`
	TargetType    string    `gorm:"type:varchar(32);index;not null;default:''" json:"target_type"`
	TargetID      *uint     `gorm:"index" json:"target_id,omitempty"`
	TargetLabel   string    `gorm:"type:varchar(255);not null;default:''" json:"target_label"`
	RequestID     string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON    JSON      `gorm:"type:json" json:"detail"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
