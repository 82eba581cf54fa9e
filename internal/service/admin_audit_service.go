package service

import (
	"strings"
	"time"

	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

// AdminAuditRecordInput 审计记录输入
type AdminAuditRecordInput struct {
	OperatorID    uint
	OperatorEmail string
	Action        string
	TargetType    string
	TargetID      *uint
	TargetLabel   string
	RequestID     string
	Detail        models.JSON
}

// AdminAuditService 管理端审计服务
type AdminAuditService struct {
	repo repository.AdminAuditLogRepository
	now  func() time.Time
}

// NewAdminAuditService 创建审计服务
func NewAdminAuditService(repo repository.AdminAuditLogRepository) *AdminAuditService {
	return &AdminAuditService{repo: repo, now: time.Now}
}

// Record 记录一次管理端写操作，缺少操作人或动作时忽略
func (s *AdminAuditService) Record(input AdminAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.OperatorID == 0 {
		return nil
	}
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return nil
	}

	item := &models.AdminAuditLog{
		OperatorID:    input.OperatorID,
		OperatorEmail: strings.ToLower(strings.TrimSpace(input.OperatorEmail)),
		Action:        action,
		TargetType:    strings.TrimSpace(input.TargetType),
		TargetID:      input.TargetID,
		TargetLabel:   strings.TrimSpace(input.TargetLabel),
		RequestID:     strings.TrimSpace(input.RequestID),
		DetailJSON:    input.Detail,
		CreatedAt:     s.now(),
	}
	return s.repo.Create(item)
}

// ListForAdmin 管理端查询审计日志
func (s *AdminAuditService) ListForAdmin(filter repository.AdminAuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AdminAuditLog{}, 0, nil
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	filter.Action = strings.TrimSpace(filter.Action)
	filter.TargetType = strings.TrimSpace(filter.TargetType)
	return s.repo.List(filter)
}
