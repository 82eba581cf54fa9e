package service

import (
	"testing"
	"time"

	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

func TestAdminAuditServiceRecordAndList(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewAdminAuditService(repository.NewAdminAuditLogRepository(db))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	targetID := uint(42)
	records := []AdminAuditRecordInput{
		{OperatorID: 1, OperatorEmail: " Admin@Example.com ", Action: models.AuditActionUserBlock, TargetType: models.AuditTargetUser, TargetID: &targetID, TargetLabel: "u@example.com"},
		{OperatorID: 1, OperatorEmail: "admin@example.com", Action: models.AuditActionModelDelete, TargetType: models.AuditTargetModel, Detail: models.JSON{"kind": "text-to-3d"}},
		{OperatorID: 2, OperatorEmail: "ops@example.com", Action: models.AuditActionPolicyGrant, TargetType: models.AuditTargetRole, TargetLabel: "role:support"},
		// 无操作人或动作时忽略
		{OperatorID: 0, Action: models.AuditActionUserDelete},
		{OperatorID: 1, Action: "  "},
	}
	for _, input := range records {
		if err := svc.Record(input); err != nil {
			t.Fatalf("record audit failed: %v", err)
		}
	}

	all, total, err := svc.ListForAdmin(repository.AdminAuditLogListFilter{})
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("want 3 audit logs, got total=%d len=%d", total, len(all))
	}
	if all[0].Action != models.AuditActionPolicyGrant {
		t.Fatalf("logs should be newest first, got %s", all[0].Action)
	}
	if all[2].OperatorEmail != "admin@example.com" {
		t.Fatalf("operator email should be normalized, got %q", all[2].OperatorEmail)
	}
	if all[1].DetailJSON["kind"] != "text-to-3d" {
		t.Fatalf("detail should round trip, got %v", all[1].DetailJSON)
	}

	byOperator, total, err := svc.ListForAdmin(repository.AdminAuditLogListFilter{OperatorID: 1})
	if err != nil || total != 2 || len(byOperator) != 2 {
		t.Fatalf("operator filter want 2, got total=%d err=%v", total, err)
	}

	byTarget, total, err := svc.ListForAdmin(repository.AdminAuditLogListFilter{TargetType: models.AuditTargetUser, TargetID: targetID})
	if err != nil || total != 1 || byTarget[0].TargetLabel != "u@example.com" {
		t.Fatalf("target filter want 1 user log, got total=%d err=%v", total, err)
	}

	from := base.Add(2 * time.Minute)
	recent, total, err := svc.ListForAdmin(repository.AdminAuditLogListFilter{CreatedFrom: &from})
	if err != nil || total != 2 || len(recent) != 2 {
		t.Fatalf("created_from filter want 2, got total=%d err=%v", total, err)
	}
}

func TestAdminAuditServiceNilSafe(t *testing.T) {
	var svc *AdminAuditService
	if err := svc.Record(AdminAuditRecordInput{OperatorID: 1, Action: models.AuditActionUserDelete}); err != nil {
		t.Fatalf("nil service record should be noop: %v", err)
	}
	items, total, err := svc.ListForAdmin(repository.AdminAuditLogListFilter{})
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("nil service list should be empty")
	}
}
