package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/polyva-3d/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Model{}, &models.UserLoginLog{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, isAdmin bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		DisplayName:  strings.Split(email, "@")[0],
		IsAdmin:      isAdmin,
		IsVerified:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createTestModel(t *testing.T, db *gorm.DB, userID uint, kind string, public bool) *models.Model {
	t.Helper()
	model := &models.Model{
		UserID:   userID,
		Kind:     kind,
		Title:    "robot " + kind,
		Prompt:   "a small robot",
		ModelURL: "/demo/models/sample.glb",
		IsPublic: public,
	}
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("create model failed: %v", err)
	}
	return model
}

func TestUserRepositoryNotFoundReturnsNil(t *testing.T) {
	repo := NewUserRepository(setupRepositoryTestDB(t))
	user, err := repo.GetByEmail("missing@polyva.io")
	if err != nil || user != nil {
		t.Fatalf("expected nil user without error, got %v %v", user, err)
	}
	user, err = repo.GetByID(42)
	if err != nil || user != nil {
		t.Fatalf("expected nil user without error, got %v %v", user, err)
	}
}

func TestUserRepositoryListExcludesAdmins(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserRepository(db)
	createTestUser(t, db, "admin@polyva.io", true)
	createTestUser(t, db, "alice@polyva.io", false)
	blocked := createTestUser(t, db, "bob@polyva.io", false)
	blocked.IsBlocked = true
	if err := repo.Update(blocked); err != nil {
		t.Fatalf("update user failed: %v", err)
	}

	users, total, err := repo.List(UserListFilter{Page: 1, PageSize: 10, ExcludeAdmins: true})
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("expected 2 non-admin users, got total=%d len=%d", total, len(users))
	}
	for _, user := range users {
		if user.IsAdmin {
			t.Fatalf("admin should be excluded")
		}
	}

	isBlocked := true
	users, total, err = repo.List(UserListFilter{Page: 1, PageSize: 10, ExcludeAdmins: true, IsBlocked: &isBlocked, Keyword: "bob"})
	if err != nil {
		t.Fatalf("list blocked users failed: %v", err)
	}
	if total != 1 || users[0].Email != "bob@polyva.io" {
		t.Fatalf("expected bob only, got total=%d users=%+v", total, users)
	}

	users, total, err = repo.List(UserListFilter{Page: 2, PageSize: 1, ExcludeAdmins: true})
	if err != nil {
		t.Fatalf("list page 2 failed: %v", err)
	}
	if total != 2 || len(users) != 1 || users[0].Email != "alice@polyva.io" {
		t.Fatalf("unexpected page 2: total=%d users=%+v", total, users)
	}
}

func TestModelRepositoryShareTokenAndCascade(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewModelRepository(db)
	owner := createTestUser(t, db, "owner@polyva.io", false)
	other := createTestUser(t, db, "other@polyva.io", false)

	first := createTestModel(t, db, owner.ID, models.ModelKindTextTo3D, false)
	createTestModel(t, db, owner.ID, models.ModelKindImageTo3D, true)
	createTestModel(t, db, other.ID, models.ModelKindTextTo3D, true)

	token := "share-token-1"
	if _, err := repo.MarkShared(first.ID, token, time.Now()); err != nil {
		t.Fatalf("mark shared failed: %v", err)
	}
	found, err := repo.GetByShareToken(token)
	if err != nil || found == nil || found.ID != first.ID {
		t.Fatalf("lookup by share token failed: %v %v", found, err)
	}
	if missing, err := repo.GetByShareToken("  "); err != nil || missing != nil {
		t.Fatalf("blank token should resolve nothing")
	}

	items, total, err := repo.List(ModelListFilter{UserID: owner.ID, Kind: models.ModelKindTextTo3D, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list models failed: %v", err)
	}
	if total != 1 || items[0].ID != first.ID {
		t.Fatalf("kind filter failed: total=%d", total)
	}

	deleted, err := repo.DeleteByUserID(owner.ID)
	if err != nil {
		t.Fatalf("delete by user failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted models, got %d", deleted)
	}
	remaining, err := repo.Count(ModelListFilter{UserID: owner.ID})
	if err != nil || remaining != 0 {
		t.Fatalf("owner models should be gone, got %d %v", remaining, err)
	}
	otherCount, _ := repo.Count(ModelListFilter{UserID: other.ID})
	if otherCount != 1 {
		t.Fatalf("other user's models must survive, got %d", otherCount)
	}
}

func TestModelRepositoryMarkSharedKeepsFirstToken(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewModelRepository(db)
	owner := createTestUser(t, db, "dave@polyva.io", false)
	model := createTestModel(t, db, owner.ID, models.ModelKindTextTo3D, false)

	shared, err := repo.MarkShared(model.ID, "token-a", time.Now())
	if err != nil {
		t.Fatalf("first share failed: %v", err)
	}
	if shared.ShareToken == nil || *shared.ShareToken != "token-a" || !shared.IsPublic {
		t.Fatalf("first share should set token-a and publish: %+v", shared)
	}

	again, err := repo.MarkShared(model.ID, "token-b", time.Now())
	if err != nil {
		t.Fatalf("second share failed: %v", err)
	}
	if again.ShareToken == nil || *again.ShareToken != "token-a" {
		t.Fatalf("existing token must not be overwritten, got %v", again.ShareToken)
	}

	// 普通更新不会清掉令牌
	stale := *model
	stale.IsPublic = false
	if err := repo.Update(&stale); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	reloaded, err := repo.GetByID(model.ID)
	if err != nil || reloaded.ShareToken == nil || *reloaded.ShareToken != "token-a" {
		t.Fatalf("update must keep share token: %+v %v", reloaded, err)
	}
}

func TestModelRepositoryJobIDUnique(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewModelRepository(db)
	owner := createTestUser(t, db, "erin@polyva.io", false)

	newModel := func(jobID string) *models.Model {
		return &models.Model{UserID: owner.ID, Kind: models.ModelKindTextTo3D, ModelURL: "/m.glb", JobID: jobID}
	}
	if err := repo.Create(newModel("job-1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(newModel("job-1")); err == nil {
		t.Fatalf("second model for the same job should be rejected")
	}
	for i := 0; i < 2; i++ {
		if err := repo.Create(newModel("")); err != nil {
			t.Fatalf("models without job id must not collide: %v", err)
		}
	}

	found, err := repo.GetByJobID("job-1")
	if err != nil || found == nil {
		t.Fatalf("lookup by job id failed: %v %v", found, err)
	}
	if missing, err := repo.GetByJobID(" "); err != nil || missing != nil {
		t.Fatalf("blank job id should resolve nothing")
	}
}

func TestModelRepositoryListWithOwner(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewModelRepository(db)
	owner := createTestUser(t, db, "carol@polyva.io", false)
	createTestModel(t, db, owner.ID, models.ModelKindTextTo3D, true)

	isPublic := true
	items, _, err := repo.List(ModelListFilter{IsPublic: &isPublic, WithOwner: true, Page: 1, PageSize: 5})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].User == nil || items[0].User.Email != "carol@polyva.io" {
		t.Fatalf("owner should be preloaded: %+v", items)
	}
}

func TestUserLoginLogRepositoryListByUser(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewUserLoginLogRepository(db)
	for i := 0; i < 3; i++ {
		if err := repo.Create(&models.UserLoginLog{UserID: 7, Email: "dave@polyva.io", Status: models.LoginStatusSuccess}); err != nil {
			t.Fatalf("create log failed: %v", err)
		}
	}
	if err := repo.Create(&models.UserLoginLog{Email: "dave@polyva.io", Status: models.LoginStatusFailed, FailReason: "invalid_password"}); err != nil {
		t.Fatalf("create failed log failed: %v", err)
	}

	logs, total, err := repo.ListByUser(7, 1, 2)
	if err != nil {
		t.Fatalf("list by user failed: %v", err)
	}
	if total != 3 || len(logs) != 2 {
		t.Fatalf("expected total=3 len=2, got %d %d", total, len(logs))
	}

	logs, total, err = repo.ListAdmin(UserLoginLogListFilter{Email: " DAVE@polyva.io ", Status: models.LoginStatusFailed, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || logs[0].FailReason != "invalid_password" {
		t.Fatalf("unexpected admin logs: %+v", logs)
	}
}

func TestDashboardOverviewAndTrends(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewDashboardRepository(db)
	createTestUser(t, db, "root@polyva.io", true)
	owner := createTestUser(t, db, "erin@polyva.io", false)
	createTestModel(t, db, owner.ID, models.ModelKindTextTo3D, true)
	createTestModel(t, db, owner.ID, models.ModelKindImageTo3D, false)

	now := time.Now()
	overview, err := repo.GetOverview(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.UsersTotal != 1 || overview.ModelsTotal != 2 || overview.PublicModels != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if overview.TextTo3DModels != 1 || overview.ImageModels != 1 || overview.NewModels != 2 {
		t.Fatalf("unexpected kind counts: %+v", overview)
	}

	trends, err := repo.GetModelTrends(now.Add(-48*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}
	var text, image int64
	for _, row := range trends {
		text += row.TextTo3D
		image += row.ImageTo3D
	}
	if text != 1 || image != 1 {
		t.Fatalf("unexpected trend totals: text=%d image=%d", text, image)
	}
}

func TestListPageOrdersNewestFirstAndClampsPageSize(t *testing.T) {
	db := setupRepositoryTestDB(t)
	owner := createTestUser(t, db, "frank@polyva.io", false)

	empty, total, err := listPage[models.Model](db.Model(&models.Model{}).Where("user_id = ?", owner.ID), 1, 10)
	if err != nil || total != 0 || empty == nil || len(empty) != 0 {
		t.Fatalf("empty page should be a non-nil empty slice: %v %d %v", empty, total, err)
	}

	batch := make([]models.Model, 0, maxPageSize+5)
	for i := 0; i < maxPageSize+5; i++ {
		batch = append(batch, models.Model{UserID: owner.ID, Kind: models.ModelKindTextTo3D, ModelURL: "/m.glb"})
	}
	if err := db.CreateInBatches(&batch, 50).Error; err != nil {
		t.Fatalf("create models failed: %v", err)
	}

	items, total, err := listPage[models.Model](db.Model(&models.Model{}), 1, 1000)
	if err != nil {
		t.Fatalf("list page failed: %v", err)
	}
	if total != int64(maxPageSize+5) || len(items) != maxPageSize {
		t.Fatalf("page size should clamp to %d: total=%d len=%d", maxPageSize, total, len(items))
	}
	if items[0].ID < items[len(items)-1].ID {
		t.Fatalf("items should be ordered newest first")
	}

	last, _, err := listPage[models.Model](db.Model(&models.Model{}), 2, maxPageSize)
	if err != nil || len(last) != 5 {
		t.Fatalf("second page want 5 items got %d %v", len(last), err)
	}
}
