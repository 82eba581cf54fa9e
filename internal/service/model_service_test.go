package service

import (
	"context"
	"testing"
	"time"

	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelServiceTest(t *testing.T) (*ModelService, *repository.GormModelRepository) {
	t.Helper()
	db := openServiceTestDB(t)
	repo := repository.NewModelRepository(db)
	return NewModelService(repo, nil), repo
}

func seedModel(t *testing.T, repo *repository.GormModelRepository, userID uint, kind string, public bool) *models.Model {
	t.Helper()
	now := time.Now()
	model := &models.Model{
		UserID:    userID,
		Kind:      kind,
		Title:     "model",
		Prompt:    "prompt",
		ModelURL:  "/demo/sample.glb",
		Format:    "glb",
		IsPublic:  public,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(model))
	return model
}

func TestShareIsIdempotent(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	ctx := context.Background()
	model := seedModel(t, repo, 1, models.ModelKindTextTo3D, false)

	first, err := svc.Share(ctx, 1, model.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ShareToken)
	assert.True(t, first.IsPublic)

	second, err := svc.Share(ctx, 1, model.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ShareToken, *second.ShareToken)

	shared, err := svc.GetShared(*first.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, model.ID, shared.ID)
}

func TestUnshareKeepsTokenButHidesModel(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	ctx := context.Background()
	model := seedModel(t, repo, 1, models.ModelKindTextTo3D, false)

	shared, err := svc.Share(ctx, 1, model.ID)
	require.NoError(t, err)
	token := *shared.ShareToken

	unshared, err := svc.Unshare(ctx, 1, model.ID)
	require.NoError(t, err)
	assert.False(t, unshared.IsPublic)
	require.NotNil(t, unshared.ShareToken)
	assert.Equal(t, token, *unshared.ShareToken)

	_, err = svc.GetShared(token)
	require.ErrorIs(t, err, ErrShareNotFound)

	again, err := svc.Share(ctx, 1, model.ID)
	require.NoError(t, err)
	assert.Equal(t, token, *again.ShareToken, "re-sharing keeps the original link")
}

func TestModelOwnershipIsEnforced(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	ctx := context.Background()
	model := seedModel(t, repo, 1, models.ModelKindTextTo3D, false)

	_, err := svc.GetForUser(2, model.ID)
	require.ErrorIs(t, err, ErrModelNotFound)
	_, err = svc.Share(ctx, 2, model.ID)
	require.ErrorIs(t, err, ErrModelNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 2, model.ID), ErrModelNotFound)

	require.NoError(t, svc.Delete(ctx, 1, model.ID))
	_, err = svc.GetForUser(1, model.ID)
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestListByUserAndUpdate(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	ctx := context.Background()
	seedModel(t, repo, 1, models.ModelKindTextTo3D, false)
	image := seedModel(t, repo, 1, models.ModelKindImageTo3D, false)
	seedModel(t, repo, 2, models.ModelKindTextTo3D, false)

	items, total, err := svc.ListByUser(1, ModelQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = svc.ListByUser(1, ModelQuery{Kind: models.ModelKindImageTo3D})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, image.ID, items[0].ID)

	_, _, err = svc.ListByUser(1, ModelQuery{Kind: "video"})
	require.ErrorIs(t, err, ErrInvalidModelKind)

	title := "  Renamed  "
	public := true
	updated, err := svc.Update(ctx, 1, image.ID, ModelUpdate{Title: &title, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.IsPublic)

	blank := " "
	_, err = svc.Update(ctx, 1, image.ID, ModelUpdate{Title: &blank})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestShowcaseListsPublicModelsOnly(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	public := seedModel(t, repo, 1, models.ModelKindTextTo3D, true)
	seedModel(t, repo, 1, models.ModelKindTextTo3D, false)

	page, err := svc.Showcase(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, public.ID, page.Items[0].ID)
}

func TestAdminModelOperations(t *testing.T) {
	svc, repo := newModelServiceTest(t)
	ctx := context.Background()
	model := seedModel(t, repo, 1, models.ModelKindTextTo3D, false)

	items, total, err := svc.AdminList(repository.ModelListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	got, err := svc.AdminGet(model.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ID, got.ID)

	require.NoError(t, svc.AdminDelete(ctx, model.ID))
	_, err = svc.AdminGet(model.ID)
	require.ErrorIs(t, err, ErrModelNotFound)
}
