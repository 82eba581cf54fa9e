package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/generation"
	"github.com/polyva-3d/internal/jobstore"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
	"github.com/polyva-3d/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// pngHeader 最小可识别的 PNG 文件头
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

type fakeGenerationClient struct {
	result    *generation.Result
	err       error
	textReqs  []generation.TextRequest
	imageReqs []generation.ImageRequest
}

func (f *fakeGenerationClient) TextTo3D(_ context.Context, req generation.TextRequest) (*generation.Result, error) {
	f.textReqs = append(f.textReqs, req)
	return f.result, f.err
}

func (f *fakeGenerationClient) ImageTo3D(_ context.Context, req generation.ImageRequest) (*generation.Result, error) {
	f.imageReqs = append(f.imageReqs, req)
	return f.result, f.err
}

type generationFixture struct {
	db     *gorm.DB
	cfg    *config.Config
	jobs   *jobstore.MemoryStore
	models *repository.GormModelRepository
	client *fakeGenerationClient
	svc    *GenerationService
	root   string
}

func newGenerationFixture(t *testing.T, demo bool) *generationFixture {
	t.Helper()
	f := &generationFixture{
		db:     openServiceTestDB(t),
		cfg:    newServiceTestConfig(),
		jobs:   jobstore.NewMemoryStore(0),
		client: &fakeGenerationClient{},
		root:   t.TempDir(),
	}
	f.cfg.Generation.DemoMode = demo
	f.cfg.Generation.CallbackSecret = "cb-secret"
	f.cfg.Generation.CallbackBaseURL = "https://api.polyva.test/"
	f.models = repository.NewModelRepository(f.db)
	upload := NewUploadService(f.cfg, storage.NewLocalStorage(f.root, "/uploads"))
	f.svc = NewGenerationService(&f.cfg.Generation, f.jobs, f.client, f.models, upload, NewStorageCleaner(upload, nil))
	return f
}

func (f *generationFixture) modelCount(t *testing.T) int64 {
	t.Helper()
	count, err := f.models.Count(repository.ModelListFilter{})
	require.NoError(t, err)
	return count
}

func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(int64(len(content))+1024))
	files := req.MultipartForm.File["image"]
	require.Len(t, files, 1)
	return files[0]
}

func TestGenerateFromTextRejectsInvalidPromptBeforeJob(t *testing.T) {
	f := newGenerationFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.GenerateFromText(ctx, 1, TextGenerationInput{Prompt: "   "})
	require.ErrorIs(t, err, ErrPromptRequired)

	_, err = f.svc.GenerateFromText(ctx, 1, TextGenerationInput{Prompt: strings.Repeat("x", 51)})
	require.ErrorIs(t, err, ErrPromptTooLong)

	assert.Equal(t, 0, f.jobs.Len())
	assert.Equal(t, int64(0), f.modelCount(t))
}

func TestGenerateFromTextDemoMode(t *testing.T) {
	f := newGenerationFixture(t, true)
	ctx := context.Background()

	result, err := f.svc.GenerateFromText(ctx, 7, TextGenerationInput{Prompt: "a red  chair", Format: "OBJ"})
	require.NoError(t, err)
	require.NotNil(t, result.Model)

	assert.Equal(t, jobstore.StatusCompleted, result.Job.Status)
	assert.True(t, result.Model.IsDemo)
	assert.Equal(t, models.ModelKindTextTo3D, result.Model.Kind)
	assert.Equal(t, "/demo/sample.glb", result.Model.ModelURL)
	assert.Equal(t, "obj", result.Model.Format)
	assert.Equal(t, "a red chair", result.Model.Title)
	assert.Equal(t, result.Job.ID, result.Model.JobID)
	assert.Empty(t, f.client.textReqs, "demo mode must not call the external service")

	job, err := f.svc.GetJob(ctx, 7, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Model.ID, job.ModelID)

	_, err = f.svc.GetJob(ctx, 8, result.Job.ID)
	require.ErrorIs(t, err, ErrJobNotFound)
	_, err = f.svc.GetJob(ctx, 7, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestGenerateFromTextExternalCompleted(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.client.result = &generation.Result{TaskID: "t-1", Status: generation.RemoteStatusCompleted, ModelURL: "https://cdn/m.glb", ThumbnailURL: "https://cdn/m.png"}

	result, err := f.svc.GenerateFromText(context.Background(), 3, TextGenerationInput{Prompt: "dragon", Title: "My dragon"})
	require.NoError(t, err)
	require.NotNil(t, result.Model)
	require.Len(t, f.client.textReqs, 1)

	req := f.client.textReqs[0]
	assert.Equal(t, "dragon", req.Prompt)
	assert.Equal(t, "glb", req.Format)
	assert.Equal(t, "https://api.polyva.test/api/v1/generate/callback/"+result.Job.ID, req.CallbackURL)
	assert.False(t, result.Model.IsDemo)
	assert.Equal(t, "My dragon", result.Model.Title)
	assert.Equal(t, "t-1", result.Job.ExternalTaskID)
	assert.Equal(t, int64(1), f.modelCount(t))
}

func TestGenerateFromTextExternalErrors(t *testing.T) {
	tests := []struct {
		name      string
		clientErr error
		want      error
	}{
		{name: "unavailable", clientErr: fmt.Errorf("%w: dial tcp", generation.ErrUnavailable), want: ErrGenerationUnavailable},
		{name: "request_failed", clientErr: fmt.Errorf("%w: status=400", generation.ErrRequestFailed), want: ErrGenerationFailed},
		{name: "response_invalid", clientErr: generation.ErrResponseInvalid, want: ErrGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(t, false)
			f.client.err = tt.clientErr

			_, err := f.svc.GenerateFromText(context.Background(), 1, TextGenerationInput{Prompt: "cube"})
			require.ErrorIs(t, err, tt.want)
			require.Len(t, f.client.textReqs, 1)

			job, getErr := f.jobs.Get(context.Background(), f.client.textReqs[0].JobID)
			require.NoError(t, getErr)
			assert.Equal(t, jobstore.StatusFailed, job.Status)
			assert.NotEmpty(t, job.Error)
			assert.Equal(t, int64(0), f.modelCount(t))
		})
	}
}

func TestGenerateWithoutClientIsUnavailable(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.svc.client = nil

	_, err := f.svc.GenerateFromText(context.Background(), 1, TextGenerationInput{Prompt: "cube"})
	require.ErrorIs(t, err, ErrGenerationUnavailable)
}

func TestGenerationCallbackCompletesJob(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.client.result = &generation.Result{TaskID: "remote-9", Status: generation.RemoteStatusProcessing}
	ctx := context.Background()

	result, err := f.svc.GenerateFromText(ctx, 5, TextGenerationInput{Prompt: "ship"})
	require.NoError(t, err)
	assert.Nil(t, result.Model)
	assert.Equal(t, jobstore.StatusProcessing, result.Job.Status)
	assert.Equal(t, int64(0), f.modelCount(t))

	_, err = f.svc.HandleCallback(ctx, result.Job.ID, "wrong", CallbackInput{Status: "completed", ModelURL: "https://cdn/ship.glb"})
	require.ErrorIs(t, err, ErrCallbackUnauthorized)

	_, err = f.svc.HandleCallback(ctx, "missing", "cb-secret", CallbackInput{Status: "completed", ModelURL: "https://cdn/ship.glb"})
	require.ErrorIs(t, err, ErrJobNotFound)

	job, err := f.svc.HandleCallback(ctx, result.Job.ID, "cb-secret", CallbackInput{Status: "completed", ModelURL: "https://cdn/ship.glb"})
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusCompleted, job.Status)
	assert.NotZero(t, job.ModelID)
	assert.Equal(t, int64(1), f.modelCount(t))

	_, err = f.svc.HandleCallback(ctx, result.Job.ID, "cb-secret", CallbackInput{Status: "completed", ModelURL: "https://cdn/ship.glb"})
	require.ErrorIs(t, err, ErrJobFinished)
}

func TestGenerationCallbackFailure(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.client.result = &generation.Result{TaskID: "remote-1", Status: generation.RemoteStatusProcessing}
	ctx := context.Background()

	result, err := f.svc.GenerateFromText(ctx, 5, TextGenerationInput{Prompt: "ship"})
	require.NoError(t, err)

	job, err := f.svc.HandleCallback(ctx, result.Job.ID, "cb-secret", CallbackInput{Status: "failed", Error: "gpu crashed"})
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusFailed, job.Status)
	assert.Equal(t, "gpu crashed", job.Error)

	f.cfg.Generation.CallbackSecret = ""
	_, err = f.svc.HandleCallback(ctx, result.Job.ID, "", CallbackInput{Status: "failed"})
	require.ErrorIs(t, err, ErrCallbackUnauthorized, "callbacks are disabled without a secret")
}

func TestGenerateFromImageDemoMode(t *testing.T) {
	f := newGenerationFixture(t, true)

	file := newFileHeader(t, "chair.png", pngHeader)
	result, err := f.svc.GenerateFromImage(context.Background(), 2, ImageGenerationInput{File: file})
	require.NoError(t, err)
	require.NotNil(t, result.Model)

	assert.Equal(t, models.ModelKindImageTo3D, result.Model.Kind)
	assert.Equal(t, "chair", result.Model.Title)
	assert.True(t, strings.HasPrefix(result.Model.SourceImageURL, "/uploads/generation/"))
	assert.NotEmpty(t, result.Model.SourceImageKey)
}

func TestGenerateFromImageExternalSendsInlineImage(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.client.result = &generation.Result{Status: generation.RemoteStatusCompleted, ModelURL: "https://cdn/x.glb"}

	file := newFileHeader(t, "x.png", pngHeader)
	_, err := f.svc.GenerateFromImage(context.Background(), 2, ImageGenerationInput{File: file})
	require.NoError(t, err)
	require.Len(t, f.client.imageReqs, 1)
	assert.Equal(t, "image/png", f.client.imageReqs[0].MimeType)
	assert.NotEmpty(t, f.client.imageReqs[0].ImageBase64)
}

func TestGenerateFromImageValidation(t *testing.T) {
	f := newGenerationFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.GenerateFromImage(ctx, 1, ImageGenerationInput{})
	require.ErrorIs(t, err, ErrImageRequired)

	_, err = f.svc.GenerateFromImage(ctx, 1, ImageGenerationInput{File: newFileHeader(t, "notes.png", []byte("plain text body"))})
	require.ErrorIs(t, err, ErrInvalidFileType)

	f.cfg.Generation.MaxImageSize = 8
	_, err = f.svc.GenerateFromImage(ctx, 1, ImageGenerationInput{File: newFileHeader(t, "big.png", pngHeader)})
	require.ErrorIs(t, err, ErrFileTooLarge)

	assert.Equal(t, 0, f.jobs.Len())
	assert.Equal(t, int64(0), f.modelCount(t))
}

func TestGenerationErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrGenerationUnavailable, ErrGenerationFailed))
}

// callbackFirstClient 在返回提交响应之前先送达回调，模拟处理极快的外部服务
type callbackFirstClient struct {
	svc      *GenerationService
	callback CallbackInput
	err      error
}

func (c *callbackFirstClient) TextTo3D(ctx context.Context, req generation.TextRequest) (*generation.Result, error) {
	if _, err := c.svc.HandleCallback(ctx, req.JobID, "cb-secret", c.callback); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	return &generation.Result{TaskID: "remote-fast", Status: generation.RemoteStatusProcessing}, nil
}

func (c *callbackFirstClient) ImageTo3D(context.Context, generation.ImageRequest) (*generation.Result, error) {
	return nil, generation.ErrUnavailable
}

func TestGenerationCallbackBeforeSubmitResponseKeepsJobCompleted(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.svc.client = &callbackFirstClient{
		svc:      f.svc,
		callback: CallbackInput{TaskID: "remote-fast", Status: "completed", ModelURL: "https://cdn/fast.glb"},
	}
	ctx := context.Background()

	result, err := f.svc.GenerateFromText(ctx, 4, TextGenerationInput{Prompt: "fast lamp"})
	require.NoError(t, err)
	require.NotNil(t, result.Model)
	assert.Equal(t, jobstore.StatusCompleted, result.Job.Status)

	stored, err := f.jobs.Get(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusCompleted, stored.Status)
	assert.Equal(t, result.Model.ID, stored.ModelID)
	assert.Equal(t, "remote-fast", stored.ExternalTaskID)
	assert.Equal(t, int64(1), f.modelCount(t))
}

func TestGenerationSubmitErrorAfterCallbackKeepsJobCompleted(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.svc.client = &callbackFirstClient{
		svc:      f.svc,
		callback: CallbackInput{Status: "completed", ModelURL: "https://cdn/late.glb"},
		err:      fmt.Errorf("%w: read timeout", generation.ErrUnavailable),
	}
	ctx := context.Background()

	result, err := f.svc.GenerateFromText(ctx, 4, TextGenerationInput{Prompt: "late lamp"})
	require.NoError(t, err)
	require.NotNil(t, result.Model)
	assert.Equal(t, "https://cdn/late.glb", result.Model.ModelURL)

	stored, err := f.jobs.Get(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusCompleted, stored.Status)
	assert.Empty(t, stored.Error)
}

func TestGenerationCompleteIsIdempotentPerJob(t *testing.T) {
	f := newGenerationFixture(t, false)
	f.client.result = &generation.Result{TaskID: "remote-2", Status: generation.RemoteStatusProcessing}
	ctx := context.Background()

	accepted, err := f.svc.GenerateFromText(ctx, 6, TextGenerationInput{Prompt: "twin"})
	require.NoError(t, err)

	// 两次重复回调都在任务结束前读到了 processing 快照
	first, err := f.jobs.Get(ctx, accepted.Job.ID)
	require.NoError(t, err)
	second, err := f.jobs.Get(ctx, accepted.Job.ID)
	require.NoError(t, err)

	done := &generation.Result{Status: generation.RemoteStatusCompleted, ModelURL: "https://cdn/twin.glb"}
	r1, err := f.svc.complete(ctx, first, done)
	require.NoError(t, err)
	r2, err := f.svc.complete(ctx, second, done)
	require.NoError(t, err)

	assert.Equal(t, r1.Model.ID, r2.Model.ID)
	assert.Equal(t, int64(1), f.modelCount(t))

	stored, err := f.jobs.Get(ctx, accepted.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, r1.Model.ID, stored.ModelID)

	// 已完成的任务不会再被失败覆盖
	require.ErrorIs(t, f.svc.fail(ctx, second, "late failure"), ErrJobFinished)
	stored, err = f.jobs.Get(ctx, accepted.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusCompleted, stored.Status)
}
