package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/generation"
	"github.com/polyva-3d/internal/jobstore"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultPromptMaxLength = 1000
	maxDerivedTitleLength  = 64
	defaultModelFormat     = "glb"
	generationCallbackPath = "/api/v1/generate/callback/"
)

// GenerationClient 外部 3D 生成服务
type GenerationClient interface {
	TextTo3D(ctx context.Context, req generation.TextRequest) (*generation.Result, error)
	ImageTo3D(ctx context.Context, req generation.ImageRequest) (*generation.Result, error)
}

// GenerationService 生成门面：校验输入、登记任务、调用外部服务或演示模式，成功后落库模型
type GenerationService struct {
	cfg     *config.GenerationConfig
	jobs    jobstore.Store
	client  GenerationClient
	models  repository.ModelRepository
	upload  *UploadService
	cleaner *StorageCleaner
	now     func() time.Time
}

// NewGenerationService 创建生成服务；client 为空且非演示模式时生成请求返回服务不可用
func NewGenerationService(cfg *config.GenerationConfig, jobs jobstore.Store, client GenerationClient, modelRepo repository.ModelRepository, upload *UploadService, cleaner *StorageCleaner) *GenerationService {
	return &GenerationService{
		cfg:     cfg,
		jobs:    jobs,
		client:  client,
		models:  modelRepo,
		upload:  upload,
		cleaner: cleaner,
		now:     time.Now,
	}
}

// TextGenerationInput 文本生成参数
type TextGenerationInput struct {
	Prompt string
	Title  string
	Format string
}

// ImageGenerationInput 图片生成参数
type ImageGenerationInput struct {
	File   *multipart.FileHeader
	Title  string
	Format string
}

// GenerationResult 生成结果；外部服务异步处理时 Model 为空
type GenerationResult struct {
	Job   *jobstore.Job
	Model *models.Model
}

// CallbackInput 外部服务回调内容
type CallbackInput struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ModelURL     string `json:"model_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Format       string `json:"format"`
	Error        string `json:"error"`
}

// GenerateFromText 文本生成 3D
func (s *GenerationService) GenerateFromText(ctx context.Context, userID uint, input TextGenerationInput) (*GenerationResult, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	if len([]rune(prompt)) > s.maxPromptLength() {
		return nil, ErrPromptTooLong
	}

	job := s.newJob(userID, models.ModelKindTextTo3D, input.Title, input.Format)
	job.Prompt = prompt
	if job.Title == "" {
		job.Title = deriveTitle(prompt)
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return s.run(ctx, job, func(callCtx context.Context, client GenerationClient) (*generation.Result, error) {
		return client.TextTo3D(callCtx, generation.TextRequest{
			JobID:       job.ID,
			Prompt:      prompt,
			Format:      job.Format,
			CallbackURL: s.callbackURL(job.ID),
		})
	})
}

// GenerateFromImage 图片生成 3D，图片先校验再存储，随后登记任务
func (s *GenerationService) GenerateFromImage(ctx context.Context, userID uint, input ImageGenerationInput) (*GenerationResult, error) {
	if input.File == nil {
		return nil, ErrImageRequired
	}
	payload, err := s.upload.ReadImage(input.File, s.cfg.MaxImageSize)
	if err != nil {
		if errors.Is(err, ErrFileRequired) {
			return nil, ErrImageRequired
		}
		return nil, err
	}
	stored, err := s.upload.StoreImage(ctx, payload, constants.UploadSceneGeneration)
	if err != nil {
		return nil, err
	}

	job := s.newJob(userID, models.ModelKindImageTo3D, input.Title, input.Format)
	job.SourceImageURL = stored.URL
	job.SourceImageKey = stored.Key
	if job.Title == "" {
		job.Title = deriveTitle(strings.TrimSuffix(payload.Filename, payload.Ext))
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.cleaner.Cleanup(ctx, stored.Key)
		return nil, err
	}
	result, err := s.run(ctx, job, func(callCtx context.Context, client GenerationClient) (*generation.Result, error) {
		return client.ImageTo3D(callCtx, generation.ImageRequest{
			JobID:       job.ID,
			ImageURL:    stored.URL,
			ImageBase64: base64.StdEncoding.EncodeToString(payload.Data),
			MimeType:    payload.ContentType,
			Format:      job.Format,
			CallbackURL: s.callbackURL(job.ID),
		})
	})
	if err != nil {
		s.cleaner.Cleanup(ctx, stored.Key)
		return nil, err
	}
	return result, nil
}

// GetJob 查询任务进度，仅任务所有者可见
func (s *GenerationService) GetJob(ctx context.Context, userID uint, jobID string) (*jobstore.Job, error) {
	job, err := s.jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// HandleCallback 处理外部服务的异步完成回调
func (s *GenerationService) HandleCallback(ctx context.Context, jobID, secret string, input CallbackInput) (*jobstore.Job, error) {
	expected := strings.TrimSpace(s.cfg.CallbackSecret)
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(secret))) != 1 {
		return nil, ErrCallbackUnauthorized
	}
	job, err := s.jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.Finished() {
		return nil, ErrJobFinished
	}
	if taskID := strings.TrimSpace(input.TaskID); taskID != "" {
		job.ExternalTaskID = taskID
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	switch {
	case status == generation.RemoteStatusCompleted && strings.TrimSpace(input.ModelURL) != "":
		completed, err := s.complete(ctx, job, &generation.Result{
			TaskID:       input.TaskID,
			Status:       status,
			ModelURL:     input.ModelURL,
			ThumbnailURL: input.ThumbnailURL,
			Format:       input.Format,
		})
		if err != nil {
			return nil, err
		}
		job = completed.Job
	case status == generation.RemoteStatusFailed || status == generation.RemoteStatusCompleted:
		reason := strings.TrimSpace(input.Error)
		if reason == "" {
			reason = "remote generation failed"
		}
		if err := s.fail(ctx, job, reason); err != nil {
			return nil, err
		}
		s.cleaner.Cleanup(ctx, job.SourceImageKey)
	default:
		return nil, ErrInvalidInput
	}
	logger.Infow("generation_callback_handled", "job_id", job.ID, "status", job.Status)
	return job, nil
}

func (s *GenerationService) run(ctx context.Context, job *jobstore.Job, call func(context.Context, GenerationClient) (*generation.Result, error)) (*GenerationResult, error) {
	if err := job.Transition(jobstore.StatusProcessing, s.now()); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	if s.cfg.DemoMode {
		job.IsDemo = true
		return s.complete(ctx, job, &generation.Result{
			Status:       generation.RemoteStatusCompleted,
			ModelURL:     s.cfg.DemoModelURL,
			ThumbnailURL: s.cfg.DemoThumbnailURL,
			Format:       job.Format,
		})
	}
	if s.client == nil {
		_ = s.fail(ctx, job, "generation service not configured")
		return nil, ErrGenerationUnavailable
	}

	// 外部调用与客户端请求解耦，仅受固定超时约束
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout())
	defer cancel()
	result, err := call(callCtx, s.client)
	if err != nil {
		logger.Warnw("generation_failed", "job_id", job.ID, "kind", job.Kind, "error", err)
		if failErr := s.fail(ctx, job, err.Error()); errors.Is(failErr, ErrJobFinished) {
			return s.finishedResult(job)
		}
		if errors.Is(err, generation.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if result.Completed() {
		job.ExternalTaskID = result.TaskID
		return s.complete(ctx, job, result)
	}
	// 回调可能先于提交响应到达，只在任务未结束时记录外部任务号
	err = s.mutate(ctx, job, func(current *jobstore.Job) error {
		if !current.Finished() && result.TaskID != "" {
			current.ExternalTaskID = result.TaskID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job.Finished() {
		return s.finishedResult(job)
	}
	logger.Infow("generation_accepted", "job_id", job.ID, "task_id", job.ExternalTaskID)
	return &GenerationResult{Job: job}, nil
}

// complete 落库模型并将任务标记为完成；同一任务重复完成时复用已有模型
func (s *GenerationService) complete(ctx context.Context, job *jobstore.Job, result *generation.Result) (*GenerationResult, error) {
	now := s.now()
	model, err := s.persistModel(job, result, now)
	if err != nil {
		logger.Errorw("generation_model_persist_failed", "job_id", job.ID, "error", err)
		_ = s.fail(ctx, job, "model persist failed")
		return nil, err
	}

	isDemo, taskID := job.IsDemo, job.ExternalTaskID
	markCompleted := func(current *jobstore.Job) error {
		switch current.Status {
		case jobstore.StatusCompleted:
			return nil
		case jobstore.StatusFailed:
			return ErrJobFinished
		case jobstore.StatusPending:
			if err := current.Transition(jobstore.StatusProcessing, now); err != nil {
				return err
			}
		}
		if err := current.Transition(jobstore.StatusCompleted, now); err != nil {
			return err
		}
		current.IsDemo = isDemo
		if taskID != "" {
			current.ExternalTaskID = taskID
		}
		current.ModelID = model.ID
		current.ModelURL = model.ModelURL
		current.ThumbnailURL = model.ThumbnailURL
		return nil
	}
	if err := s.mutate(ctx, job, markCompleted); err != nil {
		if errors.Is(err, ErrJobFinished) {
			return nil, err
		}
		logger.Warnw("generation_job_save_failed", "job_id", job.ID, "error", err)
		if err := markCompleted(job); err != nil {
			return nil, err
		}
	}
	logger.Infow("generation_completed", "job_id", job.ID, "model_id", model.ID, "demo", job.IsDemo)
	return &GenerationResult{Job: job, Model: model}, nil
}

// persistModel 每个任务至多落库一个模型，并发写入由 job_id 唯一索引兜底
func (s *GenerationService) persistModel(job *jobstore.Job, result *generation.Result, now time.Time) (*models.Model, error) {
	existing, err := s.models.GetByJobID(job.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	format := strings.ToLower(strings.TrimSpace(result.Format))
	if format == "" {
		format = job.Format
	}
	model := &models.Model{
		UserID:         job.UserID,
		Kind:           job.Kind,
		Title:          job.Title,
		Prompt:         job.Prompt,
		SourceImageURL: job.SourceImageURL,
		SourceImageKey: job.SourceImageKey,
		ModelURL:       result.ModelURL,
		ThumbnailURL:   result.ThumbnailURL,
		Format:         format,
		IsDemo:         job.IsDemo,
		JobID:          job.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.models.Create(model); err != nil {
		if winner, getErr := s.models.GetByJobID(job.ID); getErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}
	return model, nil
}

func (s *GenerationService) fail(ctx context.Context, job *jobstore.Job, reason string) error {
	now := s.now()
	err := s.mutate(ctx, job, func(current *jobstore.Job) error {
		if current.Finished() {
			return ErrJobFinished
		}
		return current.Fail(reason, now)
	})
	if errors.Is(err, ErrJobFinished) {
		if latest, getErr := s.jobs.Get(ctx, job.ID); getErr == nil {
			*job = *latest
		}
		return err
	}
	if err != nil {
		logger.Warnw("generation_job_save_failed", "job_id", job.ID, "error", err)
	}
	return err
}

// mutate 原子更新存储中的任务并同步到 job；存储中已过期时按本地副本重建
func (s *GenerationService) mutate(ctx context.Context, job *jobstore.Job, fn func(current *jobstore.Job) error) error {
	updated, err := s.jobs.Update(ctx, job.ID, fn)
	if errors.Is(err, jobstore.ErrNotFound) {
		if err := fn(job); err != nil {
			return err
		}
		return s.jobs.Save(ctx, job)
	}
	if err != nil {
		return err
	}
	*job = *updated
	return nil
}

// finishedResult 回调先于提交响应结束了任务：完成时带回模型，失败按生成失败返回
func (s *GenerationService) finishedResult(job *jobstore.Job) (*GenerationResult, error) {
	if job.Status == jobstore.StatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, job.Error)
	}
	model, err := s.models.GetByID(job.ModelID)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Job: job, Model: model}, nil
}

func (s *GenerationService) newJob(userID uint, kind, title, format string) *jobstore.Job {
	now := s.now()
	return &jobstore.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Status:    jobstore.StatusPending,
		Title:     strings.TrimSpace(title),
		Format:    s.resolveFormat(format),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *GenerationService) resolveFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "glb", "gltf", "obj", "fbx", "usdz":
		return format
	}
	if def := strings.TrimSpace(s.cfg.DefaultModelFormat); def != "" {
		return strings.ToLower(def)
	}
	return defaultModelFormat
}

func (s *GenerationService) callbackURL(jobID string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.CallbackBaseURL), "/")
	if base == "" || strings.TrimSpace(s.cfg.CallbackSecret) == "" {
		return ""
	}
	return base + generationCallbackPath + jobID
}

func (s *GenerationService) maxPromptLength() int {
	if s.cfg.MaxPromptLength <= 0 {
		return defaultPromptMaxLength
	}
	return s.cfg.MaxPromptLength
}

func (s *GenerationService) timeout() time.Duration {
	if s.cfg.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.cfg.TimeoutSeconds) * time.Second
}

func deriveTitle(source string) string {
	title := strings.Join(strings.Fields(source), " ")
	runes := []rune(title)
	if len(runes) > maxDerivedTitleLength {
		return string(runes[:maxDerivedTitleLength])
	}
	if title == "" {
		return "Untitled model"
	}
	return title
}
