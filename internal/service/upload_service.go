package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var allowedUploadScenes = map[string]struct{}{
	constants.UploadSceneGeneration: {},
	constants.UploadSceneAvatar:     {},
	constants.UploadSceneCommon:     {},
}

// ImagePayload 已校验的图片内容
type ImagePayload struct {
	Filename    string
	Ext         string
	ContentType string
	Data        []byte
}

// UploadedFile 已存储的文件
type UploadedFile struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UploadService 文件上传服务
type UploadService struct {
	cfg     *config.Config
	storage storage.Storage
	now     func() time.Time
}

// NewUploadService 创建文件上传服务实例
func NewUploadService(cfg *config.Config, store storage.Storage) *UploadService {
	return &UploadService{cfg: cfg, storage: store, now: time.Now}
}

// SaveImage 校验并保存单张图片
func (s *UploadService) SaveImage(ctx context.Context, file *multipart.FileHeader, scene string) (*UploadedFile, error) {
	payload, err := s.ReadImage(file, s.cfg.Upload.MaxSize)
	if err != nil {
		return nil, err
	}
	return s.StoreImage(ctx, payload, scene)
}

// ReadImage 读取并校验图片：大小上限、扩展名白名单、按内容识别 MIME 类型
func (s *UploadService) ReadImage(file *multipart.FileHeader, maxSize int64) (*ImagePayload, error) {
	if file == nil {
		return nil, ErrFileRequired
	}
	if maxSize <= 0 {
		maxSize = s.cfg.Upload.MaxSize
	}
	if maxSize > 0 && file.Size > maxSize {
		return nil, ErrFileTooLarge
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var reader io.Reader = src
	if maxSize > 0 {
		reader = io.LimitReader(src, maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return s.validateImage(file.Filename, data, maxSize)
}

func (s *UploadService) validateImage(filename string, data []byte, maxSize int64) (*ImagePayload, error) {
	if len(data) == 0 {
		return nil, ErrFileRequired
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	detected := mimetype.Detect(data)
	contentType := detected.String()
	if semi := strings.Index(contentType, ";"); semi >= 0 {
		contentType = strings.TrimSpace(contentType[:semi])
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidFileType
	}
	if len(s.cfg.Upload.AllowedTypes) > 0 && !mimetype.EqualsAny(contentType, s.cfg.Upload.AllowedTypes...) {
		return nil, ErrInvalidFileType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = detected.Extension()
	}
	if len(s.cfg.Upload.AllowedExtensions) > 0 && !isAllowedExtension(ext, s.cfg.Upload.AllowedExtensions) {
		return nil, ErrInvalidFileType
	}
	return &ImagePayload{
		Filename:    filename,
		Ext:         ext,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// StoreImage 将已校验的图片写入存储后端，路径为 场景/年/月/uuid.ext
func (s *UploadService) StoreImage(ctx context.Context, payload *ImagePayload, scene string) (*UploadedFile, error) {
	if payload == nil || len(payload.Data) == 0 {
		return nil, ErrFileRequired
	}
	if s.storage == nil {
		return nil, fmt.Errorf("%w: storage not initialized", ErrStorageFailed)
	}
	now := s.now()
	key := fmt.Sprintf("%s/%s/%s/%s%s",
		normalizeUploadScene(scene),
		now.Format("2006"),
		now.Format("01"),
		uuid.New().String(),
		payload.Ext,
	)
	size := int64(len(payload.Data))
	url, err := s.storage.Put(ctx, key, bytes.NewReader(payload.Data), size, payload.ContentType)
	if err != nil {
		logger.Errorw("upload_store_failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	return &UploadedFile{Key: key, URL: url, ContentType: payload.ContentType, Size: size}, nil
}

// Delete 删除存储对象，键为空时忽略
func (s *UploadService) Delete(ctx context.Context, keys ...string) error {
	if s.storage == nil {
		return nil
	}
	var firstErr error
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.Warnw("upload_delete_failed", "key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func normalizeUploadScene(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return constants.UploadSceneCommon
	}
	if _, ok := allowedUploadScenes[value]; ok {
		return value
	}
	return constants.UploadSceneCommon
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}
