package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/polyva-3d/internal/config"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

var (
	ErrInvalidKey    = errors.New("storage key invalid")
	ErrUnsupported   = errors.New("storage driver unsupported")
	ErrConfigInvalid = errors.New("storage config invalid")
)

// Storage 上传文件的存储后端
type Storage interface {
	// Put 写入对象并返回可访问的 URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New 根据配置创建存储后端
func New(ctx context.Context, cfg config.StorageConfig, uploadDir string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverLocal:
		return NewLocalStorage(uploadDir, cfg.PublicBaseURL), nil
	case DriverS3:
		return NewS3Storage(ctx, cfg.S3, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, cfg.Driver)
	}
}

// normalizeKey 统一分隔符并拒绝目录穿越
func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
