package service

import (
	"context"

	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/queue"
)

// StorageCleaner 删除记录后清理存储对象：启用队列时异步执行，否则同步尽力删除
type StorageCleaner struct {
	upload *UploadService
	queue  *queue.Client
}

// NewStorageCleaner 创建存储清理器
func NewStorageCleaner(upload *UploadService, queueClient *queue.Client) *StorageCleaner {
	return &StorageCleaner{upload: upload, queue: queueClient}
}

// Cleanup 清理存储键，失败只记录日志
func (c *StorageCleaner) Cleanup(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}
	filtered := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			filtered = append(filtered, key)
		}
	}
	if len(filtered) == 0 {
		return
	}
	if c.queue != nil && c.queue.Enabled() {
		err := c.queue.EnqueueStorageCleanup(queue.StorageCleanupPayload{Keys: filtered})
		if err == nil {
			return
		}
		logger.Warnw("storage_cleanup_enqueue_failed", "keys", filtered, "error", err)
	}
	if c.upload == nil {
		return
	}
	if err := c.upload.Delete(context.WithoutCancel(ctx), filtered...); err != nil {
		logger.Warnw("storage_cleanup_failed", "keys", filtered, "error", err)
	}
}
