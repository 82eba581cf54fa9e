package cache

import (
	"context"
	"fmt"
	"time"
)

const showcaseCacheTTL = 2 * time.Minute

func showcaseKey(page, pageSize int) string {
	return fmt.Sprintf("showcase:%d:%d", page, pageSize)
}

// GetShowcase 读取公开作品列表缓存
func GetShowcase(ctx context.Context, page, pageSize int, dest interface{}) (bool, error) {
	return GetJSON(ctx, showcaseKey(page, pageSize), dest)
}

// SetShowcase 写入公开作品列表缓存
func SetShowcase(ctx context.Context, page, pageSize int, value interface{}) error {
	return SetJSON(ctx, showcaseKey(page, pageSize), value, showcaseCacheTTL)
}

// InvalidateShowcase 清理公开作品列表缓存
// 公开状态变化较少，直接按前缀扫描删除
func InvalidateShowcase(ctx context.Context) error {
	if !Enabled() {
		return nil
	}
	iter := redisClient.Scan(ctx, 0, BuildKey("showcase:*"), 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return redisClient.Del(ctx, keys...).Err()
}
