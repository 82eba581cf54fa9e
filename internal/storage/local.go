package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultLocalURLPrefix = "/uploads"

// LocalStorage 本地磁盘存储，由 HTTP 静态路由对外提供
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(root, baseURL string) *LocalStorage {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "uploads"
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultLocalURLPrefix
	}
	return &LocalStorage{root: root, baseURL: baseURL}
}

// Root 存储根目录
func (s *LocalStorage) Root() string {
	return s.root
}

// Put 写入文件
func (s *LocalStorage) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	normalized, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(normalized))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir failed: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create upload file failed: %w", err)
	}
	if _, err := io.Copy(dst, body); err != nil {
		_ = dst.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write upload file failed: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload file failed: %w", err)
	}
	return joinURL(s.baseURL, normalized), nil
}

// Delete 删除文件，不存在时忽略
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	normalized, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(normalized))); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
