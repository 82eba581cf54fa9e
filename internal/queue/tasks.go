package queue

import (
	"encoding/json"

	"github.com/polyva-3d/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSendOTPEmail 验证码邮件发送任务
	TaskSendOTPEmail = constants.TaskSendOTPEmail
	// TaskStorageCleanup 存储对象清理任务
	TaskStorageCleanup = constants.TaskStorageCleanup
)

// OTPEmailPayload 验证码邮件任务载荷
type OTPEmailPayload struct {
	Email         string `json:"email"`
	Code          string `json:"code"`
	Purpose       string `json:"purpose"`
	Locale        string `json:"locale"`
	ExpireMinutes int    `json:"expire_minutes"`
}

// StorageCleanupPayload 存储清理任务载荷
type StorageCleanupPayload struct {
	Keys []string `json:"keys"`
}

// NewOTPEmailTask 创建验证码邮件任务
func NewOTPEmailTask(payload OTPEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendOTPEmail, body), nil
}

// NewStorageCleanupTask 创建存储清理任务
func NewStorageCleanupTask(payload StorageCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStorageCleanup, body), nil
}
