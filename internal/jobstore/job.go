package jobstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status 生成任务状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	ErrNotFound          = errors.New("generation job not found")
	ErrInvalidTransition = errors.New("generation job invalid status transition")
)

// Job 生成任务状态快照，仅用于查询进度，模型记录以数据库为准
type Job struct {
	ID             string    `json:"id"`
	UserID         uint      `json:"user_id"`
	Kind           string    `json:"kind"`
	Status         Status    `json:"status"`
	Title          string    `json:"title,omitempty"`
	Format         string    `json:"format,omitempty"`
	Prompt         string    `json:"prompt,omitempty"`
	SourceImageURL string    `json:"source_image_url,omitempty"`
	SourceImageKey string    `json:"source_image_key,omitempty"`
	IsDemo         bool      `json:"is_demo,omitempty"`
	ExternalTaskID string    `json:"external_task_id,omitempty"`
	ModelID        uint      `json:"model_id,omitempty"`
	ModelURL       string    `json:"model_url,omitempty"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store 任务存储
type Store interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Delete(ctx context.Context, id string) error
	// Update 原子地读取-修改-写回任务；fn 返回错误时不写入
	Update(ctx context.Context, id string, fn func(job *Job) error) (*Job, error)
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Finished 任务是否已结束
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Transition 推进任务状态：pending -> processing -> completed|failed
func (j *Job) Transition(next Status, now time.Time) error {
	for _, allowed := range transitions[j.Status] {
		if allowed == next {
			j.Status = next
			j.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
}

// Fail 标记任务失败
func (j *Job) Fail(reason string, now time.Time) error {
	if err := j.Transition(StatusFailed, now); err != nil {
		return err
	}
	j.Error = reason
	return nil
}

func cloneJob(job *Job) *Job {
	if job == nil {
		return nil
	}
	copied := *job
	return &copied
}
