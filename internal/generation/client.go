package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("generation service config invalid")
	ErrUnavailable     = errors.New("generation service unavailable")
	ErrRequestFailed   = errors.New("generation service request failed")
	ErrResponseInvalid = errors.New("generation service response invalid")
)

const (
	defaultTimeout   = 60 * time.Second
	maxErrorBodySize = 512

	textTo3DPath  = "/v1/text-to-3d"
	imageTo3DPath = "/v1/image-to-3d"

	// 外部服务返回的任务状态
	RemoteStatusCompleted  = "completed"
	RemoteStatusProcessing = "processing"
	RemoteStatusFailed     = "failed"
)

// Config 生成服务连接配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TextRequest 文本生成请求
type TextRequest struct {
	JobID       string `json:"job_id"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	Format      string `json:"format,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// ImageRequest 图片生成请求，图片以 base64 内联传输
type ImageRequest struct {
	JobID       string `json:"job_id"`
	ImageURL    string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Format      string `json:"format,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Result 生成服务响应
type Result struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ModelURL     string `json:"model_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Format       string `json:"format"`
	Error        string `json:"error"`
}

// Completed 是否已产出模型
func (r *Result) Completed() bool {
	return r != nil && strings.EqualFold(r.Status, RemoteStatusCompleted)
}

// Client 外部 3D 生成服务客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// TextTo3D 提交文本生成
func (c *Client) TextTo3D(ctx context.Context, req TextRequest) (*Result, error) {
	return c.post(ctx, textTo3DPath, req)
}

// ImageTo3D 提交图片生成
func (c *Client) ImageTo3D(ctx context.Context, req ImageRequest) (*Result, error) {
	return c.post(ctx, imageTo3DPath, req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrRequestFailed, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// 连接失败、超时均视为服务不可用
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrResponseInvalid, err)
	}
	return normalizeResult(&result)
}

func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrorBodySize {
		snippet = snippet[:maxErrorBodySize]
	}
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, status, snippet)
	default:
		return fmt.Errorf("%w: status=%d body=%s", ErrRequestFailed, status, snippet)
	}
}

func normalizeResult(result *Result) (*Result, error) {
	result.Status = strings.ToLower(strings.TrimSpace(result.Status))
	switch result.Status {
	case RemoteStatusCompleted:
		if strings.TrimSpace(result.ModelURL) == "" {
			return nil, fmt.Errorf("%w: completed without model_url", ErrResponseInvalid)
		}
	case RemoteStatusProcessing, "pending", "queued":
		result.Status = RemoteStatusProcessing
	case RemoteStatusFailed:
		reason := strings.TrimSpace(result.Error)
		if reason == "" {
			reason = "remote generation failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, reason)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrResponseInvalid, result.Status)
	}
	return result, nil
}
