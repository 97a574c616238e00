package gemini

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

	"gemini-image/common"
	"gemini-image/internal/utils"

	"google.golang.org/genai"
)

// APIError 非 2xx 响应，Body 保留服务端返回的原始内容
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error: status %d, body:\n%s", e.StatusCode, e.Body)
}

// TransportError 连接层错误（DNS、TCP、TLS 等），不重试
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client Gemini REST 客户端，每次调用只发出一个请求
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string // 默认模型
}

// Config Gemini 客户端配置
type Config struct {
	APIKey    string
	BaseURL   string        // 为空时使用 common.DefaultGeminiBaseURL
	ModelName string        // 默认模型，可被 ImageRequest.Model 覆盖
	Timeout   time.Duration // 0 表示不设置超时
	// HTTPClient 可选，测试时注入
	HTTPClient *http.Client
}

// NewClient 创建新的 Gemini 客户端
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = common.DefaultGeminiBaseURL
	}

	model := cfg.ModelName
	if model == "" {
		model = common.DefaultModelName
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
	}, nil
}

// Model 返回默认模型名称
func (c *Client) Model() string {
	return c.model
}

// endpoint 生成接口地址，密钥放在 query 参数中
func (c *Client) endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))
}

// GenerateImage 文生图 / 图片编辑：组装请求、调用接口并解析出第一张图片
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	req = req.withDefaults(c.model)

	common.WithFields(map[string]interface{}{
		"model":        req.Model,
		"image_size":   req.ImageSize,
		"aspect_ratio": req.AspectRatio,
		"has_input":    req.InputImage != nil,
		"prompt":       utils.TruncateForLog(req.Prompt, 80),
	}).Debug("Starting image generation")

	resp, err := c.GenerateContent(ctx, req.Model, BuildRequest(req))
	if err != nil {
		return nil, err
	}

	result, err := ExtractImage(resp)
	if err != nil {
		common.WithError(err).WithField("model", req.Model).Warn("No image in Gemini response")
		return nil, err
	}

	common.WithFields(map[string]interface{}{
		"model":     req.Model,
		"mime_type": result.MIMEType,
		"size":      len(result.Data),
	}).Debug("Image generated successfully")

	return result, nil
}

// GenerateContent 发送一次 generateContent 请求并解析响应 JSON
func (c *Client) GenerateContent(ctx context.Context, model string, payload *GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// url.Error 会带上完整 URL（包含密钥），只保留底层错误
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		common.WithError(err).WithField("model", model).Error("Gemini request failed")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		common.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"model":       model,
			"body":        utils.TruncateForLog(string(respBody), 512),
		}).Error("Gemini API returned non-success status")
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result genai.GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		common.WithError(err).WithField("body", utils.TruncateForLog(string(respBody), 512)).Error("Failed to parse Gemini response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}
