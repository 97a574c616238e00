package gemini

import (
	"fmt"
	"time"

	"gemini-image/common"
)

// NewGeminiClientFromConfig 从配置创建 Gemini 客户端
func NewGeminiClientFromConfig(cfg *common.Config) (*Client, error) {
	client, err := NewClient(Config{
		APIKey:    cfg.GeminiAPIKey,
		BaseURL:   cfg.GeminiBaseURL,
		ModelName: cfg.GenAIModelName,
		Timeout:   time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"base_url": cfg.GeminiBaseURL,
		"model":    client.Model(),
		"api_key":  common.MaskAPIKey(cfg.GeminiAPIKey),
	}).Debug("Gemini client created")

	return client, nil
}
