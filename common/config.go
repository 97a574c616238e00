package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultGeminiBaseURL Gemini REST 接口的默认地址
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModelName 未指定 --model 时使用的模型
	DefaultModelName = "gemini-3-pro-image-preview"
)

// Config 应用配置结构
type Config struct {
	// Gemini 配置；APIKey 只来自 GEMINI_API_KEY（环境变量或 .env 文件）
	GeminiAPIKey  string
	GeminiBaseURL string
	// 默认模型名称，可被 --model 覆盖
	GenAIModelName string
	// GenAI 请求超时时间（秒），0 表示不设置超时，由底层 transport 决定
	GenAITimeoutSeconds int

	// 是否在写入本地文件后上传到 OSS
	UploadEnabled bool
	// OSS 配置
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadOptions 控制配置加载行为
type LoadOptions struct {
	// HomeFallback 为 true 时，项目 .env 中找不到密钥会继续读取 ~/.env
	HomeFallback bool
}

// LoadConfig 从环境变量加载配置，并按优先级解析 GEMINI_API_KEY。
// .env 文件只用于读取密钥，不会写入进程环境变量。
func LoadConfig(opts LoadOptions) (*Config, error) {
	config := &Config{
		GeminiBaseURL:       strings.TrimRight(getEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL), "/"),
		GenAIModelName:      getEnv("GENAI_MODEL_NAME", DefaultModelName),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 0),
		UploadEnabled:       getEnvBool("GENAI_UPLOAD", false),
		// OSS 配置
		OSSEndpoint:  getEnv("OSS_ENDPOINT", ""),
		OSSRegion:    getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey: getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey: getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:    getEnv("OSS_BUCKET", ""),
		// 日志配置；stdout 留给输出路径和 MCP 协议
		LogLevel:  getEnv("LOG_LEVEL", "warn"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stderr"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	// 初始化日志系统
	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	key, ok := LoadSecret(opts.HomeFallback)
	if !ok {
		return nil, fmt.Errorf("%w\n%s", ErrMissingAPIKey, apiKeyGuidance(opts.HomeFallback))
	}
	config.GeminiAPIKey = key

	return config, nil
}

// OSSConfigured 判断 OSS 上传所需字段是否齐全
func (c *Config) OSSConfigured() bool {
	return c.OSSBucket != "" && c.OSSAccessKey != "" && c.OSSSecretKey != ""
}

// apiKeyGuidance 缺少密钥时给用户的修复提示
func apiKeyGuidance(homeFallback bool) string {
	var b strings.Builder
	b.WriteString("Set it in one of the following ways:\n")
	fmt.Fprintf(&b, "  1. export %s=your-key\n", APIKeyEnv)
	fmt.Fprintf(&b, "  2. add %s=your-key to ./.env\n", APIKeyEnv)
	if homeFallback {
		fmt.Fprintf(&b, "  3. add %s=your-key to ~/.env\n", APIKeyEnv)
	}
	b.WriteString("Get a key at https://aistudio.google.com/apikey")
	return b.String()
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}
