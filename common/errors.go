package common

import "errors"

// 配置错误：缺少必需的输入，需要用户补充配置
var (
	ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")
	ErrMissingPrompt = errors.New("a prompt is required: pass --prompt \"...\" or --prompt-file <path>")
)

// ValidationError 输入校验错误（输入图片、提示词文件等）
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NewValidationError 创建输入校验错误
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
