package cli

import (
	"fmt"
	"os"
	"strings"

	"gemini-image/common"
)

// PromptSource 提示词来源：命令行字面量或临时文件
type PromptSource interface {
	Resolve() (string, error)
}

// LiteralPrompt 直接通过 --prompt 传入的提示词
type LiteralPrompt string

// Resolve 返回去掉首尾空白的提示词
func (p LiteralPrompt) Resolve() (string, error) {
	text := strings.TrimSpace(string(p))
	if text == "" {
		return "", common.NewValidationError("prompt", "prompt is empty")
	}
	return text, nil
}

// FilePrompt 通过临时文件传入的提示词，避免出现在进程参数和 shell 历史中。
// 读取后删除该文件。
type FilePrompt struct {
	Path string
}

// Resolve 读取并删除提示词文件；删除失败不影响结果
func (p FilePrompt) Resolve() (string, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", common.NewValidationError("prompt file", fmt.Sprintf("file not found: %s", p.Path))
		}
		return "", common.NewValidationError("prompt file", fmt.Sprintf("cannot read %s: %v", p.Path, err))
	}

	if err := os.Remove(p.Path); err != nil {
		common.WithError(err).WithField("path", p.Path).Debug("Failed to delete prompt file")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", common.NewValidationError("prompt file", fmt.Sprintf("%s is empty", p.Path))
	}
	return text, nil
}
