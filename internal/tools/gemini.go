package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-image/internal/genai/gemini"
	"gemini-image/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolGenerateImage MCP tool 名称
const ToolGenerateImage = "gemini_generate_image"

// JobRunner 执行一次生成任务
type JobRunner interface {
	Generate(ctx context.Context, job service.Job) (*service.Outcome, error)
}

// RegisterGeminiTools 注册 Gemini 图片生成 / 编辑的 MCP tool
func RegisterGeminiTools(s *server.MCPServer, runner JobRunner) error {
	if runner == nil {
		return fmt.Errorf("image service is required")
	}
	s.AddTool(NewGenerateImageTool(), GenerateImageHandler(runner))
	return nil
}

// NewGenerateImageTool tool 定义
func NewGenerateImageTool() mcp.Tool {
	return mcp.NewTool(
		ToolGenerateImage,
		mcp.WithDescription("Generate an image with Gemini from a text prompt, or edit a local input image. Writes the image to disk and returns the output file path."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("Text prompt describing the image to generate or the edit to apply"),
		),
		mcp.WithString("output",
			mcp.Description("Output file path (default: generated-YYYYMMDD-HHMMSS.png in the working directory)"),
		),
		mcp.WithString("model",
			mcp.Description("Gemini model identifier, e.g. gemini-3-pro-image-preview or gemini-2.5-flash-image"),
		),
		mcp.WithString("size",
			mcp.Description("Resolution: 1K, 2K or 4K (or 1024 / 2048 / 4096). Unrecognized values fall back to 2K"),
		),
		mcp.WithString("aspect_ratio",
			mcp.Description("Aspect ratio such as 1:1, 16:9, 9:16, 4:3 (default 1:1)"),
		),
		mcp.WithString("input_image",
			mcp.Description("Optional local image to edit (.png, .jpg, .jpeg, .webp, .gif)"),
		),
		mcp.WithBoolean("upload",
			mcp.Description("Also upload the result to the configured object storage bucket"),
		),
	)
}

// GenerateImageHandler tool 处理函数；失败以 tool error 的形式返回给调用方
func GenerateImageHandler(runner JobRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil || strings.TrimSpace(prompt) == "" {
			return mcp.NewToolResultError("prompt parameter is required"), nil
		}

		outcome, err := runner.Generate(ctx, service.Job{
			Prompt:         strings.TrimSpace(prompt),
			InputImagePath: req.GetString("input_image", ""),
			Model:          req.GetString("model", ""),
			Size:           req.GetString("size", ""),
			AspectRatio:    req.GetString("aspect_ratio", ""),
			Output:         req.GetString("output", ""),
			Upload:         req.GetBool("upload", false),
		})
		if err != nil {
			var refusal *gemini.RefusalError
			if errors.As(err, &refusal) {
				return mcp.NewToolResultError(fmt.Sprintf("model did not return an image. Response text: %s", refusal.Text)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("failed to generate image: %v", err)), nil
		}

		if outcome.UploadURL != "" {
			return mcp.NewToolResultText(fmt.Sprintf("%s\n%s", outcome.OutputPath, outcome.UploadURL)), nil
		}
		return mcp.NewToolResultText(outcome.OutputPath), nil
	}
}
