package gemini

import "context"

// ImageGenerator 图片生成接口，CLI 与 MCP tool 共用
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}
