package gemini

import (
	"strings"

	"gemini-image/common"
	"gemini-image/internal/utils"

	"google.golang.org/genai"
)

const (
	// DefaultAspectRatio 未指定 --aspect-ratio 时使用的宽高比
	DefaultAspectRatio = "1:1"
	// DefaultImageSize 无法识别的分辨率一律回退到中档
	DefaultImageSize = "2K"

	// legacyImageModel 不支持 imageConfig 的旧模型。按子串匹配，模型改名后会失效。
	legacyImageModel = "gemini-2.5-flash-image"
)

// GenerateContentRequest generateContent 请求体
type GenerateContentRequest struct {
	Contents         []*genai.Content  `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig"`
}

// GenerationConfig 生成选项
type GenerationConfig struct {
	ResponseModalities []genai.Modality `json:"responseModalities"`
	ImageConfig        *ImageConfig     `json:"imageConfig,omitempty"`
}

// ImageConfig 分辨率与宽高比，仅发送给支持的模型
type ImageConfig struct {
	ImageSize   string `json:"imageSize,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// ImageRequest 单次生成请求的参数
type ImageRequest struct {
	Prompt      string
	InputImage  *utils.ImagePayload // 可选，图片编辑时使用
	Model       string
	ImageSize   string
	AspectRatio string
}

// withDefaults 填充缺省的模型、分辨率与宽高比
func (r ImageRequest) withDefaults(defaultModel string) ImageRequest {
	if strings.TrimSpace(r.Model) == "" {
		r.Model = defaultModel
	}
	if r.Model == "" {
		r.Model = common.DefaultModelName
	}
	r.ImageSize = NormalizeImageSize(r.ImageSize)
	if strings.TrimSpace(r.AspectRatio) == "" {
		r.AspectRatio = DefaultAspectRatio
	}
	return r
}

// NormalizeImageSize 将分辨率标签规范为 1K / 2K / 4K（不区分大小写，也接受像素数）。
// 无法识别的值返回 2K，不报错。
func NormalizeImageSize(size string) string {
	switch strings.ToUpper(strings.TrimSpace(size)) {
	case "1K", "1024":
		return "1K"
	case "2K", "2048":
		return "2K"
	case "4K", "4096":
		return "4K"
	default:
		return DefaultImageSize
	}
}

// SupportsImageConfig 判断模型是否接受 imageConfig
func SupportsImageConfig(model string) bool {
	return !strings.Contains(model, legacyImageModel)
}

// BuildRequest 组装请求：可选的输入图片在前，提示词文本始终是最后一个 part。
func BuildRequest(req ImageRequest) *GenerateContentRequest {
	parts := make([]*genai.Part, 0, 2)
	if req.InputImage != nil {
		mimeType := req.InputImage.MIMEType
		if mimeType == "" {
			mimeType = utils.MimeTypeFromExtension("")
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     req.InputImage.Data,
			},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})

	config := &GenerationConfig{
		ResponseModalities: []genai.Modality{genai.ModalityText, genai.ModalityImage},
	}
	if SupportsImageConfig(req.Model) {
		config.ImageConfig = &ImageConfig{
			ImageSize:   req.ImageSize,
			AspectRatio: req.AspectRatio,
		}
	}

	return &GenerateContentRequest{
		Contents:         []*genai.Content{{Parts: parts}},
		GenerationConfig: config,
	}
}
