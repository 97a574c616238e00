package utils

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gemini-image/common"
)

// ImagePayload 输入图片：原始字节与检测到的 MIME 类型
type ImagePayload struct {
	Path     string
	Data     []byte
	MIMEType string
}

// imageFormat 允许的图片格式：MIME 类型与文件头签名
type imageFormat struct {
	mimeType  string
	signature []byte
}

var (
	pngFormat  = imageFormat{"image/png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}}
	jpegFormat = imageFormat{"image/jpeg", []byte{0xff, 0xd8, 0xff}}
	webpFormat = imageFormat{"image/webp", []byte("RIFF")}
	gifFormat  = imageFormat{"image/gif", []byte("GIF8")}
)

// allowedExtensions 输入图片扩展名白名单
var allowedExtensions = map[string]imageFormat{
	".png":  pngFormat,
	".jpg":  jpegFormat,
	".jpeg": jpegFormat,
	".webp": webpFormat,
	".gif":  gifFormat,
}

// AllowedExtensions 返回白名单中的扩展名（用于提示信息）
func AllowedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}
}

// LoadInputImage 读取并校验输入图片：扩展名在白名单内、文件存在、文件头与扩展名对应的格式一致。
// 任一检查失败都返回 ValidationError，不做降级处理。
func LoadInputImage(path string) (*ImagePayload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := allowedExtensions[ext]
	if !ok {
		return nil, common.NewValidationError("input image",
			fmt.Sprintf("unsupported file extension %q for %s (allowed: %s)", ext, path, strings.Join(AllowedExtensions(), ", ")))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewValidationError("input image", fmt.Sprintf("file not found: %s", path))
		}
		return nil, common.NewValidationError("input image", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	if !ValidateSignature(ext, data) {
		return nil, common.NewValidationError("input image",
			fmt.Sprintf("%s does not look like a %s file (magic bytes mismatch)", path, strings.TrimPrefix(ext, ".")))
	}

	common.WithFields(map[string]interface{}{
		"path":      path,
		"mime_type": format.mimeType,
		"size":      len(data),
	}).Debug("Input image validated")

	return &ImagePayload{
		Path:     path,
		Data:     data,
		MIMEType: MimeTypeFromExtension(ext),
	}, nil
}

// ValidateSignature 判断 data 的文件头是否与扩展名对应的格式一致
func ValidateSignature(ext string, data []byte) bool {
	format, ok := allowedExtensions[strings.ToLower(ext)]
	if !ok {
		return false
	}
	return bytes.HasPrefix(data, format.signature)
}

// MimeTypeFromExtension 根据扩展名获取 MIME 类型（不区分大小写），未知扩展名默认 image/png
func MimeTypeFromExtension(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if format, ok := allowedExtensions[ext]; ok {
		return format.mimeType
	}
	return pngFormat.mimeType
}

// GetExtensionFromMimeType 根据 MIME 类型获取文件扩展名（不区分大小写）
func GetExtensionFromMimeType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// DefaultOutputPath 未指定 --output 时的输出文件名：generated-YYYYMMDD-HHMMSS.png
func DefaultOutputPath(now time.Time) string {
	return fmt.Sprintf("generated-%s.png", now.Format("20060102-150405"))
}

// WriteImageFile 写入输出图片，必要时创建父目录
func WriteImageFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output image %s: %w", path, err)
	}
	return nil
}

// GenerateImagePath 生成对象存储路径：images/yyyy-MM-dd/
func GenerateImagePath(now time.Time) string {
	return fmt.Sprintf("images/%s/", now.Format("2006-01-02"))
}

// GenerateImageFileName 生成对象存储文件名：{id}_{timestamp}_{random}.ext
func GenerateImageFileName(id string, now time.Time, mimeType string) string {
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)
	randomStr := fmt.Sprintf("%x", randomBytes)

	return fmt.Sprintf("%s_%d_%s%s", id, now.Unix(), randomStr, GetExtensionFromMimeType(mimeType))
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
