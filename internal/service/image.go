package service

import (
	"context"
	"fmt"
	"time"

	"gemini-image/common"
	"gemini-image/internal/genai/gemini"
	"gemini-image/internal/oss"
	"gemini-image/internal/utils"
)

// Job 一次生成任务：提示词已解析，输入图片尚未读取
type Job struct {
	Prompt         string
	InputImagePath string
	Model          string
	Size           string
	AspectRatio    string
	Output         string // 为空时使用 utils.DefaultOutputPath
	Upload         bool
}

// Outcome 生成结果
type Outcome struct {
	OutputPath string
	MIMEType   string
	Size       int
	UploadURL  string // 仅在上传时设置
}

// ImageService 校验输入、调用生成接口、写入输出文件，按需上传到 OSS
type ImageService struct {
	generator gemini.ImageGenerator
	uploader  oss.OSSIface // 可为 nil
	bucket    string
	now       func() time.Time
}

// NewImageService 创建服务；uploader 为 nil 时不支持上传
func NewImageService(generator gemini.ImageGenerator, uploader oss.OSSIface, bucket string) *ImageService {
	return &ImageService{
		generator: generator,
		uploader:  uploader,
		bucket:    bucket,
		now:       time.Now,
	}
}

// Generate 执行一次完整的生成流程。出错时不会写入输出文件。
func (s *ImageService) Generate(ctx context.Context, job Job) (*Outcome, error) {
	if job.Prompt == "" {
		return nil, common.ErrMissingPrompt
	}
	if job.Upload && s.uploader == nil {
		return nil, fmt.Errorf("upload requested but OSS is not configured (set OSS_BUCKET, OSS_ACCESS_KEY, OSS_SECRET_KEY)")
	}

	req := gemini.ImageRequest{
		Prompt:      job.Prompt,
		Model:       job.Model,
		ImageSize:   job.Size,
		AspectRatio: job.AspectRatio,
	}
	if job.InputImagePath != "" {
		payload, err := utils.LoadInputImage(job.InputImagePath)
		if err != nil {
			return nil, err
		}
		req.InputImage = payload
	}

	result, err := s.generator.GenerateImage(ctx, req)
	if err != nil {
		return nil, err
	}

	outputPath := job.Output
	if outputPath == "" {
		outputPath = utils.DefaultOutputPath(s.now())
	}
	if err := utils.WriteImageFile(outputPath, result.Data); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		OutputPath: outputPath,
		MIMEType:   result.MIMEType,
		Size:       len(result.Data),
	}

	if job.Upload {
		url, err := oss.UploadImage(ctx, s.uploader, s.bucket, result.Data, result.MIMEType)
		if err != nil {
			return outcome, err
		}
		outcome.UploadURL = url
	}

	common.WithFields(map[string]interface{}{
		"output":     outcome.OutputPath,
		"mime_type":  outcome.MIMEType,
		"size":       outcome.Size,
		"upload_url": outcome.UploadURL,
	}).Info("Image saved")

	return outcome, nil
}
