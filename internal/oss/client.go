package oss

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"gemini-image/common"
	"gemini-image/internal/utils"

	"github.com/google/uuid"
)

// NewOSSClientFromConfig 从配置创建 OSS 客户端
func NewOSSClientFromConfig(cfg *common.Config) (OSSIface, error) {
	if !cfg.OSSConfigured() {
		return nil, fmt.Errorf("OSS upload requires OSS_BUCKET, OSS_ACCESS_KEY and OSS_SECRET_KEY")
	}

	return NewS3Client(S3Config{
		Endpoint:  cfg.OSSEndpoint,
		Region:    cfg.OSSRegion,
		AccessKey: cfg.OSSAccessKey,
		SecretKey: cfg.OSSSecretKey,
	})
}

// ObjectKey 生成图片对象 key：images/yyyy-MM-dd/{uuid}_{timestamp}_{random}.ext
func ObjectKey(now time.Time, mimeType string) string {
	return utils.GenerateImagePath(now) + utils.GenerateImageFileName(uuid.New().String(), now, mimeType)
}

// UploadImage 上传生成的图片并返回访问 URL
func UploadImage(ctx context.Context, client OSSIface, bucket string, data []byte, mimeType string) (string, error) {
	key := ObjectKey(time.Now(), mimeType)

	url, err := client.UploadFileWithURL(ctx, bucket, key, bytes.NewReader(data), mimeType)
	if err != nil {
		return "", fmt.Errorf("failed to upload image to OSS: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"bucket": bucket,
		"key":    key,
		"url":    url,
	}).Info("Image uploaded to OSS successfully")
	return url, nil
}
