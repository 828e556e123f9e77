package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/internal/resource"
	"transcribe-service/pkg/logger"
)

// MinioStorage implements gateway.StorageGateway. Uploaded media and extracted
// audio live in the media bucket; model weights in a separate read-only bucket.
type MinioStorage struct {
	minioResource *resource.MinioResource
}

func NewMinioStorage(minioResource *resource.MinioResource) gateway.StorageGateway {
	return &MinioStorage{minioResource: minioResource}
}

func (s *MinioStorage) DownloadMedia(ctx context.Context, objectKey, localPath string) error {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local dir failed: %w", err)
	}
	if err := client.FGetObject(ctx, bucketName, objectKey, localPath, minio.GetObjectOptions{}); err != nil {
		logger.Error("Failed to download media from MinIO", map[string]interface{}{
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("download media from minio failed: %w", err)
	}
	return nil
}

func (s *MinioStorage) UploadExtractedAudio(ctx context.Context, localPath, objectKey string) (string, error) {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("get file info failed: %w", err)
	}

	_, err = client.PutObject(ctx, bucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: "audio/wav",
	})
	if err != nil {
		logger.Error("Failed to upload extracted audio to MinIO", map[string]interface{}{
			"local_path": localPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("upload extracted audio to minio failed: %w", err)
	}

	logger.Info("Extracted audio uploaded", map[string]interface{}{
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})
	return objectKey, nil
}

func (s *MinioStorage) DownloadModel(ctx context.Context, objectKey, localPath string) error {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetModelBucketName()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create cache dir failed: %w", err)
	}
	if err := client.FGetObject(ctx, bucketName, objectKey, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download model weights from minio failed: %w", err)
	}
	return nil
}

func (s *MinioStorage) MediaExists(ctx context.Context, objectKey string) (bool, error) {
	client := s.minioResource.GetClient()
	bucketName := s.minioResource.GetBucketName()

	_, err := client.StatObject(ctx, bucketName, objectKey, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat media object failed: %w", err)
}
