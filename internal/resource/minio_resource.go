package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"transcribe-service/pkg/assert"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/manager"
)

var (
	minioResourceOnce      sync.Once
	singletonMinioResource *MinioResource
)

// MinioResource manages the object storage client. The media bucket holds
// uploads and extracted audio; the model bucket holds inference weights and is
// never written by this service.
type MinioResource struct {
	client          *minio.Client
	bucketName      string
	modelBucketName string
}

// DefaultMinioResource returns the global MinIO resource instance.
func DefaultMinioResource() *MinioResource {
	assert.NotCircular()
	minioResourceOnce.Do(func() {
		singletonMinioResource = &MinioResource{}
	})
	assert.NotNil(singletonMinioResource)
	return singletonMinioResource
}

// MustOpen initializes the MinIO client from global configuration.
func (r *MinioResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before MinioResource")
	}

	minioCfg := cfg.Minio
	if minioCfg.Endpoint == "" {
		panic("minio endpoint is required")
	}
	if minioCfg.MediaBucket == "" {
		panic("minio media_bucket is required")
	}
	if minioCfg.ModelBucket == "" {
		panic("minio model_bucket is required")
	}

	client, err := minio.New(minioCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioCfg.AccessKeyID, minioCfg.SecretAccessKey, ""),
		Secure: minioCfg.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create minio client: %v", err))
	}

	r.client = client
	r.bucketName = minioCfg.MediaBucket
	r.modelBucketName = minioCfg.ModelBucket

	r.ensureBucket()

	logger.Info("MinIO resource initialized", map[string]interface{}{
		"endpoint":     minioCfg.Endpoint,
		"media_bucket": r.bucketName,
		"model_bucket": r.modelBucketName,
	})
}

// ensureBucket creates the media bucket on first boot. The model bucket is
// provisioned out-of-band together with its weights.
func (r *MinioResource) ensureBucket() {
	ctx := context.Background()
	exists, err := r.client.BucketExists(ctx, r.bucketName)
	if err != nil {
		panic(fmt.Sprintf("failed to check minio bucket: %v", err))
	}
	if exists {
		return
	}
	if err := r.client.MakeBucket(ctx, r.bucketName, minio.MakeBucketOptions{}); err != nil {
		panic(fmt.Sprintf("failed to create minio bucket: %v", err))
	}
}

// GetClient exposes the MinIO client.
func (r *MinioResource) GetClient() *minio.Client {
	return r.client
}

// GetBucketName returns the media bucket.
func (r *MinioResource) GetBucketName() string {
	return r.bucketName
}

// GetModelBucketName returns the model weight bucket.
func (r *MinioResource) GetModelBucketName() string {
	return r.modelBucketName
}

// Close releases the resource. The minio client holds no persistent connection.
func (r *MinioResource) Close() {}

// MinioResourcePlugin wires the resource into the manager.
type MinioResourcePlugin struct{}

func (p *MinioResourcePlugin) Name() string {
	return "minioResource"
}

func (p *MinioResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMinioResource()
}
