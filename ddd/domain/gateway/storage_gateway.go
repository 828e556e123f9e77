package gateway

import "context"

// StorageGateway abstracts object storage for uploaded media, extracted audio
// and model weights.
type StorageGateway interface {
	// DownloadMedia fetches an uploaded object to a local path.
	DownloadMedia(ctx context.Context, objectKey, localPath string) error

	// UploadExtractedAudio stores a normalized waveform and returns its object key.
	UploadExtractedAudio(ctx context.Context, localPath, objectKey string) (string, error)

	// DownloadModel fetches model weights for a tier into the local cache.
	DownloadModel(ctx context.Context, objectKey, localPath string) error

	// MediaExists reports whether the uploaded object is still present.
	MediaExists(ctx context.Context, objectKey string) (bool, error)
}
