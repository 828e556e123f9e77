package gateway

import (
	"context"

	"transcribe-service/ddd/domain/entity"
)

// JobPublisher announces accepted jobs to the pipeline. Submission and
// processing communicate only through this bus plus the job row; the HTTP
// layer never touches worker queues directly.
type JobPublisher interface {
	PublishSubmitted(ctx context.Context, job *entity.MediaJobEntity) error
}
