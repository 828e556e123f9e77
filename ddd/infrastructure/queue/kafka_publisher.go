package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/kafka"
)

// JobMessage is the wire format on the job submission topic. Keyed by job
// UUID so retries of the same job land in the same partition.
type JobMessage struct {
	JobUUID   string `json:"job_uuid"`
	UserUUID  string `json:"user_uuid"`
	MediaKind string `json:"media_kind"`
}

// KafkaJobPublisher implements gateway.JobPublisher over the shared client.
type KafkaJobPublisher struct {
	client *kafka.Client
	topic  string
}

func NewKafkaJobPublisher(client *kafka.Client, cfg *config.Config) gateway.JobPublisher {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &KafkaJobPublisher{
		client: client,
		topic:  cfg.Kafka.Topics.TranscriptionJobs,
	}
}

func (p *KafkaJobPublisher) PublishSubmitted(ctx context.Context, job *entity.MediaJobEntity) error {
	msg := JobMessage{
		JobUUID:   job.JobUUID(),
		UserUUID:  job.UserUUID(),
		MediaKind: string(job.MediaKind()),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode job message: %w", err)
	}
	if err := p.client.Produce(ctx, p.topic, []byte(job.JobUUID()), value); err != nil {
		return fmt.Errorf("publish job message: %w", err)
	}
	return nil
}
