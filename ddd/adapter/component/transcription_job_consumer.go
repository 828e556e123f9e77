package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"transcribe-service/ddd/infrastructure/queue"
	"transcribe-service/internal/resource"
	"transcribe-service/pkg/config"
	pkgkafka "transcribe-service/pkg/kafka"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/manager"
)

func init() {
	manager.RegisterComponentPlugin(&TranscriptionJobConsumerPlugin{})
}

// TranscriptionJobConsumerPlugin bridges the submission topic to the worker
// queues. Every accepted job enters through the extraction stage; audio-only
// jobs pass straight through it to processing.
type TranscriptionJobConsumerPlugin struct{}

func (p *TranscriptionJobConsumerPlugin) Name() string { return "transcriptionJobConsumer" }

func (p *TranscriptionJobConsumerPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &transcriptionJobConsumer{
		cfg:      cfg,
		jobQueue: queue.NewRedisJobQueue(resource.DefaultRedisResource().Client()),
	}
}

type transcriptionJobConsumer struct {
	cfg      *config.Config
	jobQueue queue.JobQueue
	ctx      context.Context
	cancel   context.CancelFunc
}

func (c *transcriptionJobConsumer) Start() error {
	if !c.cfg.Kafka.Enabled {
		logger.Info("Kafka consumer disabled by configuration", nil)
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	topic := c.cfg.Kafka.Topics.TranscriptionJobs
	groupID := c.cfg.Kafka.GroupID
	reader := pkgkafka.DefaultClient().Reader(topic, groupID)

	go func() {
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s group=%s", topic, groupID)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF")
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}

			var m queue.JobMessage
			if err := json.Unmarshal(msg.Value, &m); err != nil {
				logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
				continue
			}
			if m.JobUUID == "" {
				logger.Warn("Kafka message missing job_uuid", nil)
				continue
			}

			logger.Infof("Kafka message received job_uuid=%s user_uuid=%s kind=%s", m.JobUUID, m.UserUUID, m.MediaKind)
			if err := c.jobQueue.Enqueue(context.Background(), queue.StageExtraction, m.JobUUID); err != nil {
				logger.Errorf("failed to enqueue job from kafka job_uuid=%s error=%s", m.JobUUID, err.Error())
			}
		}
	}()
	return nil
}

func (c *transcriptionJobConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *transcriptionJobConsumer) GetName() string { return "transcriptionJobConsumer" }
