package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/redisclient"
)

// Stage names a worker pipeline stage. The queue keeps one ready list per
// stage plus a shared delayed set for retry backoff.
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageProcessing Stage = "processing"
)

const (
	readyKeyPrefix = "transcribe:queue:"
	delayedKey     = "transcribe:queue:delayed"
)

// JobQueue dispatches job UUIDs to worker loops. Ready jobs sit in per-stage
// redis lists; delayed jobs wait in a sorted set scored by their due time and
// are promoted back to the ready list by PromoteDue.
type JobQueue interface {
	Enqueue(ctx context.Context, stage Stage, jobUUID string) error
	// Dequeue blocks up to timeout. Returns empty string when nothing arrived.
	Dequeue(ctx context.Context, stage Stage, timeout time.Duration) (string, error)
	// EnqueueDelayed parks the job until dueAt.
	EnqueueDelayed(ctx context.Context, stage Stage, jobUUID string, dueAt time.Time) error
	// PromoteDue moves jobs whose due time has passed onto their ready lists,
	// returning how many moved.
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	Depth(ctx context.Context, stage Stage) (int64, error)
}

type redisJobQueue struct {
	client *redisclient.Client
}

func NewRedisJobQueue(client *redisclient.Client) JobQueue {
	return &redisJobQueue{client: client}
}

func readyKey(stage Stage) string {
	return readyKeyPrefix + string(stage)
}

// delayedMember encodes stage and job in one sorted-set member.
func delayedMember(stage Stage, jobUUID string) string {
	return string(stage) + ":" + jobUUID
}

func splitDelayedMember(member string) (Stage, string, bool) {
	idx := strings.IndexByte(member, ':')
	if idx <= 0 || idx == len(member)-1 {
		return "", "", false
	}
	return Stage(member[:idx]), member[idx+1:], true
}

func (q *redisJobQueue) Enqueue(ctx context.Context, stage Stage, jobUUID string) error {
	if err := q.client.Raw().LPush(ctx, readyKey(stage), jobUUID).Err(); err != nil {
		return fmt.Errorf("enqueue %s job: %w", stage, err)
	}
	return nil
}

func (q *redisJobQueue) Dequeue(ctx context.Context, stage Stage, timeout time.Duration) (string, error) {
	res, err := q.client.Raw().BRPop(ctx, timeout, readyKey(stage)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dequeue %s job: %w", stage, err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *redisJobQueue) EnqueueDelayed(ctx context.Context, stage Stage, jobUUID string, dueAt time.Time) error {
	member := delayedMember(stage, jobUUID)
	err := q.client.Raw().ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(dueAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("park delayed job: %w", err)
	}
	return nil
}

func (q *redisJobQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.client.Raw().ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan delayed jobs: %w", err)
	}

	promoted := 0
	for _, member := range members {
		// ZREM decides ownership when several promoters race.
		removed, err := q.client.Raw().ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return promoted, fmt.Errorf("remove delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		stage, jobUUID, ok := splitDelayedMember(member)
		if !ok {
			logger.Warnf("dropping malformed delayed queue member=%s", member)
			continue
		}
		if err := q.Enqueue(ctx, stage, jobUUID); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func (q *redisJobQueue) Depth(ctx context.Context, stage Stage) (int64, error) {
	return q.client.Raw().LLen(ctx, readyKey(stage)).Result()
}
