package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/redisclient"
)

const planKeyPrefix = "transcribe:plan:"

// PlanResolver implements gateway.EntitlementResolver. The billing service
// writes each user's plan name into redis; unknown or missing plans fall back
// to the configured default, so a billing outage degrades rather than blocks
// submissions.
type PlanResolver struct {
	client *redisclient.Client
	cfg    *config.Config

	// lookup resolves a user to a plan name. Substitutable in tests.
	lookup func(ctx context.Context, userUUID string) (string, error)
}

func NewPlanResolver(client *redisclient.Client, cfg *config.Config) gateway.EntitlementResolver {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	r := &PlanResolver{client: client, cfg: cfg}
	r.lookup = r.lookupPlan
	return r
}

func (r *PlanResolver) Resolve(ctx context.Context, userUUID string, requestedTier vo.ModelTier, wantsDiarization bool) (gateway.EntitlementDecision, error) {
	planName, err := r.lookup(ctx, userUUID)
	if err != nil {
		return gateway.EntitlementDecision{}, err
	}

	plan, ok := r.cfg.Entitlement.Plans[planName]
	if !ok {
		logger.Warnf("unknown plan, using default user_uuid=%s plan=%s", userUUID, planName)
		plan, ok = r.cfg.Entitlement.Plans[r.cfg.Entitlement.DefaultPlan]
		if !ok {
			return gateway.EntitlementDecision{}, fmt.Errorf("default plan %q not configured", r.cfg.Entitlement.DefaultPlan)
		}
	}

	ceiling := vo.ModelTier(plan.MaxTier)
	if !ceiling.IsValid() {
		return gateway.EntitlementDecision{}, fmt.Errorf("plan %q has invalid tier ceiling %q", planName, plan.MaxTier)
	}

	granted := requestedTier.ClampTo(ceiling)
	if granted != requestedTier {
		logger.Infof("model tier clamped user_uuid=%s requested=%s granted=%s plan=%s",
			userUUID, requestedTier, granted, planName)
	}

	return gateway.EntitlementDecision{
		Tier:        granted,
		Diarization: wantsDiarization && plan.Diarization,
	}, nil
}

func (r *PlanResolver) lookupPlan(ctx context.Context, userUUID string) (string, error) {
	plan, err := r.client.Raw().Get(ctx, planKeyPrefix+userUUID).Result()
	if errors.Is(err, redis.Nil) {
		return r.cfg.Entitlement.DefaultPlan, nil
	}
	if err != nil {
		return "", fmt.Errorf("look up plan for %s: %w", userUUID, err)
	}
	return plan, nil
}
