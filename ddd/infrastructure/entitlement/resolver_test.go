package entitlement

import (
	"context"
	"errors"
	"testing"

	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
)

func planConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Entitlement.DefaultPlan = "free"
	cfg.Entitlement.Plans = map[string]config.PlanConfig{
		"free":       {MaxTier: "base"},
		"basic":      {MaxTier: "small"},
		"pro":        {MaxTier: "medium", Diarization: true},
		"enterprise": {MaxTier: "large", Diarization: true},
		"legacy":     {MaxTier: "gigantic"}, // misconfigured ceiling
	}
	return cfg
}

func resolverForPlan(cfg *config.Config, planName string, lookupErr error) *PlanResolver {
	r := &PlanResolver{cfg: cfg}
	r.lookup = func(ctx context.Context, userUUID string) (string, error) {
		if lookupErr != nil {
			return "", lookupErr
		}
		return planName, nil
	}
	return r
}

// TestResolveClampsTier grants at most the plan ceiling.
func TestResolveClampsTier(t *testing.T) {
	cases := []struct {
		plan      string
		requested vo.ModelTier
		want      vo.ModelTier
	}{
		{"free", vo.ModelTierLarge, vo.ModelTierBase},
		{"basic", vo.ModelTierLarge, vo.ModelTierSmall},
		{"basic", vo.ModelTierBase, vo.ModelTierBase}, // below ceiling stays
		{"pro", vo.ModelTierMedium, vo.ModelTierMedium},
		{"enterprise", vo.ModelTierLarge, vo.ModelTierLarge},
	}
	for _, tc := range cases {
		r := resolverForPlan(planConfig(), tc.plan, nil)
		decision, err := r.Resolve(context.Background(), "user-1", tc.requested, false)
		if err != nil {
			t.Fatalf("plan=%s: Resolve() error = %v", tc.plan, err)
		}
		if decision.Tier != tc.want {
			t.Fatalf("plan=%s requested=%s: Tier = %s, want %s", tc.plan, tc.requested, decision.Tier, tc.want)
		}
	}
}

// TestResolveDiarizationGate intersects the request with the plan capability.
func TestResolveDiarizationGate(t *testing.T) {
	cases := []struct {
		plan  string
		wants bool
		want  bool
	}{
		{"pro", true, true},
		{"pro", false, false}, // plan allows, user did not ask
		{"free", true, false}, // user asks, plan denies
	}
	for _, tc := range cases {
		r := resolverForPlan(planConfig(), tc.plan, nil)
		decision, err := r.Resolve(context.Background(), "user-1", vo.ModelTierBase, tc.wants)
		if err != nil {
			t.Fatalf("plan=%s: Resolve() error = %v", tc.plan, err)
		}
		if decision.Diarization != tc.want {
			t.Fatalf("plan=%s wants=%v: Diarization = %v, want %v", tc.plan, tc.wants, decision.Diarization, tc.want)
		}
	}
}

// TestResolveUnknownPlanFallsBack treats a plan name nobody configured as the
// default plan.
func TestResolveUnknownPlanFallsBack(t *testing.T) {
	r := resolverForPlan(planConfig(), "gold", nil)
	decision, err := r.Resolve(context.Background(), "user-1", vo.ModelTierLarge, true)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if decision.Tier != vo.ModelTierBase || decision.Diarization {
		t.Fatalf("decision = %+v, want free-plan capabilities", decision)
	}
}

// TestResolveInvalidCeiling rejects a plan whose configured ceiling is not a
// known tier.
func TestResolveInvalidCeiling(t *testing.T) {
	r := resolverForPlan(planConfig(), "legacy", nil)
	if _, err := r.Resolve(context.Background(), "user-1", vo.ModelTierBase, false); err == nil {
		t.Fatal("Resolve() error = nil, want invalid ceiling error")
	}
}

// TestResolveLookupFailure propagates store errors so the caller can refuse
// the submission.
func TestResolveLookupFailure(t *testing.T) {
	r := resolverForPlan(planConfig(), "", errors.New("redis: connection refused"))
	if _, err := r.Resolve(context.Background(), "user-1", vo.ModelTierBase, false); err == nil {
		t.Fatal("Resolve() error = nil, want lookup failure")
	}
}

// TestResolveDefaultPlanMissing fails loudly on a config defect instead of
// inventing capabilities.
func TestResolveDefaultPlanMissing(t *testing.T) {
	cfg := planConfig()
	cfg.Entitlement.DefaultPlan = "nonexistent"
	r := resolverForPlan(cfg, "gold", nil)
	if _, err := r.Resolve(context.Background(), "user-1", vo.ModelTierBase, false); err == nil {
		t.Fatal("Resolve() error = nil, want missing default plan error")
	}
}
