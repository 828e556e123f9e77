package gateway

import (
	"context"

	"transcribe-service/ddd/domain/vo"
)

// EntitlementDecision is the immutable capability grant attached to a job at
// submission time. The pipeline never re-derives entitlement mid-flight.
type EntitlementDecision struct {
	// Tier is the granted model tier, clamped to the plan ceiling.
	Tier vo.ModelTier
	// Diarization reports whether speaker diarization may run for this job.
	Diarization bool
}

// EntitlementResolver resolves a user's subscription capabilities exactly once
// per submission.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userUUID string, requestedTier vo.ModelTier, wantsDiarization bool) (EntitlementDecision, error)
}
