package vo

// ModelTier is a whisper model size category trading speed for accuracy.
type ModelTier string

const (
	ModelTierTiny   ModelTier = "tiny"
	ModelTierBase   ModelTier = "base"
	ModelTierSmall  ModelTier = "small"
	ModelTierMedium ModelTier = "medium"
	ModelTierLarge  ModelTier = "large"
)

// FallbackTier is where loading degrades to when a larger tier fails.
const FallbackTier = ModelTierBase

// tierOrder maps tiers to their rank in the fixed ordered set.
var tierOrder = map[ModelTier]int{
	ModelTierTiny:   0,
	ModelTierBase:   1,
	ModelTierSmall:  2,
	ModelTierMedium: 3,
	ModelTierLarge:  4,
}

// IsValid reports whether the tier belongs to the fixed set.
func (t ModelTier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// String returns the tier name.
func (t ModelTier) String() string {
	return string(t)
}

// Exceeds reports whether t is a larger model than ceiling.
func (t ModelTier) Exceeds(ceiling ModelTier) bool {
	return tierOrder[t] > tierOrder[ceiling]
}

// ClampTo returns t, lowered to ceiling when t exceeds it.
func (t ModelTier) ClampTo(ceiling ModelTier) ModelTier {
	if t.Exceeds(ceiling) {
		return ceiling
	}
	return t
}
