package assistant

import "github.com/rapmendoza/ai-side-panel/internal/model"

// ScoringPolicy holds the tunable weights for blending an extraction
// confidence score out of the intent confidence and the per-entity
// confidences. The defaults match the original behavior; they are a policy
// object rather than constants because they are tuning knobs, not a
// principled derivation.
type ScoringPolicy struct {
	IntentWeight      float64
	EntityWeight      float64
	CompletenessBonus float64
}

// DefaultScoringPolicy returns the standard weights.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		IntentWeight:      0.6,
		EntityWeight:      0.4,
		CompletenessBonus: 0.1,
	}
}

// Blend combines the intent confidence with the average entity confidence,
// then applies the completeness bonus: added when every required field is
// present, subtracted when any is missing. The result is clamped to [0,1].
func (p ScoringPolicy) Blend(intentConfidence float64, entities []model.ExtractedEntity, missingCount int) float64 {
	avgEntity := 0.0
	if len(entities) > 0 {
		sum := 0.0
		for _, e := range entities {
			sum += e.Confidence
		}
		avgEntity = sum / float64(len(entities))
	}

	score := p.IntentWeight*intentConfidence + p.EntityWeight*avgEntity

	if missingCount == 0 && len(entities) > 0 {
		score += p.CompletenessBonus
	} else if missingCount > 0 {
		score -= p.CompletenessBonus
	}

	return clamp01(score)
}
