package recognizer

import (
	"strings"

	"botlang/internal/recognize"
)

// scoreFloor is the minimum score an intent must clear before it is
// returned instead of "unknown" — a deliberately low bar, since this
// recognizer exists as a deterministic fallback, not a classifier.
const scoreFloor = 0.01

// RuleBased scores each intent by keyword-pattern hits plus
// example-word overlap and returns the best-scoring intent above
// scoreFloor, or "unknown". It has no network dependency and no
// external state, making it the deterministic collaborator spec.md
// names alongside the network-backed one.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

func (r *RuleBased) Recognize(utterance string, intents []recognize.IntentCatalogEntry, ctx recognize.Context) (recognize.Result, error) {
	lower := strings.ToLower(utterance)
	words := strings.Fields(lower)

	bestName := "unknown"
	bestScore := 0.0

	for _, intent := range intents {
		score := 0.0

		for _, pattern := range intent.Patterns {
			p := strings.ToLower(pattern)
			if p == "" {
				continue
			}
			if strings.Contains(lower, p) {
				score += 1.0
			}
		}

		if len(intent.Examples) > 0 {
			overlap := 0
			total := 0
			for _, example := range intent.Examples {
				for _, ew := range strings.Fields(strings.ToLower(example)) {
					total++
					for _, uw := range words {
						if uw == ew {
							overlap++
							break
						}
					}
				}
			}
			if total > 0 {
				score += float64(overlap) / float64(total)
			}
		}

		if score > bestScore {
			bestScore = score
			bestName = intent.Name
		}
	}

	if bestScore < scoreFloor {
		return recognize.Result{Intent: "unknown", Confidence: 0, Entities: map[string]string{}}, nil
	}

	confidence := bestScore
	if confidence > 1.0 {
		confidence = 1.0
	}
	return recognize.Result{Intent: bestName, Confidence: confidence, Entities: map[string]string{}}, nil
}
