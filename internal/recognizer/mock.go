// Package recognizer provides concrete IntentRecognizer
// implementations: a literal substring matcher for scripted tests, a
// deterministic rule-scoring fallback, and a network-backed client.
package recognizer

import (
	"strings"

	"botlang/internal/recognize"
)

// Mock implements the trivial recognizer spec.md's end-to-end test
// scenarios are defined against: it returns the intent whose first
// pattern is a substring of the utterance, in catalogue order, else
// "unknown". Confidence is always 1.0 and entities are always empty.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Recognize(utterance string, intents []recognize.IntentCatalogEntry, ctx recognize.Context) (recognize.Result, error) {
	for _, intent := range intents {
		if len(intent.Patterns) == 0 {
			continue
		}
		if strings.Contains(utterance, intent.Patterns[0]) {
			return recognize.Result{Intent: intent.Name, Confidence: 1.0, Entities: map[string]string{}}, nil
		}
	}
	return recognize.Result{Intent: "unknown", Confidence: 0, Entities: map[string]string{}}, nil
}
