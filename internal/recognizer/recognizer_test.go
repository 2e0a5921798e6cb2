package recognizer

import (
	"testing"

	"botlang/internal/recognize"
)

var billingIntent = recognize.IntentCatalogEntry{
	Name:     "billing",
	Patterns: []string{"invoice", "bill"},
	Examples: []string{"I have a question about my invoice", "why was I billed twice"},
}

var greetingIntent = recognize.IntentCatalogEntry{
	Name:     "greeting",
	Patterns: []string{"hello"},
}

func TestMockMatchesFirstPatternSubstring(t *testing.T) {
	m := NewMock()
	res, err := m.Recognize("I need help with my invoice", []recognize.IntentCatalogEntry{billingIntent, greetingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "billing" {
		t.Errorf("intent = %q, want billing", res.Intent)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestMockIgnoresNonFirstPattern(t *testing.T) {
	m := NewMock()
	res, err := m.Recognize("please check my bill", []recognize.IntentCatalogEntry{billingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "unknown" {
		t.Errorf("intent = %q, want unknown ('bill' is the second pattern, not the first)", res.Intent)
	}
}

func TestMockReturnsUnknownWhenNoMatch(t *testing.T) {
	m := NewMock()
	res, err := m.Recognize("what's the weather", []recognize.IntentCatalogEntry{billingIntent, greetingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "unknown" {
		t.Errorf("intent = %q, want unknown", res.Intent)
	}
}

func TestRuleBasedMatchesOnKeywordHit(t *testing.T) {
	r := NewRuleBased()
	res, err := r.Recognize("I have a question about my invoice", []recognize.IntentCatalogEntry{billingIntent, greetingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "billing" {
		t.Errorf("intent = %q, want billing", res.Intent)
	}
	if res.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", res.Confidence)
	}
}

func TestRuleBasedReturnsUnknownBelowFloor(t *testing.T) {
	r := NewRuleBased()
	res, err := r.Recognize("completely unrelated text", []recognize.IntentCatalogEntry{billingIntent, greetingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "unknown" {
		t.Errorf("intent = %q, want unknown", res.Intent)
	}
}

func TestRuleBasedConfidenceCapsAtOne(t *testing.T) {
	r := NewRuleBased()
	res, err := r.Recognize("invoice bill invoice bill my bill was late", []recognize.IntentCatalogEntry{billingIntent}, recognize.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence > 1.0 {
		t.Errorf("confidence = %v, should be capped at 1.0", res.Confidence)
	}
}
