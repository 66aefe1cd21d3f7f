package tokens

import "testing"

func TestEstimateOpenAIModel(t *testing.T) {
	e := NewEstimator()

	text := "Enhance this resume for a licensed electrician."
	got := e.Estimate("gpt-4o-mini", text)
	if got <= 0 {
		t.Errorf("Expected positive token count, got %d", got)
	}
	// Tokenized counts run well under one token per character.
	if got >= len(text) {
		t.Errorf("Token count %d should be below character count %d", got, len(text))
	}
}

func TestEstimateUnknownModelFallsBack(t *testing.T) {
	e := NewEstimator()

	text := "12345678"
	if got := e.Estimate("claude-3-5-sonnet-20241022", text); got != len(text)/charsPerToken {
		t.Errorf("Expected character heuristic, got %d", got)
	}
}

func TestEstimateEmptyText(t *testing.T) {
	e := NewEstimator()
	if got := e.Estimate("gpt-4o", ""); got != 0 {
		t.Errorf("Expected 0 tokens for empty text, got %d", got)
	}
}
