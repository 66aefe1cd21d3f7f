package enhance

import (
	"strings"
	"unicode/utf8"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

const (
	// charsPerToken is the rough character-to-token conversion used to
	// express the token budget in characters.
	charsPerToken = 4
	// promptOverheadTokens reserves room for the prompt template.
	promptOverheadTokens = 500
	// completionTokens matches the max_tokens ceiling sent upstream.
	completionTokens = 4096
)

// inputBudget returns the resume-content character budget for a model:
// the context window minus the completion and prompt reservations,
// converted to characters.
func inputBudget(model string) int {
	return (domain.ContextWindow(model) - completionTokens - promptOverheadTokens) * charsPerToken
}

// truncateContent caps text to the budget, cutting at the latest sentence
// or line boundary at or before it so the model never receives a broken
// fragment. The second return reports whether anything was cut.
func truncateContent(text string, budget int) (string, bool) {
	if len(text) <= budget {
		return text, false
	}

	cut := text[:budget]
	lastPeriod := strings.LastIndex(cut, ".")
	lastNewline := strings.LastIndex(cut, "\n")
	boundary := lastPeriod
	if lastNewline > boundary {
		boundary = lastNewline
	}

	if boundary > 0 {
		return cut[:boundary+1], true
	}

	// Hard cut. Back up so the split never lands inside a multibyte rune.
	end := budget
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end], true
}
