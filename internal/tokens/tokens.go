// Package tokens sizes prompts in tokens. OpenAI-family models get
// exact counts through tiktoken; everything else uses a characters per
// token estimate.
package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

const charsPerToken = 4

// Estimator counts or estimates prompt tokens per model.
type Estimator struct {
	mu     sync.RWMutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewEstimator creates an estimator with an empty codec cache.
func NewEstimator() *Estimator {
	return &Estimator{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Estimate returns the token count for text under the given model. It
// never fails; when no tokenizer covers the model it falls back to the
// character heuristic.
func (e *Estimator) Estimate(model, text string) int {
	if enc, ok := encodingFor(model); ok {
		if codec, err := e.codec(enc); err == nil {
			if ids, _, err := codec.Encode(text); err == nil {
				return len(ids)
			}
		}
	}
	return len(text) / charsPerToken
}

func (e *Estimator) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	e.mu.RLock()
	codec, ok := e.codecs[enc]
	e.mu.RUnlock()
	if ok {
		return codec, nil
	}

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.codecs[enc] = codec
	e.mu.Unlock()
	return codec, nil
}

func encodingFor(model string) (tokenizer.Encoding, bool) {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"), strings.HasPrefix(model, "gpt-5"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return tokenizer.O200kBase, true
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase, true
	default:
		return "", false
	}
}
