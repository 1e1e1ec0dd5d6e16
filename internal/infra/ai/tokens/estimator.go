package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/avelinov/trendwatch/internal/platform/logger"
)

// fallbackTokensPerWord approximates tokens from whitespace-separated words
// when no encoder is available for the model.
const fallbackTokensPerWord = 1.3

// Estimator counts tokens for budgeting. It prefers the model's real
// encoding; if none is available it degrades to a word-count heuristic and
// says so once in the logs, because the heuristic shifts chunk boundaries
// between model upgrades.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

func NewEstimator(model string, log *logger.Logger) *Estimator {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warn("token estimator fallback engaged, chunk boundaries are heuristic",
			"model", model, "error", err)
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// Estimate returns the token cost of text. Deterministic for the same input
// and monotonic in the input length; never fails.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	words := len(strings.Fields(text))
	if words == 0 {
		// whitespace-only still occupies at least one token
		return 1
	}
	return int(float64(words) * fallbackTokensPerWord)
}
